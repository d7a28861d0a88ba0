package fund

import "github.com/fundexplorer/datakit/cache"

// Codec returns the cache codec for a single fund record.
func Codec() cache.Codec[*Record] {
	return cache.JSONCodec[*Record]()
}

// ListCodec returns the cache codec for a fund list.
func ListCodec() cache.Codec[[]Record] {
	return cache.JSONCodec[[]Record]()
}
