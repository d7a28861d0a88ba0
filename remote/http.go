package remote

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fundexplorer/datakit/consistency"
	"github.com/fundexplorer/datakit/logger"
	"go.uber.org/zap"
)

// HTTPSource fetches fund data over HTTP. Responses are JSON; the version
// token is taken from the configured response header when present, else
// from the receive time.
type HTTPSource struct {
	logger logger.Logger
	cfg    *Config
	client *http.Client
}

// NewHTTPSource creates an HTTP-backed source.
func NewHTTPSource(log logger.Logger, cfg *Config) (*HTTPSource, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig("config is required")
	}
	defaults := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.VersionHeader == "" {
		cfg.VersionHeader = defaults.VersionHeader
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &HTTPSource{
		logger: log,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (s *HTTPSource) ID() string { return s.cfg.SourceID }

func (s *HTTPSource) Fetch(ctx context.Context, entityType string, params map[string]string) (*Payload, error) {
	body, header, err := s.get(ctx, s.endpoint(entityType), params)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Payload{
		Body:      body,
		Version:   s.version(entityID(entityType, params), header, body, now),
		FetchedAt: now,
	}, nil
}

// changeItem is the wire shape of one incremental change.
type changeItem struct {
	ID      string          `json:"id"`
	Version int64           `json:"version"`
	Data    json.RawMessage `json:"data"`
}

func (s *HTTPSource) ChangedSince(ctx context.Context, entityType string, since time.Time) ([]Change, error) {
	body, _, err := s.get(ctx, s.endpoint(entityType)+"/changes", map[string]string{
		"since": since.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	var items []changeItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, ErrDecodeResponse(entityType, err)
	}

	changes := make([]Change, 0, len(items))
	for _, it := range items {
		changes = append(changes, Change{
			EntityType: entityType,
			EntityID:   entityType + "/" + it.ID,
			Body:       it.Data,
			Version: consistency.Version{
				EntityID: entityType + "/" + it.ID,
				Token:    it.Version,
				SourceID: s.cfg.SourceID,
				Checksum: checksum(it.Data),
			},
		})
	}
	return changes, nil
}

// conflictResponse is the wire shape of a server-reported write conflict.
type conflictResponse struct {
	Version    int64                `json:"version"`
	Data       map[string]any       `json:"data"`
	FieldTimes map[string]time.Time `json:"field_times,omitempty"`
}

func (s *HTTPSource) Push(ctx context.Context, op WriteOp) (*PushResult, error) {
	u := s.endpoint(op.EntityType) + "/" + url.PathEscape(op.EntityID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(op.Body))
	if err != nil {
		return nil, ErrUnreachable(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, ErrUnreachable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrUnreachable(err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		var cr conflictResponse
		if err := json.Unmarshal(body, &cr); err != nil {
			return nil, ErrDecodeResponse(op.EntityType, err)
		}
		return &PushResult{
			Conflict: true,
			Server: &consistency.Record{
				Value: cr.Data,
				Version: consistency.Version{
					EntityID: op.EntityID,
					Token:    cr.Version,
					SourceID: s.cfg.SourceID,
				},
				FieldTimes: cr.FieldTimes,
			},
		}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Code: resp.StatusCode, URL: u}
	default:
		return &PushResult{}, nil
	}
}

// get issues one GET and returns the body and response header.
func (s *HTTPSource) get(ctx context.Context, endpoint string, params map[string]string) ([]byte, http.Header, error) {
	u := endpoint
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, ErrUnreachable(err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, ErrUnreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil, &StatusError{Code: resp.StatusCode, URL: endpoint}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, ErrUnreachable(err)
	}

	s.logger.Debug("remote fetch",
		zap.String("source", s.cfg.SourceID),
		zap.String("url", endpoint),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, resp.Header, nil
}

func (s *HTTPSource) endpoint(entityType string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/" + url.PathEscape(entityType)
}

// version derives the payload's version. The header token keeps tokens
// monotonic across fetches when the API provides it.
func (s *HTTPSource) version(entityID string, header http.Header, body []byte, now time.Time) consistency.Version {
	token := now.UnixMilli()
	if raw := header.Get(s.cfg.VersionHeader); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			token = parsed
		}
	}
	return consistency.Version{
		EntityID: entityID,
		Token:    token,
		SourceID: s.cfg.SourceID,
		Checksum: checksum(body),
	}
}

// entityID builds a deterministic entity identifier from the request.
func entityID(entityType string, params map[string]string) string {
	if len(params) == 0 {
		return entityType
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(entityType)
	for _, k := range keys {
		fmt.Fprintf(&b, "/%s=%s", k, params[k])
	}
	return b.String()
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
