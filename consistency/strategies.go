package consistency

import (
	"sort"
	"time"
)

// Timestamp resolves in favor of the side with the later version token,
// interpreting tokens as a total time ordering. Equal tokens with equal
// checksums are no conflict and the remote copy is returned; equal tokens
// with differing checksums cannot be ordered and are unresolvable.
type Timestamp struct{}

func (Timestamp) Name() string { return "timestamp" }

func (Timestamp) Resolve(local, remote Record) (Resolved, error) {
	switch {
	case remote.Version.Token > local.Version.Token:
		return Resolved{Value: remote, Winner: WinnerRemote}, nil
	case local.Version.Token > remote.Version.Token:
		return Resolved{Value: local, Winner: WinnerLocal}, nil
	case local.Version.Checksum != remote.Version.Checksum &&
		local.Version.Checksum != "" && remote.Version.Checksum != "":
		return Resolved{}, ErrUnresolvable(local.Version.EntityID, "timestamp",
			"equal tokens with divergent checksums")
	default:
		return Resolved{Value: remote, Winner: WinnerRemote}, nil
	}
}

// ServerWins always keeps the remote copy.
type ServerWins struct{}

func (ServerWins) Name() string { return "server" }

func (ServerWins) Resolve(local, remote Record) (Resolved, error) {
	return Resolved{Value: remote, Winner: WinnerRemote}, nil
}

// ClientWins always keeps the local copy.
type ClientWins struct{}

func (ClientWins) Name() string { return "client" }

func (ClientWins) Resolve(local, remote Record) (Resolved, error) {
	return Resolved{Value: local, Winner: WinnerLocal}, nil
}

// Merge combines the two copies field by field, preferring the side whose
// field was updated more recently; ties go to the remote side. It requires
// both values to be map[string]any and both records to carry field times;
// otherwise it falls back to Timestamp semantics.
//
// The merged record carries the higher version token and the later field
// time per field, so repeated resolution is stable.
type Merge struct{}

func (Merge) Name() string { return "merge" }

func (Merge) Resolve(local, remote Record) (Resolved, error) {
	localFields, localOK := local.Value.(map[string]any)
	remoteFields, remoteOK := remote.Value.(map[string]any)
	if !localOK || !remoteOK || len(local.FieldTimes) == 0 || len(remote.FieldTimes) == 0 {
		// insufficient field metadata
		return Timestamp{}.Resolve(local, remote)
	}

	merged := make(map[string]any, len(remoteFields))
	mergedTimes := make(map[string]time.Time, len(remoteFields))

	for _, name := range sortedFieldNames(localFields, remoteFields) {
		lv, inLocal := localFields[name]
		rv, inRemote := remoteFields[name]

		switch {
		case !inLocal:
			merged[name] = rv
			mergedTimes[name] = remote.FieldTimes[name]
		case !inRemote:
			merged[name] = lv
			mergedTimes[name] = local.FieldTimes[name]
		case local.FieldTimes[name].After(remote.FieldTimes[name]):
			merged[name] = lv
			mergedTimes[name] = local.FieldTimes[name]
		default:
			merged[name] = rv
			mergedTimes[name] = remote.FieldTimes[name]
		}
	}

	version := remote.Version
	if local.Version.Token > remote.Version.Token {
		version = local.Version
	}
	// merged content no longer matches either side's checksum
	version.Checksum = ""

	return Resolved{
		Value: Record{
			Value:      merged,
			Version:    version,
			FieldTimes: mergedTimes,
		},
		Winner: WinnerMerged,
	}, nil
}

// sortedFieldNames returns the union of field names in lexicographic order,
// keeping merge output deterministic regardless of map iteration order.
func sortedFieldNames(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
