package consistency

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func rec(token int64, checksum string, value any) Record {
	return Record{
		Value: value,
		Version: Version{
			EntityID: "fund/000001",
			Token:    token,
			SourceID: "primary",
			Checksum: checksum,
		},
	}
}

func TestTimestamp_RemoteNewerWins(t *testing.T) {
	// local token 5, remote token 7: the remote copy wins
	local := rec(5, "aa", "local-value")
	remote := rec(7, "bb", "remote-value")

	got, err := Timestamp{}.Resolve(local, remote)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.Winner != WinnerRemote || got.Value.Value != "remote-value" {
		t.Errorf("expected remote to win, got %+v", got)
	}
}

func TestTimestamp_LocalNewerWins(t *testing.T) {
	got, err := Timestamp{}.Resolve(rec(9, "aa", "local-value"), rec(7, "bb", "remote-value"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.Winner != WinnerLocal || got.Value.Value != "local-value" {
		t.Errorf("expected local to win, got %+v", got)
	}
}

func TestTimestamp_EqualTokensDivergentChecksums(t *testing.T) {
	_, err := Timestamp{}.Resolve(rec(7, "aa", "x"), rec(7, "bb", "y"))
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestServerAndClientWins(t *testing.T) {
	local := rec(9, "", "local-value")
	remote := rec(1, "", "remote-value")

	got, err := ServerWins{}.Resolve(local, remote)
	if err != nil || got.Winner != WinnerRemote {
		t.Errorf("server strategy: got %+v, %v", got, err)
	}

	got, err = ClientWins{}.Resolve(local, remote)
	if err != nil || got.Winner != WinnerLocal {
		t.Errorf("client strategy: got %+v, %v", got, err)
	}
}

func TestMerge_FieldLevel(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	local := Record{
		Value:   map[string]any{"name": "Growth Fund", "nav": "1.100", "manager": "Li"},
		Version: Version{EntityID: "fund/000001", Token: 5},
		FieldTimes: map[string]time.Time{
			"name":    base.Add(3 * time.Hour), // local edited the name last
			"nav":     base,
			"manager": base,
		},
	}
	remote := Record{
		Value:   map[string]any{"name": "Growth Fund A", "nav": "1.250"},
		Version: Version{EntityID: "fund/000001", Token: 7},
		FieldTimes: map[string]time.Time{
			"name": base.Add(time.Hour),
			"nav":  base.Add(2 * time.Hour), // remote has the fresher NAV
		},
	}

	got, err := Merge{}.Resolve(local, remote)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.Winner != WinnerMerged {
		t.Fatalf("expected merged winner, got %s", got.Winner)
	}

	merged := got.Value.Value.(map[string]any)
	want := map[string]any{
		"name":    "Growth Fund",   // local was fresher
		"nav":     "1.250",         // remote was fresher
		"manager": "Li",            // only local has it
	}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("merged = %v, want %v", merged, want)
	}
	if got.Value.Version.Token != 7 {
		t.Errorf("expected merged token 7, got %d", got.Value.Version.Token)
	}
}

func TestMerge_FallsBackWithoutFieldTimes(t *testing.T) {
	local := rec(5, "", map[string]any{"nav": "1.1"})
	remote := rec(7, "", map[string]any{"nav": "1.2"})

	got, err := Merge{}.Resolve(local, remote)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.Winner != WinnerRemote {
		t.Errorf("expected timestamp fallback picking remote, got %s", got.Winner)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	local := Record{
		Value:      map[string]any{"a": 1, "b": 2, "c": 3},
		Version:    Version{EntityID: "e", Token: 5},
		FieldTimes: map[string]time.Time{"a": base.Add(time.Hour), "b": base, "c": base},
	}
	remote := Record{
		Value:      map[string]any{"a": 10, "b": 20, "d": 40},
		Version:    Version{EntityID: "e", Token: 6},
		FieldTimes: map[string]time.Time{"a": base, "b": base.Add(time.Hour), "d": base},
	}

	for _, s := range []Strategy{Timestamp{}, ServerWins{}, ClientWins{}, Merge{}} {
		first, err1 := s.Resolve(local, remote)
		second, err2 := s.Resolve(local, remote)
		if (err1 == nil) != (err2 == nil) {
			t.Fatalf("%s: non-deterministic error behavior", s.Name())
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%s: identical inputs produced different outputs:\n%+v\n%+v", s.Name(), first, second)
		}
	}
}

func TestConflicting(t *testing.T) {
	tests := []struct {
		name   string
		local  Version
		remote Version
		want   bool
	}{
		{
			"diverged tokens",
			Version{EntityID: "e", Token: 5},
			Version{EntityID: "e", Token: 7},
			true,
		},
		{
			"same tokens same checksum",
			Version{EntityID: "e", Token: 7, Checksum: "aa"},
			Version{EntityID: "e", Token: 7, Checksum: "aa"},
			false,
		},
		{
			"same tokens divergent checksum",
			Version{EntityID: "e", Token: 7, Checksum: "aa"},
			Version{EntityID: "e", Token: 7, Checksum: "bb"},
			true,
		},
		{
			"different entities never conflict",
			Version{EntityID: "e1", Token: 5},
			Version{EntityID: "e2", Token: 7},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Conflicting(tt.local, tt.remote); got != tt.want {
				t.Errorf("Conflicting() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"timestamp", "server", "client", "merge"} {
		s, err := ByName(name)
		if err != nil {
			t.Errorf("ByName(%q) failed: %v", name, err)
		}
		if s.Name() != name {
			t.Errorf("ByName(%q).Name() = %q", name, s.Name())
		}
	}
	if _, err := ByName("coinflip"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
