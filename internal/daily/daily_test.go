package daily

import (
	"testing"
	"time"
)

func TestDateKeyIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	ts := time.Date(2026, 10, 17, 5, 0, 0, 0, loc) // 2026-10-16 19:00 UTC
	if got := DateKey(ts); got != "2026-10-16" {
		t.Errorf("DateKey = %q, want 2026-10-16", got)
	}
}

func TestIndexStableWithinDay(t *testing.T) {
	s := Source{Salt: "salt", Size: 1000}
	morning := time.Date(2026, 10, 16, 0, 0, 1, 0, time.UTC)
	night := time.Date(2026, 10, 16, 23, 59, 59, 0, time.UTC)
	a, b := s.IndexOn(morning), s.IndexOn(night)
	if a != b {
		t.Errorf("index changed within a day: %d vs %d", a, b)
	}
	if a < 0 || a >= 1000 {
		t.Errorf("index %d out of range", a)
	}
	if (Source{Salt: "salt"}).IndexOn(morning) != 0 {
		t.Error("empty dictionary should give index 0")
	}
}

func TestIndexVariesWithDay(t *testing.T) {
	s := Source{Salt: "salt", Size: 1 << 20}
	day := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	seen := map[int]bool{}
	for i := 0; i < 30; i++ {
		seen[s.IndexOn(day.AddDate(0, 0, i))] = true
	}
	if len(seen) < 25 {
		t.Errorf("only %d distinct indices over 30 days", len(seen))
	}
}

func TestIndexDependsOnSalt(t *testing.T) {
	day := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	differ := 0
	for _, salt := range []string{"a", "b", "c", "d", "e"} {
		if (Source{Salt: salt, Size: 1 << 20}).IndexOn(day) != (Source{Salt: "z", Size: 1 << 20}).IndexOn(day) {
			differ++
		}
	}
	if differ < 4 {
		t.Errorf("salt changed the index only %d/5 times", differ)
	}
}

func TestSourceUsesClock(t *testing.T) {
	day := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	s := Source{Salt: "x", Size: 50, Now: func() time.Time { return day }}
	if got, want := s.Next(), s.IndexOn(day); got != want {
		t.Errorf("Next() = %d, want %d", got, want)
	}
}
