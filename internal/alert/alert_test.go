package alert

import (
	"testing"
	"time"
)

func TestNormalizeLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"critical", LevelCritical},
		{"CRITICAL", LevelCritical},
		{" warning ", LevelWarning},
		{"Info", LevelInfo},
		{"foo", Level("FOO")},
		{"", Level("")},
	}
	for _, c := range cases {
		if got := NormalizeLevel(c.in); got != c.want {
			t.Errorf("NormalizeLevel(%q): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestLevel_Known(t *testing.T) {
	for _, l := range []Level{LevelInfo, LevelWarning, LevelCritical} {
		if !l.Known() {
			t.Errorf("Known(%q): got false, want true", l)
		}
	}
	if Level("FOO").Known() {
		t.Error("Known(FOO): got true, want false")
	}
}

func TestParseTimestamp_Formats(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		in     string
		parsed bool
	}{
		{"2025-05-30T08:15:00Z", true},
		{"2025-05-30T08:15:00.123456Z", true},
		{"2025-05-30T08:15:00+05:30", true},
		{"2025-05-30T08:15:00", true},
		{"2025-05-30 08:15:00", true},
		{"not-a-timestamp", false},
		{"", false},
	}
	for _, c := range cases {
		got, ok := ParseTimestamp(c.in, now)
		if ok != c.parsed {
			t.Errorf("ParseTimestamp(%q): parsed=%v, want %v", c.in, ok, c.parsed)
		}
		if !c.parsed && !got.Equal(now) {
			t.Errorf("ParseTimestamp(%q): fallback got %v, want %v", c.in, got, now)
		}
		if got.Location() != time.UTC {
			t.Errorf("ParseTimestamp(%q): location got %v, want UTC", c.in, got.Location())
		}
	}
}

func TestParseTimestamp_NormalizesToUTC(t *testing.T) {
	now := time.Now()
	got, ok := ParseTimestamp("2025-05-30T08:15:00+05:30", now)
	if !ok {
		t.Fatal("expected timestamp to parse")
	}
	want := time.Date(2025, 5, 30, 2, 45, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalize_GeneratesID(t *testing.T) {
	now := time.Now()
	a := Normalize(Input{TouristID: "t-1", Level: "info"}, now)
	b := Normalize(Input{TouristID: "t-1", Level: "info"}, now)

	if a.AlertID == "" {
		t.Fatal("AlertID: expected generated id, got empty")
	}
	if a.AlertID == b.AlertID {
		t.Error("AlertID: two normalizations produced the same generated id")
	}
}

func TestNormalize_KeepsCallerID(t *testing.T) {
	a := Normalize(Input{AlertID: "caller-1"}, time.Now())
	if a.AlertID != "caller-1" {
		t.Errorf("AlertID: got %q, want caller-1", a.AlertID)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := Normalize(Input{
		AlertID:     "a-1",
		TouristID:   "t-9",
		AnomalyType: "route_deviation",
		Level:       "warning",
		Timestamp:   "garbage",
	}, now)

	if a.Level != LevelWarning {
		t.Errorf("Level: got %q, want WARNING", a.Level)
	}
	if !a.Timestamp.Equal(now) {
		t.Errorf("Timestamp fallback: got %v, want %v", a.Timestamp, now)
	}
	if a.RawEvidence == nil {
		t.Error("RawEvidence: got nil, want empty map")
	}
	if a.Hash != "" {
		t.Errorf("Hash: got %q, want empty before persistence", a.Hash)
	}
}
