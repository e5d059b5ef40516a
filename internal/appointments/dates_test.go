package appointments

import (
	"errors"
	"testing"
	"time"
)

func TestParseFecha_Layouts(t *testing.T) {
	loc := time.FixedZone("clinic", -6*3600)
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, loc)

	cases := []struct {
		raw  string
		want string
	}{
		{"2025-06-01 10:00", "2025-06-01 10:00"},
		{"2025-06-01T10:00", "2025-06-01 10:00"},
		{"2025-06-01 10:00:30", "2025-06-01 10:00"},
		{"01/06/2025 10:00", "2025-06-01 10:00"},
		{"2025-06-01", "2025-06-01 00:00"},
	}
	for _, tc := range cases {
		got, err := ParseFecha(tc.raw, loc, now)
		if err != nil {
			t.Errorf("ParseFecha(%q) failed: %v", tc.raw, err)
			continue
		}
		if MinutePrefix(got, loc) != tc.want {
			t.Errorf("ParseFecha(%q) = %s, want %s", tc.raw, MinutePrefix(got, loc), tc.want)
		}
	}
}

func TestParseFecha_NaturalLanguage(t *testing.T) {
	loc := time.FixedZone("clinic", -6*3600)
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, loc)

	got, err := ParseFecha("tomorrow at 4pm", loc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Day() != 2 || got.Hour() != 16 {
		t.Errorf("expected May 2nd 16:00, got %v", got)
	}
}

func TestParseFecha_Invalid(t *testing.T) {
	loc := time.FixedZone("clinic", -6*3600)

	for _, raw := range []string{"", "   ", "qqqq"} {
		if _, err := ParseFecha(raw, loc, time.Now()); !errors.Is(err, ErrBadFecha) {
			t.Errorf("ParseFecha(%q): expected ErrBadFecha, got %v", raw, err)
		}
	}
}

func TestMatchByPrefix(t *testing.T) {
	loc := time.FixedZone("clinic", -6*3600)
	cands := []*Appointment{
		{ID: 1, Date: time.Date(2025, 5, 2, 10, 0, 0, 0, loc)},
		{ID: 2, Date: time.Date(2025, 5, 2, 16, 30, 0, 0, loc)},
		{ID: 3, Date: time.Date(2025, 5, 3, 10, 0, 0, 0, loc)},
	}

	if got := matchByPrefix(cands, "2025-05-02 16:30", loc); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("minute prefix: expected [2], got %+v", got)
	}
	if got := matchByPrefix(cands, "2025-05-02", loc); len(got) != 2 {
		t.Errorf("date prefix: expected 2 matches, got %d", len(got))
	}
	// Anything longer than minute precision is cut before matching.
	if got := matchByPrefix(cands, "2025-05-03 10:00:00", loc); len(got) != 1 || got[0].ID != 3 {
		t.Errorf("long prefix: expected [3], got %+v", got)
	}
	if got := matchByPrefix(cands, "2030-01-01", loc); got != nil {
		t.Errorf("expected no matches, got %+v", got)
	}
}
