package timeutil

import (
	"errors"
	"testing"
	"time"
)

func TestToMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"09:00", 540},
		{"09:15", 555},
		{"12:30", 750},
		{"23:59", 1439},
	}
	for _, c := range cases {
		got, err := ToMinutes(c.in)
		if err != nil {
			t.Fatalf("ToMinutes(%q): unexpected error %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ToMinutes(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestToMinutesMonotonic(t *testing.T) {
	prev := -1
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m += 7 {
			s := time.Date(2025, 1, 1, h, m, 0, 0, time.UTC).Format("15:04")
			got, err := ToMinutes(s)
			if err != nil {
				t.Fatalf("ToMinutes(%q): %v", s, err)
			}
			if got <= prev {
				t.Fatalf("ToMinutes(%q) = %d, not above previous %d", s, got, prev)
			}
			prev = got
		}
	}
}

func TestToMinutesRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "9:00", "24:00", "12:60", "12-30", "ab:cd", "12:3", "012:30"} {
		if _, err := ToMinutes(in); !errors.Is(err, ErrTimeFormat) {
			t.Fatalf("ToMinutes(%q): want ErrTimeFormat, got %v", in, err)
		}
	}
}

func TestZoneResolution(t *testing.T) {
	now := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)

	if got := TimeInZone(now, "Europe/Berlin"); got != "01:30" {
		t.Fatalf("TimeInZone Berlin = %q, want 01:30", got)
	}
	if got := DateInZone(now, "Europe/Berlin"); got != "2025-06-02" {
		t.Fatalf("DateInZone Berlin = %q, want 2025-06-02", got)
	}

	// Unknown zones degrade to UTC instead of failing.
	if got := TimeInZone(now, "Not/AZone"); got != "23:30" {
		t.Fatalf("TimeInZone fallback = %q, want 23:30", got)
	}
	if got := DateInZone(now, ""); got != "2025-06-01" {
		t.Fatalf("DateInZone empty zone = %q, want 2025-06-01", got)
	}
}

func TestFormatRemaining(t *testing.T) {
	if got := FormatRemaining(45); got != "45m" {
		t.Fatalf("FormatRemaining(45) = %q", got)
	}
	if got := FormatRemaining(125); got != "2h 5m" {
		t.Fatalf("FormatRemaining(125) = %q", got)
	}
	if got := FormatRemaining(60); got != "1h 0m" {
		t.Fatalf("FormatRemaining(60) = %q", got)
	}
}
