// Package timeutil converts between wall-clock strings and minute offsets and
// resolves "now"/"today" in a user's timezone. Every function takes an
// explicit now so callers stay testable.
package timeutil

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrTimeFormat is returned for anything that is not a 24-hour "HH:mm" string.
var ErrTimeFormat = errors.New("time must be in HH:mm format")

var hhmmRx = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// ToMinutes parses "HH:mm" into minutes since midnight.
func ToMinutes(hhmm string) (int, error) {
	if !hhmmRx.MatchString(hhmm) {
		return 0, fmt.Errorf("%w: %q", ErrTimeFormat, hhmm)
	}
	h := int(hhmm[0]-'0')*10 + int(hhmm[1]-'0')
	m := int(hhmm[3]-'0')*10 + int(hhmm[4]-'0')
	return h*60 + m, nil
}

// Location resolves an IANA zone name, falling back to UTC on anything
// unknown. A bad stored timezone must never stop a user's reminders.
func Location(zone string) *time.Location {
	if zone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TimeInZone formats now as "HH:mm" wall-clock time in the given zone.
func TimeInZone(now time.Time, zone string) string {
	return now.In(Location(zone)).Format("15:04")
}

// DateInZone formats now as "YYYY-MM-DD" in the given zone.
func DateInZone(now time.Time, zone string) string {
	return now.In(Location(zone)).Format("2006-01-02")
}

// FormatRemaining renders a minute count as "Xh Ym", or just "Ym" under an
// hour.
func FormatRemaining(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
