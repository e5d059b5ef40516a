package appointments

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// minutePrefixLayout is timestamp precision used for disambiguation: date
// plus hour and minute, 16 characters.
const minutePrefixLayout = "2006-01-02 15:04"

// ErrBadFecha is wrapped by ParseFecha failures so HTTP handlers can map
// them to a 400.
var ErrBadFecha = errors.New("invalid fecha")

var fechaLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	"02/01/2006 15:04",
	"2006-01-02",
}

var nlParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseFecha turns a model-provided date string into a time in the clinic
// zone. Exact layouts are tried first; free-form phrasing falls back to
// natural-language parsing relative to now.
func ParseFecha(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("appointments: empty fecha: %w", ErrBadFecha)
	}
	for _, layout := range fechaLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	r, err := nlParser.Parse(raw, now.In(loc))
	if err == nil && r != nil {
		return r.Time, nil
	}
	return time.Time{}, fmt.Errorf("appointments: unrecognized fecha %q: %w", raw, ErrBadFecha)
}

// MinutePrefix formats an appointment timestamp at minute precision in the
// clinic zone, the form disambiguation prefixes are matched against.
func MinutePrefix(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(minutePrefixLayout)
}

// matchByPrefix returns the candidates whose minute-precision timestamp
// starts with the given fecha text (itself cut to minute precision).
func matchByPrefix(candidates []*Appointment, raw string, loc *time.Location) []*Appointment {
	prefix := strings.TrimSpace(strings.ReplaceAll(raw, "T", " "))
	if len(prefix) > len(minutePrefixLayout) {
		prefix = prefix[:len(minutePrefixLayout)]
	}
	if prefix == "" {
		return nil
	}
	var out []*Appointment
	for _, a := range candidates {
		if strings.HasPrefix(MinutePrefix(a.Date, loc), prefix) {
			out = append(out, a)
		}
	}
	return out
}
