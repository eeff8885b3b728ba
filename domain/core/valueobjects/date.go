package valueobjects

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical wire format for calendar dates
const DateLayout = "2006-01-02"

// Date is an optional calendar date. The zero value means "unknown".
type Date struct {
	t     time.Time
	valid bool
}

// NewDate wraps t, truncated to the day in UTC
func NewDate(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), valid: true}
}

// ParseDate parses "2006-01-02" or RFC3339. Blank input yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", s)
	}
	return NewDate(t), nil
}

// MustDate is ParseDate for literals known to be valid
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether the date is unknown
func (d Date) IsZero() bool {
	return !d.valid
}

// Time returns the underlying time (zero time when unknown)
func (d Date) Time() time.Time {
	return d.t
}

// Before reports whether d is strictly earlier than other.
// Unknown dates are never before anything.
func (d Date) Before(other Date) bool {
	if !d.valid || !other.valid {
		return false
	}
	return d.t.Before(other.t)
}

// Equals compares two dates
func (d Date) Equals(other Date) bool {
	return d.valid == other.valid && d.t.Equal(other.t)
}

// Year returns the calendar year, or 0 when unknown
func (d Date) Year() int {
	if !d.valid {
		return 0
	}
	return d.t.Year()
}

// String formats the date as YYYY-MM-DD, or "" when unknown
func (d Date) String() string {
	if !d.valid {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
