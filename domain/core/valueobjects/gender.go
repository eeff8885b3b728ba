package valueobjects

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Gender is the recorded gender of a person
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender accepts the canonical values plus the labels used by older
// clients ("Laki-laki" / "Perempuan").
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "laki-laki":
		return GenderMale, nil
	case "female", "f", "perempuan":
		return GenderFemale, nil
	case "":
		return "", fmt.Errorf("gender is required")
	default:
		return "", fmt.Errorf("unknown gender %q", s)
	}
}

// IsValid reports whether g is one of the known genders
func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale
}

// IsMale reports whether g is GenderMale
func (g Gender) IsMale() bool {
	return g == GenderMale
}

// IsFemale reports whether g is GenderFemale
func (g Gender) IsFemale() bool {
	return g == GenderFemale
}

// Label returns the display label used by the legacy API
func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "Laki-laki"
	case GenderFemale:
		return "Perempuan"
	default:
		return ""
	}
}

func (g Gender) String() string {
	return string(g)
}

// UnmarshalJSON implements json.Unmarshaler
func (g *Gender) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("gender must be a string: %w", err)
	}
	parsed, err := ParseGender(s)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
