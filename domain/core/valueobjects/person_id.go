package valueobjects

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// PersonID is a value object identifying a person record.
// Stored IDs are opaque; new records get a random UUID.
type PersonID struct {
	value string
}

// NewPersonID creates a new random PersonID
func NewPersonID() PersonID {
	return PersonID{value: uuid.New().String()}
}

// NewPersonIDFromString creates a PersonID from an existing key
func NewPersonIDFromString(id string) (PersonID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return PersonID{}, errors.New("person ID cannot be empty")
	}
	return PersonID{value: id}, nil
}

// MustPersonID is NewPersonIDFromString for keys known to be valid.
func MustPersonID(id string) PersonID {
	pid, err := NewPersonIDFromString(id)
	if err != nil {
		panic(err)
	}
	return pid
}

// OptionalPersonID converts an optional key into a PersonID.
// Nil and blank strings yield the zero PersonID.
func OptionalPersonID(id *string) PersonID {
	if id == nil {
		return PersonID{}
	}
	pid, err := NewPersonIDFromString(*id)
	if err != nil {
		return PersonID{}
	}
	return pid
}

// String returns the string representation of the PersonID
func (id PersonID) String() string {
	return id.value
}

// Equals checks if two PersonIDs are equal
func (id PersonID) Equals(other PersonID) bool {
	return id.value == other.value
}

// IsZero checks if the PersonID is the zero value
func (id PersonID) IsZero() bool {
	return id.value == ""
}

// Ptr returns a pointer to the key, or nil for the zero value.
func (id PersonID) Ptr() *string {
	if id.IsZero() {
		return nil
	}
	v := id.value
	return &v
}

// MarshalJSON implements json.Marshaler
func (id PersonID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *PersonID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		id.value = ""
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("PersonID must be a string")
	}
	id.value = strings.TrimSpace(string(data[1 : len(data)-1]))
	return nil
}
