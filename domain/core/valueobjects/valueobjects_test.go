package valueobjects

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonID(t *testing.T) {
	t.Run("generated IDs are unique", func(t *testing.T) {
		a, b := NewPersonID(), NewPersonID()
		assert.False(t, a.IsZero())
		assert.False(t, a.Equals(b))
	})

	t.Run("accepts opaque keys", func(t *testing.T) {
		id, err := NewPersonIDFromString("  64f0c2a1e4b0a1b2c3d4e5f6 ")
		require.NoError(t, err)
		assert.Equal(t, "64f0c2a1e4b0a1b2c3d4e5f6", id.String())
	})

	t.Run("rejects blank keys", func(t *testing.T) {
		_, err := NewPersonIDFromString("   ")
		assert.Error(t, err)
	})

	t.Run("optional", func(t *testing.T) {
		blank := " "
		assert.True(t, OptionalPersonID(nil).IsZero())
		assert.True(t, OptionalPersonID(&blank).IsZero())
		assert.Nil(t, PersonID{}.Ptr())

		v := "p1"
		got := OptionalPersonID(&v)
		require.NotNil(t, got.Ptr())
		assert.Equal(t, "p1", *got.Ptr())
	})

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(struct {
			A PersonID `json:"a"`
			B PersonID `json:"b"`
		}{A: MustPersonID("x")})
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":"x","b":null}`, string(data))

		var out struct {
			A PersonID `json:"a"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"a":"y"}`), &out))
		assert.Equal(t, "y", out.A.String())
	})
}

func TestParseGender(t *testing.T) {
	tests := []struct {
		in      string
		want    Gender
		wantErr bool
	}{
		{"male", GenderMale, false},
		{"Laki-laki", GenderMale, false},
		{"M", GenderMale, false},
		{"female", GenderFemale, false},
		{"Perempuan", GenderFemale, false},
		{" f ", GenderFemale, false},
		{"", "", true},
		{"other", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGender(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenderLabel(t *testing.T) {
	assert.Equal(t, "Laki-laki", GenderMale.Label())
	assert.Equal(t, "Perempuan", GenderFemale.Label())
	assert.False(t, Gender("x").IsValid())
}

func TestDate(t *testing.T) {
	t.Run("parse formats", func(t *testing.T) {
		d, err := ParseDate("1950-03-04")
		require.NoError(t, err)
		assert.Equal(t, "1950-03-04", d.String())

		d, err = ParseDate("1950-03-04T10:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, "1950-03-04", d.String())
		assert.Equal(t, 1950, d.Year())
	})

	t.Run("blank is unknown", func(t *testing.T) {
		d, err := ParseDate("")
		require.NoError(t, err)
		assert.True(t, d.IsZero())
		assert.Equal(t, 0, d.Year())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseDate("04/03/1950")
		assert.Error(t, err)
	})

	t.Run("before ignores unknown", func(t *testing.T) {
		early := MustDate("1900-01-01")
		late := MustDate("1950-01-01")
		assert.True(t, early.Before(late))
		assert.False(t, late.Before(early))
		assert.False(t, Date{}.Before(late))
		assert.False(t, early.Before(Date{}))
	})

	t.Run("new date truncates", func(t *testing.T) {
		d := NewDate(time.Date(2001, 2, 3, 23, 59, 0, 0, time.UTC))
		assert.True(t, d.Equals(MustDate("2001-02-03")))
	})

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal([]Date{MustDate("2000-01-02"), {}})
		require.NoError(t, err)
		assert.JSONEq(t, `["2000-01-02", null]`, string(data))

		var out []Date
		require.NoError(t, json.Unmarshal([]byte(`["1999-12-31", null]`), &out))
		assert.Equal(t, "1999-12-31", out[0].String())
		assert.True(t, out[1].IsZero())
	})
}
