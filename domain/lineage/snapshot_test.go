package lineage

import (
	"testing"

	"familytree/domain/core/entities"
	pkgerrors "familytree/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSnapshot(t *testing.T) {
	t.Run("clean snapshot", func(t *testing.T) {
		assert.NoError(t, CheckSnapshot(people(
			male("A").WithFather("missing"),
			female("B").WithSpouse("A"),
			male("C").WithFather("C"),
		)))
	})

	t.Run("duplicates and nil", func(t *testing.T) {
		input := people(male("A"), female("B"), male("A"))
		input = append(input, nil)

		err := CheckSnapshot(input)
		require.Error(t, err)

		var verrs *pkgerrors.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		m := verrs.ToMap()
		assert.Contains(t, m, "people[2]")
		assert.Contains(t, m, "people[3]")
		assert.Len(t, verrs.Errors, 2)
	})

	t.Run("zero value record", func(t *testing.T) {
		err := CheckSnapshot([]*entities.Person{new(entities.Person)})
		assert.Error(t, err)
	})
}
