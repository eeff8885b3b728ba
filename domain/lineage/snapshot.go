package lineage

import (
	"fmt"

	"familytree/domain/core/entities"
	pkgerrors "familytree/pkg/errors"
)

// CheckSnapshot reports records that must never reach the builder: nil
// entries, records without identity or gender, and duplicate keys.
// Dangling references, cycles and ambiguous spouse links are not defects.
func CheckSnapshot(people []*entities.Person) error {
	errs := pkgerrors.NewValidationErrors()
	firstSeen := make(map[string]int, len(people))

	for i, p := range people {
		field := fmt.Sprintf("people[%d]", i)
		if p == nil {
			errs.Add(field, "record is nil")
			continue
		}
		if p.ID().IsZero() {
			errs.Add(field, "record has no identity")
			continue
		}
		if !p.Gender().IsValid() {
			errs.Add(field, fmt.Sprintf("record %s has no valid gender", p.ID()))
		}

		key := p.ID().String()
		if j, dup := firstSeen[key]; dup {
			errs.AddError(pkgerrors.ErrDuplicatePerson(key).
				WithDetail("field", field).
				WithDetail("firstIndex", j))
			continue
		}
		firstSeen[key] = i
	}

	return errs.ErrOrNil()
}
