package handlers

import (
	"context"
	"fmt"

	"familytree/domain/core/entities"
	"familytree/domain/core/valueobjects"
	pkgerrors "familytree/pkg/errors"

	"go.uber.org/zap"
)

// syncSpouse keeps spouse references reciprocal after person was written.
//
// previous is the spouse person referenced before the write (zero for a new
// record). When it differs from the current spouse, the old partner's
// back-reference is cleared. The current spouse is pointed back at person,
// and if that spouse was married to someone else, that third party's
// back-reference is cleared too. Every touched record is returned so the
// caller can publish its events.
func (s *writeSupport) syncSpouse(
	ctx context.Context,
	person *entities.Person,
	previous valueobjects.PersonID,
	related map[string]*entities.Person,
) ([]*entities.Person, error) {
	var touched []*entities.Person
	current := person.SpouseID()

	if !previous.IsZero() && !previous.Equals(current) {
		old, err := s.repo.GetByID(ctx, previous)
		switch {
		case pkgerrors.IsNotFound(err):
			// dangling reference, nothing to detach
		case err != nil:
			return touched, fmt.Errorf("failed to load previous spouse: %w", err)
		case old.UnlinkSpouse(person.ID()):
			if err := s.repo.Save(ctx, old); err != nil {
				return touched, fmt.Errorf("failed to detach previous spouse: %w", err)
			}
			touched = append(touched, old)
		}
	}

	if current.IsZero() {
		return touched, nil
	}

	spouse, ok := related[current.String()]
	if !ok {
		return touched, pkgerrors.ErrReferenceMissing(entities.FieldSpouse, current.String())
	}

	if theirs := spouse.SpouseID(); !theirs.IsZero() && !theirs.Equals(person.ID()) {
		third, err := s.repo.GetByID(ctx, theirs)
		switch {
		case pkgerrors.IsNotFound(err):
		case err != nil:
			return touched, fmt.Errorf("failed to load spouse's previous partner: %w", err)
		case third.UnlinkSpouse(spouse.ID()):
			if err := s.repo.Save(ctx, third); err != nil {
				return touched, fmt.Errorf("failed to detach spouse's previous partner: %w", err)
			}
			touched = append(touched, third)
		}
	}

	changed, err := spouse.LinkSpouse(person.ID())
	if err != nil {
		return touched, err
	}
	if changed {
		if err := s.repo.Save(ctx, spouse); err != nil {
			return touched, fmt.Errorf("failed to back-fill spouse: %w", err)
		}
		touched = append(touched, spouse)
		s.logger.Debug("Back-filled spouse reference",
			zap.String("personID", person.ID().String()),
			zap.String("spouseID", spouse.ID().String()))
	}

	return touched, nil
}
