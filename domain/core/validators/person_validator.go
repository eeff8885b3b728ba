package validators

import (
	"net/url"
	"unicode/utf8"

	"familytree/domain/config"
	"familytree/domain/core/entities"
	"familytree/domain/core/valueobjects"
	"familytree/pkg/errors"
)

// PersonValidator validates person records against the store-level rules
// that the entity itself cannot check: field limits and the persons a record
// refers to.
type PersonValidator struct {
	cfg *config.DomainConfig
}

// NewPersonValidator creates a validator; a nil config selects the defaults
func NewPersonValidator(cfg *config.DomainConfig) *PersonValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &PersonValidator{cfg: cfg}
}

// ValidateProfile checks field lengths and the photo URL
func (v *PersonValidator) ValidateProfile(p entities.Profile) error {
	errs := errors.NewValidationErrors()

	if utf8.RuneCountInString(p.FullName) > v.cfg.MaxFullNameLength {
		errs.Add("fullName", "full name is too long")
	}
	if utf8.RuneCountInString(p.BirthPlace) > v.cfg.MaxTextLength {
		errs.Add("birthPlace", "birth place is too long")
	}
	if utf8.RuneCountInString(p.Occupation) > v.cfg.MaxTextLength {
		errs.Add("occupation", "occupation is too long")
	}
	if utf8.RuneCountInString(p.Bio) > v.cfg.MaxBioLength {
		errs.Add("bio", "bio is too long")
	}
	if p.PhotoURL != "" {
		if u, err := url.Parse(p.PhotoURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.Add("photoUrl", "photo URL must be an absolute http(s) URL")
		}
	}
	if v.cfg.RequireDeathAfterBirth && !p.DeathDate.IsZero() && p.DeathDate.Before(p.BirthDate) {
		errs.Add("deathDate", "death date cannot precede birth date")
	}

	return errs.ErrOrNil()
}

// ValidateRelations checks the references of the person identified by id.
// related must contain every referenced person that exists in the store;
// a reference absent from it is reported as missing.
func (v *PersonValidator) ValidateRelations(
	id valueobjects.PersonID,
	gender valueobjects.Gender,
	relations entities.Relations,
	related map[string]*entities.Person,
) error {
	errs := errors.NewValidationErrors()

	check := func(field string, ref valueobjects.PersonID, want valueobjects.Gender, rule bool) {
		if ref.IsZero() {
			return
		}
		if ref.Equals(id) {
			errs.AddError(errors.ErrSelfReference(field))
			return
		}
		other, ok := related[ref.String()]
		if !ok || other == nil {
			errs.AddError(errors.ErrReferenceMissing(field, ref.String()))
			return
		}
		if rule && other.Gender() != want {
			if field == entities.FieldSpouse {
				errs.AddError(errors.ErrSpouseGender())
			} else {
				errs.AddError(errors.ErrParentGender(field, string(want)))
			}
		}
	}

	check(entities.FieldFather, relations.FatherID, valueobjects.GenderMale, v.cfg.RequireParentGender)
	check(entities.FieldMother, relations.MotherID, valueobjects.GenderFemale, v.cfg.RequireParentGender)
	check(entities.FieldSpouse, relations.SpouseID, opposite(gender), v.cfg.RequireOppositeGenderSpouse)

	if !relations.SpouseID.IsZero() &&
		(relations.SpouseID.Equals(relations.FatherID) || relations.SpouseID.Equals(relations.MotherID)) {
		errs.Add(entities.FieldSpouse, "spouse cannot also be a parent")
	}

	return errs.ErrOrNil()
}

func opposite(g valueobjects.Gender) valueobjects.Gender {
	if g.IsMale() {
		return valueobjects.GenderFemale
	}
	return valueobjects.GenderMale
}
