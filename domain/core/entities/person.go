package entities

import (
	"strings"
	"time"

	"familytree/domain/core/valueobjects"
	"familytree/domain/events"
	pkgerrors "familytree/pkg/errors"
)

// Relation field names as they appear on the wire
const (
	FieldFather = "fatherId"
	FieldMother = "motherId"
	FieldSpouse = "spouseId"
)

// Profile holds the descriptive attributes of a person
type Profile struct {
	FullName   string
	Gender     valueobjects.Gender
	BirthDate  valueobjects.Date
	DeathDate  valueobjects.Date
	BirthPlace string
	Occupation string
	Bio        string
	PhotoURL   string
}

func (p Profile) normalized() Profile {
	p.FullName = strings.TrimSpace(p.FullName)
	p.BirthPlace = strings.TrimSpace(p.BirthPlace)
	p.Occupation = strings.TrimSpace(p.Occupation)
	p.Bio = strings.TrimSpace(p.Bio)
	p.PhotoURL = strings.TrimSpace(p.PhotoURL)
	return p
}

func (p Profile) validate(errs *pkgerrors.ValidationErrors) {
	if p.FullName == "" {
		errs.Add("fullName", "full name is required")
	}
	if !p.Gender.IsValid() {
		errs.Add("gender", "gender must be male or female")
	}
	if !p.DeathDate.IsZero() && p.DeathDate.Before(p.BirthDate) {
		errs.Add("deathDate", "death date cannot precede birth date")
	}
}

// Relations holds the optional references to other persons.
// A zero PersonID means the reference is unset.
type Relations struct {
	FatherID valueobjects.PersonID
	MotherID valueobjects.PersonID
	SpouseID valueobjects.PersonID
}

// Fields returns the set references keyed by their wire field name
func (r Relations) Fields() map[string]valueobjects.PersonID {
	out := make(map[string]valueobjects.PersonID, 3)
	if !r.FatherID.IsZero() {
		out[FieldFather] = r.FatherID
	}
	if !r.MotherID.IsZero() {
		out[FieldMother] = r.MotherID
	}
	if !r.SpouseID.IsZero() {
		out[FieldSpouse] = r.SpouseID
	}
	return out
}

func (r Relations) validateFor(id valueobjects.PersonID, errs *pkgerrors.ValidationErrors) {
	for field, ref := range r.Fields() {
		if ref.Equals(id) {
			errs.AddError(pkgerrors.ErrSelfReference(field))
		}
	}
}

// Person is a single family member record.
// This is a rich domain model; fields are only reachable through methods.
type Person struct {
	id        valueobjects.PersonID
	profile   Profile
	relations Relations
	createdAt time.Time
	updatedAt time.Time
	version   int

	events []events.DomainEvent
}

// NewPerson creates a person after validating profile and relations.
// A zero id is replaced with a freshly generated one.
func NewPerson(id valueobjects.PersonID, profile Profile, relations Relations) (*Person, error) {
	if id.IsZero() {
		id = valueobjects.NewPersonID()
	}
	profile = profile.normalized()

	errs := pkgerrors.NewValidationErrors()
	profile.validate(errs)
	relations.validateFor(id, errs)
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &Person{
		id:        id,
		profile:   profile,
		relations: relations,
		createdAt: now,
		updatedAt: now,
		version:   1,
		events:    []events.DomainEvent{},
	}

	p.addEvent(events.NewPersonCreated(id, profile.FullName, profile.Gender,
		relations.FatherID, relations.MotherID, relations.SpouseID, now))

	return p, nil
}

// ReconstructPerson rebuilds a person from stored data.
// Only identity and gender are enforced; stored relations are taken as-is.
func ReconstructPerson(
	id valueobjects.PersonID,
	profile Profile,
	relations Relations,
	createdAt, updatedAt time.Time,
	version int,
) (*Person, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("person ID cannot be empty")
	}
	if !profile.Gender.IsValid() {
		return nil, pkgerrors.NewValidationError("person " + id.String() + " has no valid gender")
	}
	if version < 1 {
		version = 1
	}

	return &Person{
		id:        id,
		profile:   profile,
		relations: relations,
		createdAt: createdAt,
		updatedAt: updatedAt,
		version:   version,
		events:    []events.DomainEvent{},
	}, nil
}

func (p *Person) ID() valueobjects.PersonID       { return p.id }
func (p *Person) Profile() Profile                { return p.profile }
func (p *Person) Relations() Relations            { return p.relations }
func (p *Person) FullName() string                { return p.profile.FullName }
func (p *Person) Gender() valueobjects.Gender     { return p.profile.Gender }
func (p *Person) IsMale() bool                    { return p.profile.Gender.IsMale() }
func (p *Person) IsFemale() bool                  { return p.profile.Gender.IsFemale() }
func (p *Person) BirthDate() valueobjects.Date    { return p.profile.BirthDate }
func (p *Person) DeathDate() valueobjects.Date    { return p.profile.DeathDate }
func (p *Person) FatherID() valueobjects.PersonID { return p.relations.FatherID }
func (p *Person) MotherID() valueobjects.PersonID { return p.relations.MotherID }
func (p *Person) SpouseID() valueobjects.PersonID { return p.relations.SpouseID }
func (p *Person) CreatedAt() time.Time            { return p.createdAt }
func (p *Person) UpdatedAt() time.Time            { return p.updatedAt }
func (p *Person) Version() int                    { return p.version }

// Update replaces profile and relations. Unchanged input is a no-op.
func (p *Person) Update(profile Profile, relations Relations) error {
	profile = profile.normalized()

	errs := pkgerrors.NewValidationErrors()
	profile.validate(errs)
	relations.validateFor(p.id, errs)
	if err := errs.ErrOrNil(); err != nil {
		return err
	}

	changed := diffFields(p.profile, profile, p.relations, relations)
	if len(changed) == 0 {
		return nil
	}

	previousSpouse := p.relations.SpouseID
	p.profile = profile
	p.relations = relations
	p.touch()

	p.addEvent(events.NewPersonUpdated(p.id, p.version, changed, p.updatedAt))
	if !previousSpouse.Equals(relations.SpouseID) && !relations.SpouseID.IsZero() {
		p.addEvent(events.NewSpouseLinked(p.id, relations.SpouseID, previousSpouse, p.version, p.updatedAt))
	}
	return nil
}

// LinkSpouse points the spouse reference at spouseID.
// It reports whether anything changed.
func (p *Person) LinkSpouse(spouseID valueobjects.PersonID) (bool, error) {
	if spouseID.Equals(p.id) {
		return false, pkgerrors.ErrSelfReference(FieldSpouse)
	}
	if p.relations.SpouseID.Equals(spouseID) {
		return false, nil
	}

	previous := p.relations.SpouseID
	p.relations.SpouseID = spouseID
	p.touch()
	p.addEvent(events.NewSpouseLinked(p.id, spouseID, previous, p.version, p.updatedAt))
	return true, nil
}

// UnlinkSpouse clears the spouse reference when it points at spouseID.
func (p *Person) UnlinkSpouse(spouseID valueobjects.PersonID) bool {
	if spouseID.IsZero() || !p.relations.SpouseID.Equals(spouseID) {
		return false
	}
	p.relations.SpouseID = valueobjects.PersonID{}
	p.touch()
	p.addEvent(events.NewReferencesCleared(p.id, spouseID, []string{FieldSpouse}, p.version, p.updatedAt))
	return true
}

// ClearReferencesTo unsets every relation pointing at removed and returns
// the names of the cleared fields. Other references are left alone.
func (p *Person) ClearReferencesTo(removed valueobjects.PersonID) []string {
	if removed.IsZero() {
		return nil
	}

	var cleared []string
	if p.relations.FatherID.Equals(removed) {
		p.relations.FatherID = valueobjects.PersonID{}
		cleared = append(cleared, FieldFather)
	}
	if p.relations.MotherID.Equals(removed) {
		p.relations.MotherID = valueobjects.PersonID{}
		cleared = append(cleared, FieldMother)
	}
	if p.relations.SpouseID.Equals(removed) {
		p.relations.SpouseID = valueobjects.PersonID{}
		cleared = append(cleared, FieldSpouse)
	}

	if len(cleared) > 0 {
		p.touch()
		p.addEvent(events.NewReferencesCleared(p.id, removed, cleared, p.version, p.updatedAt))
	}
	return cleared
}

// References reports whether any relation points at other
func (p *Person) References(other valueobjects.PersonID) bool {
	if other.IsZero() {
		return false
	}
	return p.relations.FatherID.Equals(other) ||
		p.relations.MotherID.Equals(other) ||
		p.relations.SpouseID.Equals(other)
}

// MarkDeleted records the deletion event
func (p *Person) MarkDeleted() {
	p.addEvent(events.NewPersonDeleted(p.id, p.version, time.Now().UTC()))
}

// Clone returns a deep copy without pending events
func (p *Person) Clone() *Person {
	c := *p
	c.events = []events.DomainEvent{}
	return &c
}

// GetUncommittedEvents returns all uncommitted domain events
func (p *Person) GetUncommittedEvents() []events.DomainEvent {
	return p.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (p *Person) MarkEventsAsCommitted() {
	p.events = []events.DomainEvent{}
}

func (p *Person) addEvent(event events.DomainEvent) {
	p.events = append(p.events, event)
}

func (p *Person) touch() {
	p.updatedAt = time.Now().UTC()
	p.version++
}

func diffFields(oldP, newP Profile, oldR, newR Relations) []string {
	var changed []string
	check := func(name string, same bool) {
		if !same {
			changed = append(changed, name)
		}
	}
	check("fullName", oldP.FullName == newP.FullName)
	check("gender", oldP.Gender == newP.Gender)
	check("birthDate", oldP.BirthDate.Equals(newP.BirthDate))
	check("deathDate", oldP.DeathDate.Equals(newP.DeathDate))
	check("birthPlace", oldP.BirthPlace == newP.BirthPlace)
	check("occupation", oldP.Occupation == newP.Occupation)
	check("bio", oldP.Bio == newP.Bio)
	check("photoUrl", oldP.PhotoURL == newP.PhotoURL)
	check(FieldFather, oldR.FatherID.Equals(newR.FatherID))
	check(FieldMother, oldR.MotherID.Equals(newR.MotherID))
	check(FieldSpouse, oldR.SpouseID.Equals(newR.SpouseID))
	return changed
}
