package fixtures

import (
	"time"

	"familytree/domain/core/entities"
	"familytree/domain/core/valueobjects"
)

// PersonBuilder helps create test persons with default values
type PersonBuilder struct {
	id        valueobjects.PersonID
	profile   entities.Profile
	relations entities.Relations
	createdAt time.Time
}

func NewPersonBuilder() *PersonBuilder {
	return &PersonBuilder{
		id: valueobjects.NewPersonID(),
		profile: entities.Profile{
			FullName: "Test Person",
			Gender:   valueobjects.GenderMale,
		},
		createdAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Male is shorthand for a male person with the given key
func Male(id string) *PersonBuilder {
	return NewPersonBuilder().WithID(id).WithName(id).WithGender(valueobjects.GenderMale)
}

// Female is shorthand for a female person with the given key
func Female(id string) *PersonBuilder {
	return NewPersonBuilder().WithID(id).WithName(id).WithGender(valueobjects.GenderFemale)
}

func (b *PersonBuilder) WithID(id string) *PersonBuilder {
	b.id = valueobjects.MustPersonID(id)
	return b
}

func (b *PersonBuilder) WithName(name string) *PersonBuilder {
	b.profile.FullName = name
	return b
}

func (b *PersonBuilder) WithGender(g valueobjects.Gender) *PersonBuilder {
	b.profile.Gender = g
	return b
}

// BornOn sets the birth date from a YYYY-MM-DD literal
func (b *PersonBuilder) BornOn(date string) *PersonBuilder {
	b.profile.BirthDate = valueobjects.MustDate(date)
	return b
}

func (b *PersonBuilder) DiedOn(date string) *PersonBuilder {
	b.profile.DeathDate = valueobjects.MustDate(date)
	return b
}

func (b *PersonBuilder) WithOccupation(occupation string) *PersonBuilder {
	b.profile.Occupation = occupation
	return b
}

func (b *PersonBuilder) WithFather(id string) *PersonBuilder {
	b.relations.FatherID = valueobjects.MustPersonID(id)
	return b
}

func (b *PersonBuilder) WithMother(id string) *PersonBuilder {
	b.relations.MotherID = valueobjects.MustPersonID(id)
	return b
}

func (b *PersonBuilder) WithSpouse(id string) *PersonBuilder {
	b.relations.SpouseID = valueobjects.MustPersonID(id)
	return b
}

func (b *PersonBuilder) CreatedAt(t time.Time) *PersonBuilder {
	b.createdAt = t
	return b
}

// Build reconstructs the person as if loaded from storage, so relation
// rules such as self references are not enforced.
func (b *PersonBuilder) Build() (*entities.Person, error) {
	return entities.ReconstructPerson(b.id, b.profile, b.relations, b.createdAt, b.createdAt, 1)
}

func (b *PersonBuilder) MustBuild() *entities.Person {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}

// People builds every builder in order
func People(builders ...*PersonBuilder) []*entities.Person {
	out := make([]*entities.Person, len(builders))
	for i, b := range builders {
		out[i] = b.MustBuild()
	}
	return out
}
