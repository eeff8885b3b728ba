package commands

import (
	"familytree/domain/core/entities"
	"familytree/domain/core/valueobjects"
	"familytree/pkg/utils"
)

// PersonFields is the editable part of a person record shared by create and update
type PersonFields struct {
	FullName   string  `json:"fullName" validate:"required,max=200"`
	Gender     string  `json:"gender" validate:"required,gender"`
	BirthDate  string  `json:"birthDate" validate:"omitempty,isodate"`
	DeathDate  string  `json:"deathDate" validate:"omitempty,isodate"`
	BirthPlace string  `json:"birthPlace" validate:"max=255"`
	Occupation string  `json:"occupation" validate:"max=255"`
	Bio        string  `json:"bio" validate:"max=5000"`
	PhotoURL   string  `json:"photoUrl" validate:"omitempty,url"`
	FatherID   *string `json:"fatherId"`
	MotherID   *string `json:"motherId"`
	SpouseID   *string `json:"spouseId"`
}

// Profile converts the fields into the domain profile.
// Callers validate first; unparsable values become zero values.
func (f PersonFields) Profile() entities.Profile {
	gender, _ := valueobjects.ParseGender(f.Gender)
	birth, _ := valueobjects.ParseDate(f.BirthDate)
	death, _ := valueobjects.ParseDate(f.DeathDate)
	return entities.Profile{
		FullName:   f.FullName,
		Gender:     gender,
		BirthDate:  birth,
		DeathDate:  death,
		BirthPlace: f.BirthPlace,
		Occupation: f.Occupation,
		Bio:        f.Bio,
		PhotoURL:   f.PhotoURL,
	}
}

// Relations converts the optional references. Blank strings count as unset.
func (f PersonFields) Relations() entities.Relations {
	return entities.Relations{
		FatherID: valueobjects.OptionalPersonID(f.FatherID),
		MotherID: valueobjects.OptionalPersonID(f.MotherID),
		SpouseID: valueobjects.OptionalPersonID(f.SpouseID),
	}
}

// CreatePersonCommand represents the command to record a new person
type CreatePersonCommand struct {
	PersonID string `json:"personId" validate:"required"`
	PersonFields
}

// Validate validates the command
func (c CreatePersonCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// UpdatePersonCommand replaces every editable field of an existing person
type UpdatePersonCommand struct {
	PersonID string `json:"personId" validate:"required"`
	PersonFields
}

// Validate validates the command
func (c UpdatePersonCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// DeletePersonCommand removes a person and every reference to it
type DeletePersonCommand struct {
	PersonID string `json:"personId" validate:"required"`
}

// Validate validates the command
func (c DeletePersonCommand) Validate() error {
	return utils.ValidateStruct(c)
}
