package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"familytree/domain/core/entities"
	"familytree/domain/core/valueobjects"
	"familytree/domain/lineage"
	pkgerrors "familytree/pkg/errors"
	"familytree/pkg/utils"
)

// record is one person in a snapshot file. Both the API field names and
// the member API names (_id, namaLengkap, ...) are understood.
type record struct {
	ID         string  `json:"id"`
	FullName   string  `json:"fullName"`
	Gender     string  `json:"gender"`
	BirthDate  string  `json:"birthDate"`
	DeathDate  string  `json:"deathDate"`
	BirthPlace string  `json:"birthPlace"`
	Occupation string  `json:"occupation"`
	FatherID   *string `json:"fatherId"`
	MotherID   *string `json:"motherId"`
	SpouseID   *string `json:"spouseId"`
	CreatedAt  string  `json:"createdAt"`

	LegacyID     string  `json:"_id"`
	NamaLengkap  string  `json:"namaLengkap"`
	JenisKelamin string  `json:"jenisKelamin"`
	TanggalLahir *string `json:"tanggalLahir"`
	TanggalWafat *string `json:"tanggalWafat"`
	TempatLahir  string  `json:"tempatLahir"`
	Pekerjaan    string  `json:"pekerjaan"`
	IDAyah       *string `json:"idAyah"`
	IDIbu        *string `json:"idIbu"`
	IDPasangan   *string `json:"idPasangan"`
}

func (r record) normalize() record {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	pickRef := func(a, b *string) *string {
		if a != nil {
			return a
		}
		return b
	}
	r.ID = pick(r.ID, r.LegacyID)
	r.FullName = pick(r.FullName, r.NamaLengkap)
	r.Gender = pick(r.Gender, r.JenisKelamin)
	if r.TanggalLahir != nil {
		r.BirthDate = pick(r.BirthDate, *r.TanggalLahir)
	}
	if r.TanggalWafat != nil {
		r.DeathDate = pick(r.DeathDate, *r.TanggalWafat)
	}
	r.BirthPlace = pick(r.BirthPlace, r.TempatLahir)
	r.Occupation = pick(r.Occupation, r.Pekerjaan)
	r.FatherID = pickRef(r.FatherID, r.IDAyah)
	r.MotherID = pickRef(r.MotherID, r.IDIbu)
	r.SpouseID = pickRef(r.SpouseID, r.IDPasangan)
	return r
}

func (r record) person() (*entities.Person, error) {
	id, err := valueobjects.NewPersonIDFromString(r.ID)
	if err != nil {
		return nil, err
	}
	gender, err := valueobjects.ParseGender(r.Gender)
	if err != nil {
		return nil, err
	}
	birth, err := valueobjects.ParseDate(r.BirthDate)
	if err != nil {
		return nil, err
	}
	death, err := valueobjects.ParseDate(r.DeathDate)
	if err != nil {
		return nil, err
	}
	created, _ := utils.ParseRFC3339(r.CreatedAt)

	return entities.ReconstructPerson(id,
		entities.Profile{
			FullName:   r.FullName,
			Gender:     gender,
			BirthDate:  birth,
			DeathDate:  death,
			BirthPlace: r.BirthPlace,
			Occupation: r.Occupation,
		},
		entities.Relations{
			FatherID: valueobjects.OptionalPersonID(r.FatherID),
			MotherID: valueobjects.OptionalPersonID(r.MotherID),
			SpouseID: valueobjects.OptionalPersonID(r.SpouseID),
		},
		created, created, 1)
}

// readSnapshot decodes a JSON array of records. Records that cannot become
// persons are reported together with duplicate keys; the rest are returned.
func readSnapshot(r io.Reader) ([]*entities.Person, error) {
	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	defects := pkgerrors.NewValidationErrors()
	people := make([]*entities.Person, 0, len(records))
	for i, rec := range records {
		p, err := rec.normalize().person()
		if err != nil {
			defects.Add(fmt.Sprintf("people[%d]", i), err.Error())
			continue
		}
		people = append(people, p)
	}

	if err := lineage.CheckSnapshot(people); err != nil {
		var verrs *pkgerrors.ValidationErrors
		if errors.As(err, &verrs) {
			defects.Errors = append(defects.Errors, verrs.Errors...)
		}
	}
	return people, defects.ErrOrNil()
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
