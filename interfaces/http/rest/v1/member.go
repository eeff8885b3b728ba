package v1

import (
	"strings"

	"familytree/application/commands"
	"familytree/application/queries"
)

// Member is the family member record as served at /api/family-members.
// Field names are kept for clients written against that surface.
type Member struct {
	ID           string  `json:"_id"`
	NamaLengkap  string  `json:"namaLengkap"`
	JenisKelamin string  `json:"jenisKelamin"`
	TanggalLahir *string `json:"tanggalLahir"`
	TanggalWafat *string `json:"tanggalWafat"`
	TempatLahir  string  `json:"tempatLahir"`
	Pekerjaan    string  `json:"pekerjaan"`
	Bio          string  `json:"bio"`
	FotoProfil   string  `json:"fotoProfil"`
	IDAyah       *string `json:"idAyah"`
	IDIbu        *string `json:"idIbu"`
	IDPasangan   *string `json:"idPasangan"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

// MemberRequest is the body of create and update requests. Unknown fields
// such as _id or timestamps are ignored.
type MemberRequest struct {
	NamaLengkap  string  `json:"namaLengkap"`
	JenisKelamin string  `json:"jenisKelamin"`
	TanggalLahir *string `json:"tanggalLahir"`
	TanggalWafat *string `json:"tanggalWafat"`
	TempatLahir  string  `json:"tempatLahir"`
	Pekerjaan    string  `json:"pekerjaan"`
	Bio          string  `json:"bio"`
	FotoProfil   string  `json:"fotoProfil"`
	IDAyah       *string `json:"idAyah"`
	IDIbu        *string `json:"idIbu"`
	IDPasangan   *string `json:"idPasangan"`
}

// complete reports whether the two mandatory fields are present
func (m MemberRequest) complete() bool {
	return strings.TrimSpace(m.NamaLengkap) != "" && strings.TrimSpace(m.JenisKelamin) != ""
}

func (m MemberRequest) fields() commands.PersonFields {
	return commands.PersonFields{
		FullName:   strings.TrimSpace(m.NamaLengkap),
		Gender:     m.JenisKelamin,
		BirthDate:  deref(m.TanggalLahir),
		DeathDate:  deref(m.TanggalWafat),
		BirthPlace: strings.TrimSpace(m.TempatLahir),
		Occupation: strings.TrimSpace(m.Pekerjaan),
		Bio:        strings.TrimSpace(m.Bio),
		PhotoURL:   m.FotoProfil,
		FatherID:   m.IDAyah,
		MotherID:   m.IDIbu,
		SpouseID:   m.IDPasangan,
	}
}

// newMember converts the read model. Dates are served as midnight UTC timestamps.
func newMember(p queries.PersonView) Member {
	return Member{
		ID:           p.ID,
		NamaLengkap:  p.FullName,
		JenisKelamin: p.GenderLabel,
		TanggalLahir: timestamp(p.BirthDate),
		TanggalWafat: timestamp(p.DeathDate),
		TempatLahir:  p.BirthPlace,
		Pekerjaan:    p.Occupation,
		Bio:          p.Bio,
		FotoProfil:   p.PhotoURL,
		IDAyah:       p.FatherID,
		IDIbu:        p.MotherID,
		IDPasangan:   p.SpouseID,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timestamp(date *string) *string {
	if date == nil {
		return nil
	}
	ts := *date + "T00:00:00.000Z"
	return &ts
}
