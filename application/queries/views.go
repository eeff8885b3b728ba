package queries

import (
	"encoding/json"

	"familytree/domain/core/entities"
	"familytree/domain/events"
	"familytree/domain/lineage"
	"familytree/pkg/utils"
)

// PersonView is the read model of a single person
type PersonView struct {
	ID          string  `json:"id"`
	FullName    string  `json:"fullName"`
	Gender      string  `json:"gender"`
	GenderLabel string  `json:"genderLabel"`
	BirthDate   *string `json:"birthDate,omitempty"`
	DeathDate   *string `json:"deathDate,omitempty"`
	BirthPlace  string  `json:"birthPlace,omitempty"`
	Occupation  string  `json:"occupation,omitempty"`
	Bio         string  `json:"bio,omitempty"`
	PhotoURL    string  `json:"photoUrl,omitempty"`
	FatherID    *string `json:"fatherId,omitempty"`
	MotherID    *string `json:"motherId,omitempty"`
	SpouseID    *string `json:"spouseId,omitempty"`
	Version     int     `json:"version"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// NewPersonView converts a person entity into its read model
func NewPersonView(p *entities.Person) PersonView {
	profile := p.Profile()
	view := PersonView{
		ID:          p.ID().String(),
		FullName:    profile.FullName,
		Gender:      profile.Gender.String(),
		GenderLabel: profile.Gender.Label(),
		BirthPlace:  profile.BirthPlace,
		Occupation:  profile.Occupation,
		Bio:         profile.Bio,
		PhotoURL:    profile.PhotoURL,
		FatherID:    p.FatherID().Ptr(),
		MotherID:    p.MotherID().Ptr(),
		SpouseID:    p.SpouseID().Ptr(),
		Version:     p.Version(),
		CreatedAt:   utils.FormatRFC3339(p.CreatedAt()),
		UpdatedAt:   utils.FormatRFC3339(p.UpdatedAt()),
	}
	if !profile.BirthDate.IsZero() {
		s := profile.BirthDate.String()
		view.BirthDate = &s
	}
	if !profile.DeathDate.IsZero() {
		s := profile.DeathDate.String()
		view.DeathDate = &s
	}
	return view
}

// PersonListResult is one page of persons
type PersonListResult struct {
	Persons []PersonView `json:"persons"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	HasMore bool         `json:"hasMore"`
}

// TreeNodeView is the serialisable form of a lineage tree node
type TreeNodeView struct {
	ID       string          `json:"id"`
	Member   PersonView      `json:"member"`
	Spouse   *PersonView     `json:"spouse,omitempty"`
	Children []*TreeNodeView `json:"children"`
	Level    int             `json:"level"`
}

// NewTreeNodeView converts a node and its descendants
func NewTreeNodeView(n *lineage.TreeNode) *TreeNodeView {
	view := &TreeNodeView{
		ID:       n.Subject.ID().String(),
		Member:   NewPersonView(n.Subject),
		Children: make([]*TreeNodeView, 0, len(n.Children)),
		Level:    n.Depth,
	}
	if n.Spouse != nil {
		spouse := NewPersonView(n.Spouse)
		view.Spouse = &spouse
	}
	for _, c := range n.Children {
		view.Children = append(view.Children, NewTreeNodeView(c))
	}
	return view
}

// FamilyTreeResult is the response of GetFamilyTreeQuery
type FamilyTreeResult struct {
	Roots       []*TreeNodeView    `json:"roots"`
	Stats       lineage.BuildStats `json:"stats"`
	GeneratedAt string             `json:"generatedAt"`
}

// NewFamilyTreeResult converts the given roots; stats describe the whole build
func NewFamilyTreeResult(roots []*lineage.TreeNode, stats lineage.BuildStats, generatedAt string) *FamilyTreeResult {
	result := &FamilyTreeResult{
		Roots:       make([]*TreeNodeView, 0, len(roots)),
		Stats:       stats,
		GeneratedAt: generatedAt,
	}
	for _, r := range roots {
		result.Roots = append(result.Roots, NewTreeNodeView(r))
	}
	return result
}

// EventView is one entry of a person's history
type EventView struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Version   int             `json:"version"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// PersonHistoryResult lists a person's events newest first
type PersonHistoryResult struct {
	PersonID string      `json:"personId"`
	Events   []EventView `json:"events"`
}

// NewPersonHistoryResult converts stored event records
func NewPersonHistoryResult(personID string, records []events.Record) *PersonHistoryResult {
	result := &PersonHistoryResult{
		PersonID: personID,
		Events:   make([]EventView, 0, len(records)),
	}
	for _, r := range records {
		result.Events = append(result.Events, EventView{
			ID:        r.EventID,
			Type:      r.EventType,
			Version:   r.Version,
			Timestamp: utils.FormatRFC3339(r.Timestamp),
			Payload:   r.Payload,
		})
	}
	return result
}
