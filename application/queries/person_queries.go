package queries

import "familytree/pkg/utils"

// GetPersonQuery represents a query to get a single person
type GetPersonQuery struct {
	PersonID string `json:"personId" validate:"required"`
}

// Validate validates the GetPersonQuery
func (q GetPersonQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListPersonsQuery lists persons newest first. A zero Limit returns every person.
type ListPersonsQuery struct {
	Limit  int `json:"limit" validate:"min=0,max=10000"`
	Offset int `json:"offset" validate:"min=0"`
}

// Validate validates the ListPersonsQuery
func (q ListPersonsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetFamilyTreeQuery builds the lineage forest over every stored person.
// When RootID is set only the subtree of that charted person is returned.
type GetFamilyTreeQuery struct {
	RootID string `json:"rootId"`
}

// Validate validates the GetFamilyTreeQuery
func (q GetFamilyTreeQuery) Validate() error {
	return nil
}

// CacheKey implements bus.Cacheable
func (q GetFamilyTreeQuery) CacheKey() string {
	return "tree:" + q.RootID
}

// GetPersonHistoryQuery returns the recorded events of a person, newest first.
// History outlives the person, so deleted keys are accepted.
type GetPersonHistoryQuery struct {
	PersonID string `json:"personId" validate:"required"`
	Limit    int    `json:"limit" validate:"min=0,max=500"`
}

// Validate validates the GetPersonHistoryQuery
func (q GetPersonHistoryQuery) Validate() error {
	return utils.ValidateStruct(q)
}
