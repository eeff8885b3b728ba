package lineage

import (
	"sort"

	"familytree/domain/core/entities"
)

// orderByBirth returns people sorted ascending by birth date.
// Undated records are incomparable: they stay in their original slots and
// only the dated records are rearranged among the slots they occupy.
func orderByBirth(people []*entities.Person) []*entities.Person {
	out := make([]*entities.Person, len(people))
	copy(out, people)

	var slots []int
	var dated []*entities.Person
	for i, p := range out {
		if !p.BirthDate().IsZero() {
			slots = append(slots, i)
			dated = append(dated, p)
		}
	}

	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].BirthDate().Before(dated[j].BirthDate())
	})

	for k, slot := range slots {
		out[slot] = dated[k]
	}
	return out
}

// dedupe keeps the first occurrence of each key
func dedupe(people []*entities.Person) []*entities.Person {
	seen := make(map[string]struct{}, len(people))
	out := make([]*entities.Person, 0, len(people))
	for _, p := range people {
		key := p.ID().String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
