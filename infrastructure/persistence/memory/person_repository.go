// Package memory provides an in-process PersonRepository used by tests,
// local development and the CLI.
package memory

import (
	"context"
	"sort"
	"sync"

	"familytree/application/ports"
	"familytree/domain/core/entities"
	"familytree/domain/core/valueobjects"
	pkgerrors "familytree/pkg/errors"
)

// PersonRepository keeps persons in a map guarded by a RWMutex.
// Stored values are clones, so callers never share state with the store.
type PersonRepository struct {
	mu      sync.RWMutex
	persons map[string]*entities.Person
}

// NewPersonRepository creates an empty repository, optionally seeded
func NewPersonRepository(seed ...*entities.Person) *PersonRepository {
	r := &PersonRepository{persons: make(map[string]*entities.Person, len(seed))}
	for _, p := range seed {
		if p != nil {
			r.persons[p.ID().String()] = p.Clone()
		}
	}
	return r
}

var _ ports.PersonRepository = (*PersonRepository)(nil)

func (r *PersonRepository) Create(ctx context.Context, person *entities.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := person.ID().String()
	if _, exists := r.persons[key]; exists {
		return pkgerrors.ErrDuplicatePerson(key)
	}
	r.persons[key] = person.Clone()
	return nil
}

func (r *PersonRepository) Save(ctx context.Context, person *entities.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := person.ID().String()
	if existing, ok := r.persons[key]; ok && existing.Version() > person.Version() {
		return pkgerrors.ErrConcurrentModification(key)
	}
	r.persons[key] = person.Clone()
	return nil
}

func (r *PersonRepository) GetByID(ctx context.Context, id valueobjects.PersonID) (*entities.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.persons[id.String()]
	if !ok {
		return nil, pkgerrors.ErrPersonNotFound(id.String())
	}
	return p.Clone(), nil
}

func (r *PersonRepository) GetByIDs(ctx context.Context, ids []valueobjects.PersonID) (map[string]*entities.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*entities.Person, len(ids))
	for _, id := range ids {
		if p, ok := r.persons[id.String()]; ok {
			out[id.String()] = p.Clone()
		}
	}
	return out, nil
}

func (r *PersonRepository) List(ctx context.Context, opts ports.ListOptions) ([]*entities.Person, int, error) {
	all := r.sorted()
	// newest first
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	total := len(all)

	start := opts.Offset
	if start > total {
		start = total
	}
	end := total
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	return all[start:end], total, nil
}

func (r *PersonRepository) FindReferencing(ctx context.Context, id valueobjects.PersonID) ([]*entities.Person, error) {
	var out []*entities.Person
	for _, p := range r.sorted() {
		if p.References(id) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PersonRepository) Delete(ctx context.Context, id valueobjects.PersonID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.persons[id.String()]; !ok {
		return pkgerrors.ErrPersonNotFound(id.String())
	}
	delete(r.persons, id.String())
	return nil
}

func (r *PersonRepository) Snapshot(ctx context.Context) ([]*entities.Person, error) {
	return r.sorted(), nil
}

// Len reports the number of stored persons
func (r *PersonRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.persons)
}

// sorted returns clones in creation order, ties broken by ID
func (r *PersonRepository) sorted() []*entities.Person {
	r.mu.RLock()
	out := make([]*entities.Person, 0, len(r.persons))
	for _, p := range r.persons {
		out = append(out, p.Clone())
	}
	r.mu.RUnlock()

	SortByCreation(out)
	return out
}

// SortByCreation orders persons oldest first, ties broken by ID
func SortByCreation(people []*entities.Person) {
	sort.SliceStable(people, func(i, j int) bool {
		a, b := people[i], people[j]
		if !a.CreatedAt().Equal(b.CreatedAt()) {
			return a.CreatedAt().Before(b.CreatedAt())
		}
		return a.ID().String() < b.ID().String()
	})
}
