package lineage

import (
	"sort"

	"familytree/domain/core/entities"
	"familytree/domain/core/valueobjects"
)

// SpouseLedger is the set of person keys already attached as a spouse.
// The zero value is an empty ledger. Merge returns a new ledger and leaves
// both operands untouched.
type SpouseLedger struct {
	keys map[string]struct{}
}

// NewSpouseLedger returns a ledger holding the given keys
func NewSpouseLedger(keys ...string) SpouseLedger {
	l := SpouseLedger{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		l.keys[k] = struct{}{}
	}
	return l
}

// Contains reports whether id has been attached as a spouse
func (l SpouseLedger) Contains(id valueobjects.PersonID) bool {
	_, ok := l.keys[id.String()]
	return ok
}

// Len returns the number of recorded keys
func (l SpouseLedger) Len() int {
	return len(l.keys)
}

// Keys returns the recorded keys in sorted order
func (l SpouseLedger) Keys() []string {
	out := make([]string, 0, len(l.keys))
	for k := range l.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Merge returns the union of l and other
func (l SpouseLedger) Merge(other SpouseLedger) SpouseLedger {
	merged := SpouseLedger{keys: make(map[string]struct{}, len(l.keys)+len(other.keys))}
	for k := range l.keys {
		merged.keys[k] = struct{}{}
	}
	for k := range other.keys {
		merged.keys[k] = struct{}{}
	}
	return merged
}

func (l *SpouseLedger) add(id valueobjects.PersonID) {
	if l.keys == nil {
		l.keys = make(map[string]struct{})
	}
	l.keys[id.String()] = struct{}{}
}

// ResolveSpouse returns the spouse displayed next to p, or nil.
//
// A link held by the male partner takes precedence:
//   - male subject: his own spouse reference when it resolves in the set,
//     otherwise the first female (input order) whose spouse reference is him;
//   - female subject: the first male (input order) whose spouse reference is
//     her, otherwise her own spouse reference when it resolves to a male.
//
// Self references never resolve.
func (b *Builder) ResolveSpouse(p *entities.Person) *entities.Person {
	if p == nil {
		return nil
	}
	key := p.ID().String()

	switch {
	case p.IsMale():
		if s := b.lookup(p.SpouseID()); s != nil && !s.ID().Equals(p.ID()) {
			return s
		}
		return b.femaleClaimant[key]
	case p.IsFemale():
		if s := b.maleClaimant[key]; s != nil {
			return s
		}
		if s := b.lookup(p.SpouseID()); s != nil && s.IsMale() && !s.ID().Equals(p.ID()) {
			return s
		}
	}
	return nil
}
