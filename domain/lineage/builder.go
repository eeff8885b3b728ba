package lineage

import (
	"familytree/domain/core/entities"
	"familytree/domain/core/valueobjects"
)

// Builder indexes a snapshot of person records. It is read-only after
// construction, so one Builder may serve concurrent Forest calls.
type Builder struct {
	people []*entities.Person
	byID   map[string]*entities.Person

	// children keyed by father reference, in input order
	childrenOf map[string][]*entities.Person

	// first person of each gender (input order) whose spouse reference is the key
	maleClaimant   map[string]*entities.Person
	femaleClaimant map[string]*entities.Person
}

// NewBuilder indexes people. Nil entries are skipped; for duplicate keys
// the first record wins.
func NewBuilder(people []*entities.Person) *Builder {
	b := &Builder{
		people:         make([]*entities.Person, 0, len(people)),
		byID:           make(map[string]*entities.Person, len(people)),
		childrenOf:     make(map[string][]*entities.Person),
		maleClaimant:   make(map[string]*entities.Person),
		femaleClaimant: make(map[string]*entities.Person),
	}

	for _, p := range people {
		if p == nil {
			continue
		}
		b.people = append(b.people, p)

		key := p.ID().String()
		if _, exists := b.byID[key]; !exists {
			b.byID[key] = p
		}

		if father := p.FatherID(); !father.IsZero() {
			b.childrenOf[father.String()] = append(b.childrenOf[father.String()], p)
		}

		spouse := p.SpouseID()
		if spouse.IsZero() || spouse.Equals(p.ID()) {
			continue
		}
		claimants := b.femaleClaimant
		if p.IsMale() {
			claimants = b.maleClaimant
		} else if !p.IsFemale() {
			continue
		}
		if _, taken := claimants[spouse.String()]; !taken {
			claimants[spouse.String()] = p
		}
	}

	return b
}

func (b *Builder) lookup(id valueobjects.PersonID) *entities.Person {
	if id.IsZero() {
		return nil
	}
	return b.byID[id.String()]
}

// RootCandidates returns the males with no resolvable father, ordered by
// birth date. A father reference that is dangling or points at the person
// itself counts as no father.
func (b *Builder) RootCandidates() []*entities.Person {
	var roots []*entities.Person
	for _, p := range b.people {
		if !p.IsMale() {
			continue
		}
		father := p.FatherID()
		if father.IsZero() || father.Equals(p.ID()) || b.lookup(father) == nil {
			roots = append(roots, p)
		}
	}
	return orderByBirth(dedupe(roots))
}

// Children returns the children charted under p, deduplicated and ordered by
// birth date. Children are always gathered through father references: a
// male contributes his own, a female those of her resolved husband.
func (b *Builder) Children(p *entities.Person) []*entities.Person {
	if p == nil {
		return nil
	}

	father := p
	if !p.IsMale() {
		if !p.IsFemale() {
			return nil
		}
		father = b.ResolveSpouse(p)
		if father == nil || !father.IsMale() {
			return nil
		}
	}

	return orderByBirth(dedupe(b.childrenOf[father.ID().String()]))
}

// Forest builds every lineage. Root candidates are evaluated in order; a
// candidate already attached as someone's spouse is not expanded, and the
// spouses attached by each root are merged into the ledger before the next
// candidate is considered.
func (b *Builder) Forest() *Forest {
	forest := &Forest{Roots: []*TreeNode{}}
	forest.Stats.Persons = len(b.byID)

	candidates := b.RootCandidates()
	forest.Stats.RootCandidates = len(candidates)

	ledger := NewSpouseLedger()
	for _, root := range candidates {
		if ledger.Contains(root.ID()) {
			forest.Stats.SuppressedRoots++
			continue
		}

		node, claimed := b.buildRoot(root, ledger, &forest.Stats)
		ledger = ledger.Merge(claimed)
		if node != nil {
			forest.Roots = append(forest.Roots, node)
		}
	}

	return forest
}

// buildRoot expands one lineage and returns the spouse keys it attached.
func (b *Builder) buildRoot(root *entities.Person, prior SpouseLedger, stats *BuildStats) (*TreeNode, SpouseLedger) {
	w := &lineageWalk{
		builder: b,
		prior:   prior,
		claimed: NewSpouseLedger(),
		stats:   stats,
	}
	node := w.expand(root, 0, nil)
	return node, w.claimed
}

// lineageWalk carries the state of a single root expansion.
type lineageWalk struct {
	builder *Builder
	prior   SpouseLedger
	claimed SpouseLedger
	stats   *BuildStats
}

func (w *lineageWalk) expand(p *entities.Person, depth int, path *visitedPath) *TreeNode {
	if path.contains(p.ID().String()) {
		w.stats.CycleTruncations++
		return nil
	}
	path = path.extend(p.ID().String())

	node := w.newNode(p, depth)
	for _, child := range w.builder.Children(p) {
		if path.contains(child.ID().String()) {
			w.stats.CycleTruncations++
			continue
		}

		if child.IsMale() {
			if c := w.expand(child, depth+1, path); c != nil {
				node.Children = append(node.Children, c)
			}
			continue
		}
		node.Children = append(node.Children, w.newNode(child, depth+1))
	}
	return node
}

func (w *lineageWalk) newNode(p *entities.Person, depth int) *TreeNode {
	w.stats.NodeCount++
	if depth > w.stats.MaxDepth {
		w.stats.MaxDepth = depth
	}
	return &TreeNode{
		Subject:  p,
		Spouse:   w.attachSpouse(p),
		Children: []*TreeNode{},
		Depth:    depth,
	}
}

// attachSpouse resolves p's spouse and claims it. A person is attached as a
// spouse at most once per forest; later claims are dropped.
func (w *lineageWalk) attachSpouse(p *entities.Person) *entities.Person {
	s := w.builder.ResolveSpouse(p)
	if s == nil {
		return nil
	}
	if w.prior.Contains(s.ID()) || w.claimed.Contains(s.ID()) {
		w.stats.DroppedSpouseClaims++
		return nil
	}
	w.claimed.add(s.ID())
	return s
}
