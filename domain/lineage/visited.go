package lineage

// visitedPath is the chain of subjects from the root down to the current
// node. Extending it allocates a new link, so sibling branches never see
// each other's descendants.
type visitedPath struct {
	id     string
	parent *visitedPath
	depth  int
}

func (p *visitedPath) contains(id string) bool {
	for n := p; n != nil; n = n.parent {
		if n.id == id {
			return true
		}
	}
	return false
}

func (p *visitedPath) extend(id string) *visitedPath {
	return &visitedPath{id: id, parent: p, depth: p.len() + 1}
}

func (p *visitedPath) len() int {
	if p == nil {
		return 0
	}
	return p.depth
}
