// Package lineage turns a flat snapshot of person records into a forest of
// patrilineal trees. It performs no I/O and never mutates its input.
package lineage

import "familytree/domain/core/entities"

// TreeNode is one position in a lineage tree.
// Spouse is attached for display only and is never expanded.
type TreeNode struct {
	Subject  *entities.Person
	Spouse   *entities.Person
	Children []*TreeNode
	Depth    int
}

// IsLeaf reports whether the node has no charted descendants
func (n *TreeNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// BuildStats summarises a single build
type BuildStats struct {
	Persons             int `json:"persons"`
	RootCandidates      int `json:"rootCandidates"`
	SuppressedRoots     int `json:"suppressedRoots"`
	CycleTruncations    int `json:"cycleTruncations"`
	DroppedSpouseClaims int `json:"droppedSpouseClaims"`
	MaxDepth            int `json:"maxDepth"`
	NodeCount           int `json:"nodeCount"`
}

// Forest is the ordered set of lineage roots produced by one build
type Forest struct {
	Roots []*TreeNode
	Stats BuildStats
}

// IsEmpty reports whether the forest has no roots
func (f *Forest) IsEmpty() bool {
	return len(f.Roots) == 0
}

// Walk visits every node depth-first in display order.
// Returning false from fn stops the walk.
func (f *Forest) Walk(fn func(*TreeNode) bool) {
	var visit func(*TreeNode) bool
	visit = func(n *TreeNode) bool {
		if !fn(n) {
			return false
		}
		for _, c := range n.Children {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	for _, r := range f.Roots {
		if !visit(r) {
			return
		}
	}
}

// Find returns the node whose subject has the given key, or nil
func (f *Forest) Find(id string) *TreeNode {
	var found *TreeNode
	f.Walk(func(n *TreeNode) bool {
		if n.Subject.ID().String() == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Build constructs the lineage forest for people.
func Build(people []*entities.Person) *Forest {
	return NewBuilder(people).Forest()
}
