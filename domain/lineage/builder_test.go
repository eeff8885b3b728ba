package lineage

import (
	"fmt"
	"strings"
	"testing"

	"familytree/domain/core/entities"
	"familytree/tests/fixtures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	male   = fixtures.Male
	female = fixtures.Female
	people = fixtures.People
)

// shape renders a forest compactly: subject, optional "+spouse", and
// children in brackets. Roots are separated by " | ".
func shape(f *Forest) string {
	var render func(n *TreeNode) string
	render = func(n *TreeNode) string {
		s := n.Subject.ID().String()
		if n.Spouse != nil {
			s += "+" + n.Spouse.ID().String()
		}
		if len(n.Children) > 0 {
			parts := make([]string, len(n.Children))
			for i, c := range n.Children {
				parts[i] = render(c)
			}
			s += "[" + strings.Join(parts, " ") + "]"
		}
		return s
	}
	roots := make([]string, len(f.Roots))
	for i, r := range f.Roots {
		roots[i] = render(r)
	}
	return strings.Join(roots, " | ")
}

func ids(ps []*entities.Person) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID().String()
	}
	return out
}

func TestBuild_SpouseAndChild(t *testing.T) {
	forest := Build(people(
		male("A"),
		female("B").WithSpouse("A"),
		male("C").WithFather("A"),
	))

	require.Len(t, forest.Roots, 1)
	root := forest.Roots[0]
	assert.Equal(t, "A", root.Subject.ID().String())
	require.NotNil(t, root.Spouse)
	assert.Equal(t, "B", root.Spouse.ID().String())
	require.Len(t, root.Children, 1)
	assert.Equal(t, "C", root.Children[0].Subject.ID().String())
	assert.Equal(t, 1, root.Children[0].Depth)
	assert.Equal(t, "A+B[C]", shape(forest))
}

func TestBuild_DanglingFatherIsRoot(t *testing.T) {
	forest := Build(people(male("A").WithFather("Z")))

	assert.Equal(t, "A", shape(forest))
	assert.Equal(t, 0, forest.Roots[0].Depth)
}

func TestBuild_Empty(t *testing.T) {
	forest := Build(nil)
	require.NotNil(t, forest)
	assert.True(t, forest.IsEmpty())
	assert.NotNil(t, forest.Roots)

	forest = Build([]*entities.Person{})
	assert.True(t, forest.IsEmpty())
}

func TestBuild_MutualCycleYieldsEmptyForest(t *testing.T) {
	forest := Build(people(
		male("A").WithFather("B"),
		male("B").WithFather("A"),
	))

	assert.True(t, forest.IsEmpty())
	assert.Equal(t, 0, forest.Stats.RootCandidates)
}

func TestBuild_NoMaleRoot(t *testing.T) {
	forest := Build(people(
		female("W1"),
		female("W2").WithMother("W1"),
		male("S").WithFather("S2"),
		male("S2").WithFather("S"),
	))

	assert.True(t, forest.IsEmpty())
	assert.Equal(t, 4, forest.Stats.Persons)
}

func TestBuild_SelfFatherIsTruncated(t *testing.T) {
	forest := Build(people(male("A").WithFather("A")))

	assert.Equal(t, "A", shape(forest))
	assert.Equal(t, 1, forest.Stats.CycleTruncations)
}

func TestBuild_CycleHangingOffRoot(t *testing.T) {
	// B and C name each other as father; neither is a root and nothing
	// under R reaches them.
	forest := Build(people(
		male("R"),
		male("B").WithFather("C"),
		male("C").WithFather("B"),
		male("D").WithFather("R"),
	))

	assert.Equal(t, "R[D]", shape(forest))
}

func TestBuild_FemaleChildIsLeaf(t *testing.T) {
	forest := Build(people(
		male("A").BornOn("1900-01-01"),
		female("F").WithFather("A").BornOn("1925-01-01"),
		male("H").BornOn("1920-01-01").WithSpouse("F"),
		male("G").WithFather("H").BornOn("1950-01-01"),
	))

	// H is claimed as F's husband while A's lineage is built, so H is not
	// charted as a separate lineage and G is not shown.
	assert.Equal(t, "A[F+H]", shape(forest))
	assert.Equal(t, 1, forest.Stats.SuppressedRoots)

	f := forest.Find("F")
	require.NotNil(t, f)
	assert.True(t, f.IsLeaf())
	assert.Empty(t, f.Children)
}

func TestBuild_HusbandEvaluatedFirstKeepsLineage(t *testing.T) {
	forest := Build(people(
		male("H").BornOn("1880-01-01").WithSpouse("F"),
		male("A").BornOn("1900-01-01"),
		female("F").WithFather("A"),
		male("G").WithFather("H"),
	))

	// H's lineage is built first and keeps G. F is still charted as A's
	// daughter, with H attached as her husband.
	assert.Equal(t, "H+F[G] | A[F+H]", shape(forest))
	assert.Equal(t, 0, forest.Stats.SuppressedRoots)
}

func TestBuild_MaleSpouseSuppressedAsRoot(t *testing.T) {
	forest := Build(people(
		male("A").WithSpouse("B"),
		male("B"),
	))

	assert.Equal(t, "A+B", shape(forest))
	assert.Equal(t, 2, forest.Stats.RootCandidates)
	assert.Equal(t, 1, forest.Stats.SuppressedRoots)
}

func TestBuild_SpouseAttachedOnce(t *testing.T) {
	forest := Build(people(
		male("M1").BornOn("1900-01-01").WithSpouse("W"),
		male("M2").BornOn("1901-01-01").WithSpouse("W"),
		female("W"),
	))

	assert.Equal(t, "M1+W | M2", shape(forest))
	assert.Equal(t, 1, forest.Stats.DroppedSpouseClaims)
}

func TestBuild_RootOrdering(t *testing.T) {
	forest := Build(people(
		male("U1"),
		male("D3").BornOn("1930-01-01"),
		male("U2"),
		male("D1").BornOn("1910-01-01"),
		male("D2").BornOn("1920-01-01"),
		male("U3"),
	))

	// undated roots hold their input slots; dated roots are sorted among
	// the remaining slots
	assert.Equal(t, "U1 | D1 | U2 | D2 | D3 | U3", shape(forest))
}

func TestBuild_RootOrderingStableForEqualDates(t *testing.T) {
	forest := Build(people(
		male("B").BornOn("1900-01-01"),
		male("A").BornOn("1900-01-01"),
		male("C").BornOn("1899-12-31"),
	))

	assert.Equal(t, "C | B | A", shape(forest))
}

func TestBuild_ChildrenOrderedByBirth(t *testing.T) {
	forest := Build(people(
		male("P"),
		male("C3").WithFather("P").BornOn("1960-01-01"),
		female("C1").WithFather("P").BornOn("1950-01-01"),
		male("CU").WithFather("P"),
		male("C2").WithFather("P").BornOn("1955-06-01"),
	))

	assert.Equal(t, "P[C1 C2 CU C3]", shape(forest))
}

func TestBuild_DuplicateChildRecordChartedOnce(t *testing.T) {
	forest := Build(people(
		male("P"),
		male("C").WithFather("P"),
		male("C").WithFather("P"),
	))

	assert.Equal(t, "P[C]", shape(forest))
}

func TestBuild_ChildrenComeFromFatherLinksOnly(t *testing.T) {
	forest := Build(people(
		male("H").WithSpouse("W"),
		female("W"),
		male("S").WithMother("W"),
		male("T").WithFather("H").WithMother("W"),
	))

	// S names W as mother only; the patrilineal chart does not place him
	// under H, so S stands as his own lineage.
	assert.Equal(t, "H+W[T] | S", shape(forest))
}

func TestBuild_DeepLineageDepths(t *testing.T) {
	forest := Build(people(
		male("G0"),
		male("G1").WithFather("G0"),
		male("G2").WithFather("G1"),
		female("G3").WithFather("G2"),
	))

	assert.Equal(t, "G0[G1[G2[G3]]]", shape(forest))
	assert.Equal(t, 3, forest.Find("G3").Depth)
	assert.Equal(t, 3, forest.Stats.MaxDepth)
	assert.Equal(t, 4, forest.Stats.NodeCount)
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	input := people(
		male("C").WithFather("A").BornOn("1950-01-01"),
		male("A").BornOn("1920-01-01"),
		female("B").WithSpouse("A"),
		male("D").BornOn("1900-01-01"),
	)
	before := ids(input)
	relations := make([]entities.Relations, len(input))
	for i, p := range input {
		relations[i] = p.Relations()
	}

	Build(input)

	assert.Equal(t, before, ids(input))
	for i, p := range input {
		assert.Equal(t, relations[i], p.Relations())
	}
}

func TestBuild_Deterministic(t *testing.T) {
	input := people(
		male("A"),
		female("B").WithSpouse("A"),
		male("C").WithFather("A"),
		female("D").WithFather("A").WithSpouse("E"),
		male("E"),
		male("F").WithFather("E"),
	)

	first := Build(input)
	for i := 0; i < 10; i++ {
		again := Build(input)
		assert.Equal(t, shape(first), shape(again))
		assert.Equal(t, first.Stats, again.Stats)
	}
}

func TestBuilder_RootCandidates(t *testing.T) {
	b := NewBuilder(people(
		female("W"),
		male("A").BornOn("1950-01-01"),
		male("B").WithFather("A"),
		male("C").WithFather("missing").BornOn("1940-01-01"),
		male("S").WithFather("S"),
	))

	assert.Equal(t, []string{"C", "A", "S"}, ids(b.RootCandidates()))
}

func TestBuilder_Children(t *testing.T) {
	b := NewBuilder(people(
		male("H").WithSpouse("W"),
		female("W"),
		female("Lonely"),
		male("K2").WithFather("H").BornOn("1990-01-01"),
		female("K1").WithFather("H").BornOn("1980-01-01"),
		male("X").WithMother("W"),
	))

	byID := func(id string) *entities.Person { return b.byID[id] }

	assert.Equal(t, []string{"K1", "K2"}, ids(b.Children(byID("H"))))
	assert.Equal(t, []string{"K1", "K2"}, ids(b.Children(byID("W"))), "mother gathers through her husband")
	assert.Empty(t, b.Children(byID("Lonely")))
	assert.Empty(t, b.Children(nil))
}

func TestBuilder_ResolveSpouse(t *testing.T) {
	tests := []struct {
		name    string
		input   []*fixtures.PersonBuilder
		subject string
		want    string
	}{
		{
			name:    "male own reference",
			input:   []*fixtures.PersonBuilder{male("H").WithSpouse("W"), female("W")},
			subject: "H",
			want:    "W",
		},
		{
			name:    "male own reference beats female claimant",
			input:   []*fixtures.PersonBuilder{male("H").WithSpouse("W1"), female("W1"), female("W2").WithSpouse("H")},
			subject: "H",
			want:    "W1",
		},
		{
			name:    "male dangling reference falls back to female claimant",
			input:   []*fixtures.PersonBuilder{male("H").WithSpouse("ghost"), female("W").WithSpouse("H")},
			subject: "H",
			want:    "W",
		},
		{
			name:    "male tolerates male spouse",
			input:   []*fixtures.PersonBuilder{male("A").WithSpouse("B"), male("B")},
			subject: "A",
			want:    "B",
		},
		{
			name:    "female resolved by reverse scan",
			input:   []*fixtures.PersonBuilder{male("H").WithSpouse("W"), female("W")},
			subject: "W",
			want:    "H",
		},
		{
			name:    "female first male claimant in input order",
			input:   []*fixtures.PersonBuilder{female("W"), male("H2").WithSpouse("W"), male("H1").WithSpouse("W")},
			subject: "W",
			want:    "H2",
		},
		{
			name:    "male claimant beats female own reference",
			input:   []*fixtures.PersonBuilder{female("W").WithSpouse("H1"), male("H1"), male("H2").WithSpouse("W")},
			subject: "W",
			want:    "H2",
		},
		{
			name:    "female own reference when unclaimed",
			input:   []*fixtures.PersonBuilder{female("W").WithSpouse("H"), male("H")},
			subject: "W",
			want:    "H",
		},
		{
			name:    "female own reference to female ignored",
			input:   []*fixtures.PersonBuilder{female("W").WithSpouse("V"), female("V")},
			subject: "W",
			want:    "",
		},
		{
			name:    "self reference ignored",
			input:   []*fixtures.PersonBuilder{male("A").WithSpouse("A")},
			subject: "A",
			want:    "",
		},
		{
			name:    "no spouse",
			input:   []*fixtures.PersonBuilder{male("A")},
			subject: "A",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(people(tt.input...))
			got := b.ResolveSpouse(b.byID[tt.subject])
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ID().String())
		})
	}
}

func TestBuilder_ForestIsRepeatable(t *testing.T) {
	b := NewBuilder(people(
		male("A").WithSpouse("B"),
		female("B"),
		male("C").WithFather("A"),
	))

	first := b.Forest()
	second := b.Forest()

	assert.Equal(t, shape(first), shape(second))
	assert.NotSame(t, first.Roots[0], second.Roots[0])
}

func TestBuilder_NilEntriesSkipped(t *testing.T) {
	input := people(male("A"))
	input = append(input, nil)

	forest := Build(input)
	assert.Equal(t, "A", shape(forest))
	assert.Equal(t, 1, forest.Stats.Persons)
}

func TestForest_WalkStops(t *testing.T) {
	forest := Build(people(
		male("A"),
		male("B").WithFather("A"),
		male("C").WithFather("A"),
	))

	var seen []string
	forest.Walk(func(n *TreeNode) bool {
		seen = append(seen, n.Subject.ID().String())
		return len(seen) < 2
	})
	assert.Equal(t, []string{"A", "B"}, seen)
	assert.Nil(t, forest.Find("missing"))
}

func TestBuild_LargeChainTerminates(t *testing.T) {
	const n = 500
	builders := []*fixtures.PersonBuilder{male("p0")}
	for i := 1; i < n; i++ {
		builders = append(builders, male(fmt.Sprintf("p%d", i)).WithFather(fmt.Sprintf("p%d", i-1)))
	}

	forest := Build(people(builders...))
	require.Len(t, forest.Roots, 1)
	assert.Equal(t, n-1, forest.Stats.MaxDepth)
	assert.Equal(t, n, forest.Stats.NodeCount)
}
