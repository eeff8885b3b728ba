package queries

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderText(t *testing.T) {
	born := "1950-03-01"
	died := "2010-07-09"
	result := &FamilyTreeResult{
		Roots: []*TreeNodeView{
			{
				ID:     "budi",
				Member: PersonView{FullName: "Budi", GenderLabel: "Laki-laki", BirthDate: &born, DeathDate: &died},
				Spouse: &PersonView{FullName: "Siti", GenderLabel: "Perempuan"},
				Children: []*TreeNodeView{
					{ID: "andi", Member: PersonView{FullName: "Andi", GenderLabel: "Laki-laki"}, Level: 1},
					{ID: "rina", Member: PersonView{FullName: "Rina", GenderLabel: "Perempuan", BirthDate: &born}, Level: 1},
				},
			},
			{ID: "joko", Member: PersonView{FullName: "Joko", GenderLabel: "Laki-laki"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, result))

	want := "Budi (Laki-laki, 1950-2010) + Siti (Perempuan)\n" +
		"  Andi (Laki-laki)\n" +
		"  Rina (Perempuan, 1950-)\n" +
		"\n" +
		"Joko (Laki-laki)\n"
	assert.Equal(t, want, buf.String())
}

func TestRenderText_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, &FamilyTreeResult{}))
	assert.Equal(t, "(empty)\n", buf.String())
}
