package queries

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// RenderText writes the forest as an indented outline, one member per line.
// Spouses share their partner's line; children are indented one step deeper.
func RenderText(w io.Writer, result *FamilyTreeResult) error {
	bw := bufio.NewWriter(w)
	if result == nil || len(result.Roots) == 0 {
		if _, err := bw.WriteString("(empty)\n"); err != nil {
			return err
		}
		return bw.Flush()
	}

	for i, root := range result.Roots {
		if i > 0 {
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
		if err := renderNode(bw, root, 0); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func renderNode(w *bufio.Writer, node *TreeNodeView, indent int) error {
	line := strings.Repeat("  ", indent) + describe(node.Member)
	if node.Spouse != nil {
		line += " + " + describe(*node.Spouse)
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, child := range node.Children {
		if err := renderNode(w, child, indent+1); err != nil {
			return err
		}
	}
	return nil
}

func describe(p PersonView) string {
	var b strings.Builder
	b.WriteString(p.FullName)
	b.WriteString(" (")
	b.WriteString(p.GenderLabel)
	if p.BirthDate != nil || p.DeathDate != nil {
		b.WriteString(", ")
		if p.BirthDate != nil {
			b.WriteString(year(*p.BirthDate))
		}
		b.WriteString("-")
		if p.DeathDate != nil {
			b.WriteString(year(*p.DeathDate))
		}
	}
	b.WriteString(")")
	return b.String()
}

func year(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return date
}
