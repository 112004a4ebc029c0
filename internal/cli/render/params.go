package render

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/samber/lo"
)

// ParamsRenderer renders the parameter sets of an environment
type ParamsRenderer struct {
	out  io.Writer
	root string
}

// NewParamsRenderer creates a new params renderer. Paths are shown relative
// to root.
func NewParamsRenderer(out io.Writer, root string) *ParamsRenderer {
	return &ParamsRenderer{out: out, root: root}
}

// Render renders sets, then the problems of every invalid one
func (r *ParamsRenderer) Render(sets []*models.ParameterSet) error {
	if len(sets) == 0 {
		fmt.Fprintln(r.out, "No parameter sets found")
		return nil
	}

	t := newTable(r.out, "  ")
	t.AppendHeader(table.Row{"KIND", "UNIT", "STATUS", "FILE"})
	for _, set := range sets {
		status := verifiedStyle.Sprint("✓ valid")
		if !set.Valid() {
			status = failedStyle.Sprint("✗ invalid")
		}
		t.AppendRow(table.Row{set.Kind, set.Unit, status, faintStyle.Sprint(r.relative(set.Path))})
	}
	t.Render()

	invalid := lo.Filter(sets, func(s *models.ParameterSet, _ int) bool { return !s.Valid() })
	for _, set := range invalid {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, FormatError(fmt.Sprintf("%s/%s", set.Kind, set.Unit)))
		if set.Err != nil {
			fmt.Fprintln(r.out, set.Err.Error())
		}
	}

	fmt.Fprintf(r.out, "\n%d parameter sets, %d invalid\n", len(sets), len(invalid))
	return nil
}

func (r *ParamsRenderer) relative(path string) string {
	if rel, err := filepath.Rel(r.root, path); err == nil {
		return rel
	}
	return path
}
