// Package upgrades implements the storage layout and unsafe-operation checks
// that gate a proxy implementation swap.
package upgrades

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/orange-finance/odeploy/pkg/solc"
)

const gapLabel = "__gap"

var (
	astIDSuffix  = regexp.MustCompile(`\)\d+`)
	staticLength = regexp.MustCompile(`\)(\d+)_storage$`)
)

// Variable is a storage variable with its type reduced to a canonical form
// that ignores AST ids, contract names and enum identities.
type Variable struct {
	Label    string
	Contract string
	Slot     uint
	Offset   uint
	Bytes    uint
	Type     string
}

func (v Variable) start() uint { return v.Slot*32 + v.Offset }
func (v Variable) end() uint   { return v.start() + v.Bytes }

func (v Variable) isGap() bool {
	return v.Label == gapLabel || strings.HasSuffix(v.Label, gapLabel)
}

// Flatten turns a solc storage layout into an ordered variable list.
func Flatten(layout *solc.StorageLayout) []Variable {
	if layout == nil {
		return nil
	}
	vars := make([]Variable, 0, len(layout.Storage))
	for _, entry := range layout.Storage {
		vars = append(vars, Variable{
			Label:    entry.Label,
			Contract: entry.Contract,
			Slot:     entry.Slot,
			Offset:   entry.Offset,
			Bytes:    layout.Types[entry.Type].NumberOfBytes,
			Type:     CanonicalType(layout, entry.Type),
		})
	}
	return vars
}

// CanonicalType renders a storage type id so that two layouts compiled
// separately compare equal when their storage is interchangeable.
func CanonicalType(layout *solc.StorageLayout, id string) string {
	return canonical(layout, id, 0)
}

func canonical(layout *solc.StorageLayout, id string, depth int) string {
	if depth > 32 {
		return id
	}
	t, ok := layout.Types[id]
	if !ok {
		return astIDSuffix.ReplaceAllString(id, ")")
	}

	switch t.Encoding {
	case "mapping":
		return fmt.Sprintf("mapping(%s=>%s)", canonical(layout, t.Key, depth+1), canonical(layout, t.Value, depth+1))
	case "dynamic_array":
		return canonical(layout, t.Base, depth+1) + "[]"
	case "bytes":
		return t.Label
	}

	switch {
	case len(t.Members) > 0:
		members := make([]string, 0, len(t.Members))
		for _, m := range t.Members {
			members = append(members, fmt.Sprintf("%s:%s@%d.%d", m.Label, canonical(layout, m.Type, depth+1), m.Slot, m.Offset))
		}
		return "struct{" + strings.Join(members, ",") + "}"
	case t.Base != "":
		n := "?"
		if m := staticLength.FindStringSubmatch(id); m != nil {
			n = m[1]
		}
		return fmt.Sprintf("%s[%s]", canonical(layout, t.Base, depth+1), n)
	case strings.HasPrefix(t.Label, "contract "), strings.HasPrefix(t.Label, "address"):
		return "address"
	case strings.HasPrefix(t.Label, "enum "):
		return "uint" + strconv.Itoa(int(t.NumberOfBytes)*8)
	}
	return t.Label
}

// ProblemKind classifies a storage incompatibility.
type ProblemKind string

const (
	ProblemDeleted     ProblemKind = "deleted"
	ProblemInserted    ProblemKind = "inserted"
	ProblemRenamed     ProblemKind = "renamed"
	ProblemTypeChanged ProblemKind = "typechange"
	ProblemMoved       ProblemKind = "layoutchange"
	ProblemGap         ProblemKind = "gap"
)

// Problem is a single incompatibility between two layouts.
type Problem struct {
	Kind     ProblemKind
	Label    string
	Original *Variable
	Updated  *Variable
}

func (p Problem) String() string {
	switch p.Kind {
	case ProblemDeleted:
		return fmt.Sprintf("variable %q (%s) was deleted", p.Label, p.Original.Type)
	case ProblemInserted:
		return fmt.Sprintf("variable %q was inserted before existing variable %q", p.Updated.Label, p.Label)
	case ProblemRenamed:
		return fmt.Sprintf("variable %q was renamed to %q", p.Original.Label, p.Updated.Label)
	case ProblemTypeChanged:
		return fmt.Sprintf("variable %q changed type from %s to %s", p.Label, p.Original.Type, p.Updated.Type)
	case ProblemMoved:
		return fmt.Sprintf("variable %q moved from slot %d offset %d to slot %d offset %d",
			p.Label, p.Original.Slot, p.Original.Offset, p.Updated.Slot, p.Updated.Offset)
	case ProblemGap:
		if p.Updated == nil {
			return fmt.Sprintf("storage gap %q was overrun by new variables", p.Label)
		}
		return fmt.Sprintf("storage gap %q must end at slot %d, ends at slot %d",
			p.Label, gapEndSlot(*p.Original), gapEndSlot(*p.Updated))
	}
	return string(p.Kind) + " " + p.Label
}

func gapEndSlot(v Variable) uint {
	return (v.end() + 31) / 32
}

// LayoutError is returned when the updated layout cannot replace the original.
type LayoutError struct {
	Problems []Problem
}

func (e *LayoutError) Error() string {
	lines := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		lines = append(lines, "  - "+p.String())
	}
	return fmt.Sprintf("storage layout is incompatible:\n%s", strings.Join(lines, "\n"))
}

// CompareLayouts checks that updated keeps every variable of original at the
// same position with the same type. New variables may be appended after the
// original layout or placed inside a storage gap that shrinks accordingly.
func CompareLayouts(original, updated *solc.StorageLayout) error {
	problems := compare(Flatten(original), Flatten(updated))
	if len(problems) == 0 {
		return nil
	}
	return &LayoutError{Problems: problems}
}

func compare(orig, upd []Variable) []Problem {
	var problems []Problem
	j := 0

	for i := 0; i < len(orig); i++ {
		o := orig[i]

		if o.isGap() {
			// Variables inserted into the gap must stay inside it and the
			// shrunk gap must end where the original one did.
			var newGap *Variable
			for j < len(upd) && upd[j].start() < o.end() {
				u := upd[j]
				j++
				if u.isGap() {
					newGap = &u
					break
				}
				if u.end() > o.end() {
					problems = append(problems, Problem{Kind: ProblemGap, Label: o.Label, Original: &o})
					break
				}
			}
			if newGap != nil && gapEndSlot(*newGap) != gapEndSlot(o) {
				problems = append(problems, Problem{Kind: ProblemGap, Label: o.Label, Original: &o, Updated: newGap})
			}
			continue
		}

		if j >= len(upd) {
			problems = append(problems, Problem{Kind: ProblemDeleted, Label: o.Label, Original: &o})
			continue
		}
		u := upd[j]

		if u.Label == o.Label {
			j++
			if u.Type != o.Type {
				problems = append(problems, Problem{Kind: ProblemTypeChanged, Label: o.Label, Original: &o, Updated: &u})
			} else if u.start() != o.start() {
				problems = append(problems, Problem{Kind: ProblemMoved, Label: o.Label, Original: &o, Updated: &u})
			}
			continue
		}

		if k := indexOfLabel(upd[j+1:], o.Label); k >= 0 {
			// Something was inserted ahead of o; report it and resync.
			problems = append(problems, Problem{Kind: ProblemInserted, Label: o.Label, Original: &o, Updated: &u})
			j = j + 1 + k
			i--
			continue
		}

		if indexOfLabel(orig[i+1:], u.Label) >= 0 {
			problems = append(problems, Problem{Kind: ProblemDeleted, Label: o.Label, Original: &o})
			continue
		}

		j++
		if u.Type == o.Type && u.start() == o.start() {
			problems = append(problems, Problem{Kind: ProblemRenamed, Label: o.Label, Original: &o, Updated: &u})
		} else {
			problems = append(problems, Problem{Kind: ProblemDeleted, Label: o.Label, Original: &o})
		}
	}

	return problems
}

func indexOfLabel(vars []Variable, label string) int {
	for i, v := range vars {
		if v.Label == label {
			return i
		}
	}
	return -1
}
