package indicator

import (
	"errors"
	"fmt"
	"strings"
)

// Spec describes an indicator node to add to a Builder.
type Spec struct {
	Code            Code
	Name            string
	IsBBI           bool
	IsProfilingOnly bool
	Rule            ValidationRule
}

// Builder assembles a Tree. Errors accumulate and are reported by Build, so
// call chains stay flat.
type Builder struct {
	tree *Tree
	errs []error
}

// NewBuilder starts an empty tree for year.
func NewBuilder(year int) *Builder {
	return &Builder{tree: &Tree{
		year:     year,
		byCode:   make(map[Code]int),
		itemByID: make(map[string]int),
	}}
}

func (b *Builder) fail(format string, args ...any) *Builder {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
	return b
}

// Area adds a governance area root.
func (b *Builder) Area(code Code, name string) *Builder {
	if strings.Contains(string(code), ".") {
		return b.fail("area code %q must not be dotted", code)
	}
	return b.add(-1, Spec{Code: code, Name: name})
}

// Indicator adds spec under parent.
func (b *Builder) Indicator(parent Code, spec Spec) *Builder {
	pidx, ok := b.tree.byCode[parent]
	if !ok {
		return b.fail("indicator %q: unknown parent %q", spec.Code, parent)
	}
	if !strings.HasPrefix(string(spec.Code), string(parent)+".") {
		return b.fail("indicator %q: code must extend parent %q", spec.Code, parent)
	}
	return b.add(pidx, spec)
}

func (b *Builder) add(parent int, spec Spec) *Builder {
	if spec.Code == "" {
		return b.fail("indicator code is required")
	}
	if _, dup := b.tree.byCode[spec.Code]; dup {
		return b.fail("duplicate indicator code %q", spec.Code)
	}
	rule := spec.Rule
	if rule == "" {
		rule = RuleAllItemsRequired
	}
	if !rule.IsValid() {
		return b.fail("indicator %q: unknown validation rule %q", spec.Code, rule)
	}

	node := Indicator{
		Code:            spec.Code,
		Name:            spec.Name,
		Area:            spec.Code.Area(),
		IsBBI:           spec.IsBBI,
		IsProfilingOnly: spec.IsProfilingOnly,
		Rule:            rule,
		parent:          parent,
	}
	idx := len(b.tree.nodes)
	if parent >= 0 {
		node.Depth = b.tree.nodes[parent].Depth + 1
		b.tree.nodes[parent].children = append(b.tree.nodes[parent].children, idx)
	} else {
		b.tree.areas = append(b.tree.areas, idx)
	}
	b.tree.nodes = append(b.tree.nodes, node)
	b.tree.byCode[spec.Code] = idx
	return b
}

// Item attaches a checklist item to the indicator it names.
func (b *Builder) Item(item ChecklistItem) *Builder {
	idx, ok := b.tree.byCode[item.Indicator]
	if !ok {
		return b.fail("item %q: unknown indicator %q", item.ID, item.Indicator)
	}
	if item.ID == "" {
		return b.fail("item on %q: id is required", item.Indicator)
	}
	if _, dup := b.tree.itemByID[item.ID]; dup {
		return b.fail("duplicate checklist item id %q", item.ID)
	}
	if item.Kind == "" {
		item.Kind = ItemBoolean
	}
	if !item.Kind.IsValid() {
		return b.fail("item %q: unknown kind %q", item.ID, item.Kind)
	}
	if b.tree.nodes[idx].IsArea() {
		return b.fail("item %q: governance areas cannot carry checklist items", item.ID)
	}
	i := len(b.tree.items)
	b.tree.items = append(b.tree.items, item)
	b.tree.itemByID[item.ID] = i
	b.tree.nodes[idx].items = append(b.tree.nodes[idx].items, i)
	return b
}

// Build validates structure and returns the finished tree.
func (b *Builder) Build() (*Tree, error) {
	t := b.tree
	errs := append([]error(nil), b.errs...)
	if len(t.areas) == 0 && len(errs) == 0 {
		errs = append(errs, errors.New("tree has no governance areas"))
	}
	for _, n := range t.nodes {
		if len(n.children) > 0 && len(n.items) > 0 {
			errs = append(errs, fmt.Errorf("indicator %q has both children and checklist items", n.Code))
		}
		if n.Rule == RuleAnyOptionGroupRequired {
			for _, i := range n.items {
				if t.items[i].OptionGroup == "" {
					errs = append(errs, fmt.Errorf("indicator %q: item %q needs an option group", n.Code, t.items[i].ID))
				}
			}
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("build indicator tree %d: %w", t.year, errors.Join(errs...))
	}
	b.tree = nil
	return t, nil
}

// MustBuild is Build for fixtures; it panics on error.
func (b *Builder) MustBuild() *Tree {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
