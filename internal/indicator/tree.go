// Package indicator models the per-year governance indicator hierarchy.
//
// The tree is an arena: nodes live in a slice and reference each other by
// index, and callers address them by stable dotted codes ("4.2.1"). Roots are
// governance areas; checklist items hang off leaf indicators. A Tree is built
// once per assessment cycle and never mutated afterwards, so it is safe to
// share across goroutines.
package indicator

import (
	"fmt"
	"strings"
)

// Code is a stable dotted indicator code. The first segment names the
// governance area.
type Code string

// Area returns the governance area code the indicator belongs to.
func (c Code) Area() Code {
	s := string(c)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return Code(s[:i])
	}
	return c
}

func (c Code) String() string { return string(c) }

// ValidationRule decides how checklist items combine into an indicator status.
type ValidationRule string

const (
	RuleAllItemsRequired       ValidationRule = "ALL_ITEMS_REQUIRED"
	RuleAnyItemRequired        ValidationRule = "ANY_ITEM_REQUIRED"
	RuleAnyOptionGroupRequired ValidationRule = "ANY_OPTION_GROUP_REQUIRED"
)

// IsValid reports whether r is a known rule.
func (r ValidationRule) IsValid() bool {
	switch r {
	case RuleAllItemsRequired, RuleAnyItemRequired, RuleAnyOptionGroupRequired:
		return true
	}
	return false
}

// ParseValidationRule parses a rule name, defaulting empty input to
// RuleAllItemsRequired.
func ParseValidationRule(s string) (ValidationRule, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return RuleAllItemsRequired, nil
	}
	r := ValidationRule(s)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown validation rule %q", s)
	}
	return r, nil
}

// ItemKind is the data shape a checklist item expects as evidence.
type ItemKind string

const (
	ItemBoolean     ItemKind = "boolean"
	ItemDate        ItemKind = "date"
	ItemNumeric     ItemKind = "numeric"
	ItemCalculation ItemKind = "calculation"
)

// IsValid reports whether k is a known kind.
func (k ItemKind) IsValid() bool {
	switch k {
	case ItemBoolean, ItemDate, ItemNumeric, ItemCalculation:
		return true
	}
	return false
}

// Indicator is one node of the tree. Depth 0 nodes are governance areas.
type Indicator struct {
	Code            Code
	Name            string
	Area            Code
	Depth           int
	IsBBI           bool
	IsProfilingOnly bool
	Rule            ValidationRule

	parent   int
	children []int
	items    []int
}

// IsArea reports whether the node is a governance area root.
func (i Indicator) IsArea() bool { return i.Depth == 0 }

// ChecklistItem is a leaf verification unit attached to an indicator.
type ChecklistItem struct {
	ID          string
	Indicator   Code
	Label       string
	Kind        ItemKind
	Required    bool
	OptionGroup string
}

// Tree is the immutable indicator hierarchy for one assessment year.
type Tree struct {
	year     int
	nodes    []Indicator
	items    []ChecklistItem
	byCode   map[Code]int
	itemByID map[string]int
	areas    []int
}

// Year returns the assessment cycle the tree belongs to.
func (t *Tree) Year() int { return t.year }

// Lookup returns the indicator with code.
func (t *Tree) Lookup(code Code) (Indicator, bool) {
	idx, ok := t.byCode[code]
	if !ok {
		return Indicator{}, false
	}
	return t.nodes[idx], true
}

// Has reports whether code exists in the tree.
func (t *Tree) Has(code Code) bool {
	_, ok := t.byCode[code]
	return ok
}

// Areas returns governance area codes in declaration order.
func (t *Tree) Areas() []Code {
	out := make([]Code, 0, len(t.areas))
	for _, idx := range t.areas {
		out = append(out, t.nodes[idx].Code)
	}
	return out
}

// Children returns the child codes of code in declaration order.
func (t *Tree) Children(code Code) []Code {
	idx, ok := t.byCode[code]
	if !ok {
		return nil
	}
	out := make([]Code, 0, len(t.nodes[idx].children))
	for _, c := range t.nodes[idx].children {
		out = append(out, t.nodes[c].Code)
	}
	return out
}

// Parent returns the parent code, or false for areas and unknown codes.
func (t *Tree) Parent(code Code) (Code, bool) {
	idx, ok := t.byCode[code]
	if !ok || t.nodes[idx].parent < 0 {
		return "", false
	}
	return t.nodes[t.nodes[idx].parent].Code, true
}

// IsLeaf reports whether code has no child indicators.
func (t *Tree) IsLeaf(code Code) bool {
	idx, ok := t.byCode[code]
	return ok && len(t.nodes[idx].children) == 0
}

// Items returns the checklist items of code in declaration order.
func (t *Tree) Items(code Code) []ChecklistItem {
	idx, ok := t.byCode[code]
	if !ok {
		return nil
	}
	out := make([]ChecklistItem, 0, len(t.nodes[idx].items))
	for _, i := range t.nodes[idx].items {
		out = append(out, t.items[i])
	}
	return out
}

// Item returns the checklist item with id.
func (t *Tree) Item(id string) (ChecklistItem, bool) {
	idx, ok := t.itemByID[id]
	if !ok {
		return ChecklistItem{}, false
	}
	return t.items[idx], true
}

// Walk visits every indicator depth-first in declaration order, parents
// before children.
func (t *Tree) Walk(fn func(Indicator)) {
	var visit func(int)
	visit = func(idx int) {
		fn(t.nodes[idx])
		for _, c := range t.nodes[idx].children {
			visit(c)
		}
	}
	for _, a := range t.areas {
		visit(a)
	}
}

// Leaves returns leaf indicator codes under root (inclusive) in walk order.
// An empty root returns every leaf in the tree.
func (t *Tree) Leaves(root Code) []Code {
	var out []Code
	t.Walk(func(ind Indicator) {
		if len(ind.children) > 0 {
			return
		}
		if root == "" || ind.Area == root || ind.Code == root || strings.HasPrefix(string(ind.Code), string(root)+".") {
			out = append(out, ind.Code)
		}
	})
	return out
}

// Len returns the number of indicators, areas included.
func (t *Tree) Len() int { return len(t.nodes) }
