package indicator

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Year  int        `yaml:"year"`
	Areas []nodeYAML `yaml:"areas"`
}

type nodeYAML struct {
	Code          string     `yaml:"code"`
	Name          string     `yaml:"name"`
	Rule          string     `yaml:"rule"`
	BBI           bool       `yaml:"bbi"`
	ProfilingOnly bool       `yaml:"profiling_only"`
	Items         []itemYAML `yaml:"items"`
	Children      []nodeYAML `yaml:"children"`
}

type itemYAML struct {
	ID          string `yaml:"id"`
	Label       string `yaml:"label"`
	Kind        string `yaml:"kind"`
	Required    *bool  `yaml:"required"`
	OptionGroup string `yaml:"option_group"`
}

// LoadYAML decodes a catalog document into a Tree. Items are required unless
// they say otherwise.
func LoadYAML(r io.Reader) (*Tree, error) {
	var doc catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode indicator catalog: %w", err)
	}
	if doc.Year == 0 {
		return nil, fmt.Errorf("decode indicator catalog: year is required")
	}

	b := NewBuilder(doc.Year)
	for _, area := range doc.Areas {
		b.Area(Code(area.Code), area.Name)
		if err := addChildren(b, Code(area.Code), area.Children); err != nil {
			return nil, err
		}
		if len(area.Items) > 0 {
			return nil, fmt.Errorf("area %q: governance areas cannot carry checklist items", area.Code)
		}
	}
	return b.Build()
}

func addChildren(b *Builder, parent Code, nodes []nodeYAML) error {
	for _, n := range nodes {
		rule, err := ParseValidationRule(n.Rule)
		if err != nil {
			return fmt.Errorf("indicator %q: %w", n.Code, err)
		}
		code := Code(n.Code)
		b.Indicator(parent, Spec{
			Code:            code,
			Name:            n.Name,
			IsBBI:           n.BBI,
			IsProfilingOnly: n.ProfilingOnly,
			Rule:            rule,
		})
		for _, it := range n.Items {
			required := true
			if it.Required != nil {
				required = *it.Required
			}
			b.Item(ChecklistItem{
				ID:          it.ID,
				Indicator:   code,
				Label:       it.Label,
				Kind:        ItemKind(it.Kind),
				Required:    required,
				OptionGroup: it.OptionGroup,
			})
		}
		if err := addChildren(b, code, n.Children); err != nil {
			return err
		}
	}
	return nil
}
