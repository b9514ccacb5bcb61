// Package query compiles and executes view specifications against a
// snapshot of documents. A specification is a set of named views over
// shared filters, formulas and summaries; filters, formulas and
// summaries are all written in the Cress expression language.
package query

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	cerrors "github.com/sambeau/cress/pkg/cress/errors"
)

// QuerySpec is one parsed view-definition document.
type QuerySpec struct {
	Filters    *FilterSpec       `yaml:"filters"`    // global filter, ANDed with every view filter
	Formulas   map[string]string `yaml:"formulas"`   // name -> expression source
	Properties []string          `yaml:"properties"` // default column list
	Summaries  map[string]string `yaml:"summaries"`  // name -> expression source
	Views      []*ViewSpec       `yaml:"views"`
}

// ViewSpec is one named view configuration.
type ViewSpec struct {
	Name      string            `yaml:"name"`
	Filters   *FilterSpec       `yaml:"filters"`
	Sort      []SortKey         `yaml:"sort"`
	Columns   []string          `yaml:"columns"` // explicit column list, distinct from sort
	GroupBy   *GroupKey         `yaml:"group_by"`
	Limit     int               `yaml:"limit"`     // 0 = unlimited
	Summaries map[string]string `yaml:"summaries"` // column -> summary name or expression
}

// SortKey orders rows by a property expression.
type SortKey struct {
	Property  string `yaml:"property"`
	Direction string `yaml:"direction"` // "asc" (default) or "desc"
}

// UnmarshalYAML accepts either a bare property scalar or a
// {property, direction} mapping.
func (k *SortKey) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		k.Property = value.Value
		k.Direction = "asc"
		return nil
	}
	type plain SortKey
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*k = SortKey(p)
	if k.Direction == "" {
		k.Direction = "asc"
	}
	return nil
}

// GroupKey buckets rows by a property expression.
type GroupKey struct {
	Property  string `yaml:"property"`
	Direction string `yaml:"direction"` // bucket order: "asc" (default) or "desc"
}

// UnmarshalYAML accepts either a bare property scalar or a
// {property, direction} mapping.
func (k *GroupKey) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		k.Property = value.Value
		k.Direction = "asc"
		return nil
	}
	type plain GroupKey
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*k = GroupKey(p)
	if k.Direction == "" {
		k.Direction = "asc"
	}
	return nil
}

// FilterSpec is a filter tree node: either a leaf expression or a
// single and/or/not combinator.
type FilterSpec struct {
	Expr string        // leaf: an expression source string
	And  []*FilterSpec // every child must pass
	Or   []*FilterSpec // at least one child must pass
	Not  *FilterSpec   // the child must not pass
}

// UnmarshalYAML accepts a scalar expression string or a single-key
// and:/or:/not: mapping, recursively.
func (f *FilterSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		f.Expr = value.Value
		return nil
	case yaml.MappingNode:
		if len(value.Content) != 2 {
			return fmt.Errorf("line %d: filter mapping must have exactly one of and/or/not", value.Line)
		}
		key := value.Content[0].Value
		child := value.Content[1]
		switch key {
		case "and":
			return child.Decode(&f.And)
		case "or":
			return child.Decode(&f.Or)
		case "not":
			f.Not = &FilterSpec{}
			return child.Decode(f.Not)
		default:
			return fmt.Errorf("line %d: unknown filter combinator %q", value.Line, key)
		}
	}
	return fmt.Errorf("line %d: filter must be an expression string or an and/or/not mapping", value.Line)
}

// ParseSpec parses a view-definition YAML document and validates its
// shape.
func ParseSpec(data []byte) (*QuerySpec, *cerrors.Error) {
	var spec QuerySpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, cerrors.New(cerrors.ClassValidation, "cannot parse view definition: %s", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// LoadSpecFile reads and parses a view-definition file.
func LoadSpecFile(path string) (*QuerySpec, *cerrors.Error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.New(cerrors.ClassIO, "cannot read %s: %s", path, err)
	}
	spec, specErr := ParseSpec(data)
	if specErr != nil {
		return nil, specErr.WithFile(path)
	}
	return spec, nil
}

// Validate checks the specification shape: at least one view, unique
// non-empty view names.
func (s *QuerySpec) Validate() *cerrors.Error {
	if len(s.Views) == 0 {
		return cerrors.New(cerrors.ClassValidation, "specification declares no views")
	}
	seen := map[string]bool{}
	for i, v := range s.Views {
		if v == nil || v.Name == "" {
			return cerrors.New(cerrors.ClassValidation, "view %d has no name", i+1)
		}
		if seen[v.Name] {
			return cerrors.New(cerrors.ClassValidation, "duplicate view name %q", v.Name)
		}
		seen[v.Name] = true
		for _, k := range v.Sort {
			if k.Property == "" {
				return cerrors.New(cerrors.ClassValidation, "view %q has a sort key without a property", v.Name)
			}
			if k.Direction != "asc" && k.Direction != "desc" {
				return cerrors.New(cerrors.ClassValidation, "view %q: sort direction must be asc or desc, got %q", v.Name, k.Direction)
			}
		}
		if v.GroupBy != nil {
			if v.GroupBy.Property == "" {
				return cerrors.New(cerrors.ClassValidation, "view %q has a group key without a property", v.Name)
			}
			if v.GroupBy.Direction != "asc" && v.GroupBy.Direction != "desc" {
				return cerrors.New(cerrors.ClassValidation, "view %q: group direction must be asc or desc, got %q", v.Name, v.GroupBy.Direction)
			}
		}
		if v.Limit < 0 {
			return cerrors.New(cerrors.ClassValidation, "view %q: limit must not be negative", v.Name)
		}
	}
	return nil
}

// View returns the view with the given name, or the first view when
// the name is empty.
func (s *QuerySpec) View(name string) (*ViewSpec, *cerrors.Error) {
	if name == "" {
		return s.Views[0], nil
	}
	for _, v := range s.Views {
		if v.Name == name {
			return v, nil
		}
	}
	return nil, cerrors.New(cerrors.ClassView, "no view named %q", name)
}
