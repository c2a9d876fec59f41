package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInheritanceCycle reports a base-type reference cycle in the schema.
var ErrInheritanceCycle = errors.New("schema: inheritance cycle")

// ResolveAll expands every template type's inheritance chain in place.
// Types are visited in sorted name order so resolution is deterministic.
// Resolution is idempotent: resolving an already resolved document changes
// nothing.
func (d *Document) ResolveAll() error {
	for _, name := range d.TypeNames() {
		if err := d.resolveType(name, make(map[string]bool), nil); err != nil {
			return err
		}
	}
	return nil
}

// ResolveType expands a single template type and, transitively, its bases.
func (d *Document) ResolveType(name string) error {
	return d.resolveType(name, make(map[string]bool), nil)
}

// resolveType walks the base-type graph depth first. visiting holds the
// types on the current resolution path; re-entering one is a cycle. trail
// records the path for the error message.
//
// Bases are resolved before their fields are copied, so a type sees the
// fully expanded field set of each base. Copying never overwrites a field
// the subtype (or an earlier base) already declares.
func (d *Document) resolveType(name string, visiting map[string]bool, trail []string) error {
	tt, ok := d.TemplateTypes[name]
	if !ok || tt == nil {
		return nil
	}
	if tt.resolved {
		return nil
	}
	if visiting[name] {
		return fmt.Errorf("%w: %s", ErrInheritanceCycle, strings.Join(append(trail, name), " -> "))
	}
	visiting[name] = true
	trail = append(trail, name)

	if tt.Fields == nil {
		tt.Fields = make(map[string]*FieldSpec)
	}

	for _, base := range tt.BaseTypes {
		if base == UniversalFieldsBase {
			for _, field := range d.universalFieldNames() {
				if _, exists := tt.Fields[field]; !exists {
					tt.Fields[field] = &FieldSpec{}
				}
			}
			continue
		}
		parent, known := d.TemplateTypes[base]
		if !known || parent == nil {
			// Unknown bases are tolerated: schemas may ship partial type
			// sets and still resolve.
			continue
		}
		if err := d.resolveType(base, visiting, trail); err != nil {
			return err
		}
		for field, spec := range parent.Fields {
			if _, exists := tt.Fields[field]; !exists {
				tt.Fields[field] = spec.clone()
			}
		}
	}

	delete(visiting, name)
	tt.resolved = true
	return nil
}
