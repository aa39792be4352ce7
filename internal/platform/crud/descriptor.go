// Package crud serves the create/read/update/delete surface shared by every
// resource from a declarative description of its table.
package crud

import (
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sosecurity/api/internal/platform/validation"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Field maps one JSON property to a column.
type Field struct {
	Name   string
	Column string // defaults to Name
	Kind   validation.Kind
	Rules  string // validator tag; "omitempty" prefix makes it optional

	// Secret fields are written but never selected back.
	Secret bool
	// ReadOnly fields are selected but never accepted from clients.
	ReadOnly bool
	// Immutable fields are set on create and ignored by full-row updates.
	Immutable bool
	// Transform rewrites the validated value before it is stored.
	Transform func(v any) (any, error)
}

func (f Field) column() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// present renders a selected value in the form clients submit it, so a
// record read back can be written again unchanged.
func (f Field) present(v any) any {
	if f.Kind != validation.Date {
		return v
	}
	switch d := v.(type) {
	case time.Time:
		return d.Format(validation.DateLayout)
	case pgtype.Date:
		if d.Valid && d.InfinityModifier == pgtype.Finite {
			return d.Time.Format(validation.DateLayout)
		}
	}
	return v
}

// Descriptor describes a resource table and how it is exposed over HTTP.
type Descriptor struct {
	// Singular and Plural label the resource in response messages.
	Singular string
	Plural   string

	Path  string // e.g. "/alertas"
	Table string
	Key   string // primary key column, exposed as "id"

	// Owner is the column referencing usuarios. When set, the resource is
	// listed under OwnerPath + "/:id" + Path.
	Owner     string
	OwnerPath string
	// OwnerUpdate also exposes PUT OwnerPath/:id/Path, updating the owner's
	// rows in place.
	OwnerUpdate bool

	// PublicCreate lets unauthenticated callers create records.
	PublicCreate bool

	Fields []Field
}

// Check rejects descriptors whose identifiers could not be safely spliced
// into SQL.
func (d *Descriptor) Check() error {
	idents := []string{d.Table, d.Key}
	if d.Owner != "" {
		idents = append(idents, d.Owner)
	}
	for _, f := range d.Fields {
		idents = append(idents, f.column())
	}
	for _, id := range idents {
		if !identPattern.MatchString(id) {
			return fmt.Errorf("crud: %s: invalid identifier %q", d.Path, id)
		}
	}
	if d.Owner != "" && d.OwnerPath == "" {
		return fmt.Errorf("crud: %s: owner column without owner path", d.Path)
	}
	return nil
}

// CreateRules are the validation rules for POST bodies.
func (d *Descriptor) CreateRules() []validation.Rule {
	return d.rules(true)
}

// UpdateRules are the validation rules for PUT bodies.
func (d *Descriptor) UpdateRules() []validation.Rule {
	return d.rules(false)
}

func (d *Descriptor) rules(create bool) []validation.Rule {
	var rules []validation.Rule
	for _, f := range d.writable(create) {
		rules = append(rules, validation.Rule{Field: f.Name, Kind: f.Kind, Tag: f.Rules})
	}
	return rules
}

func (d *Descriptor) writable(create bool) []Field {
	var out []Field
	for _, f := range d.Fields {
		if f.ReadOnly || (!create && f.Immutable) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (d *Descriptor) readable() []Field {
	var out []Field
	for _, f := range d.Fields {
		if !f.Secret {
			out = append(out, f)
		}
	}
	return out
}

// assignment is one column = value pair ready for a statement.
type assignment struct {
	column string
	value  any
}

// assignments turns validated body fields into column values, applying
// transforms. Optional fields missing from the body are written as NULL.
func (d *Descriptor) assignments(fields map[string]any, create bool) ([]assignment, error) {
	var out []assignment
	for _, f := range d.writable(create) {
		v, ok := fields[f.Name]
		if !ok {
			v = nil
		}
		if v != nil && f.Transform != nil {
			var err error
			if v, err = f.Transform(v); err != nil {
				return nil, fmt.Errorf("transform %s: %w", f.Name, err)
			}
		}
		out = append(out, assignment{column: f.column(), value: v})
	}
	return out, nil
}
