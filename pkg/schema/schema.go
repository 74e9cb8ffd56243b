// Package schema defines the static table declarations that lazy-appwrite
// reconciles against a remote backend.
//
// A Table is owned by the caller and treated as immutable for the lifetime
// of the process. Columns are a closed tagged union dispatched on Kind; each
// kind only reads the constraint fields that apply to it.
package schema

// Kind identifies the type of a declared column.
type Kind string

// Column kinds.
const (
	KindString       Kind = "string"
	KindInteger      Kind = "integer"
	KindFloat        Kind = "float"
	KindBoolean      Kind = "boolean"
	KindEmail        Kind = "email"
	KindURL          Kind = "url"
	KindIP           Kind = "ip"
	KindDatetime     Kind = "datetime"
	KindEnum         Kind = "enum"
	KindPoint        Kind = "point"
	KindLine         Kind = "line"
	KindPolygon      Kind = "polygon"
	KindRelationship Kind = "relationship"
)

var knownKinds = map[Kind]bool{
	KindString: true, KindInteger: true, KindFloat: true, KindBoolean: true,
	KindEmail: true, KindURL: true, KindIP: true, KindDatetime: true,
	KindEnum: true, KindPoint: true, KindLine: true, KindPolygon: true,
	KindRelationship: true,
}

// Valid reports whether k is one of the supported column kinds.
func (k Kind) Valid() bool {
	return knownKinds[k]
}

// IsSpatial reports whether k is a geometry kind.
func (k Kind) IsSpatial() bool {
	return k == KindPoint || k == KindLine || k == KindPolygon
}

// RelationType is the cardinality of a relationship column.
type RelationType string

// Relationship cardinalities.
const (
	OneToOne   RelationType = "oneToOne"
	OneToMany  RelationType = "oneToMany"
	ManyToOne  RelationType = "manyToOne"
	ManyToMany RelationType = "manyToMany"
)

// OnDelete is the policy applied to related rows when a row is deleted.
type OnDelete string

// On-delete policies.
const (
	OnDeleteCascade  OnDelete = "cascade"
	OnDeleteRestrict OnDelete = "restrict"
	OnDeleteSetNull  OnDelete = "setNull"
)

// Relation carries the relationship-specific part of a column.
type Relation struct {
	RelatedTable string       `yaml:"relatedTable" json:"relatedTable"`
	Type         RelationType `yaml:"relationType" json:"relationType"`
	TwoWay       bool         `yaml:"twoWay,omitempty" json:"twoWay,omitempty"`
	TwoWayKey    string       `yaml:"twoWayKey,omitempty" json:"twoWayKey,omitempty"`
	OnDelete     OnDelete     `yaml:"onDelete,omitempty" json:"onDelete,omitempty"`
}

// Column is a declared column. Kind selects which constraint fields apply:
// Size for strings, Min/Max for integers and floats, Elements for enums and
// Relation for relationships.
type Column struct {
	Key      string `yaml:"key" json:"key"`
	Kind     Kind   `yaml:"type" json:"type"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Array    bool   `yaml:"array,omitempty" json:"array,omitempty"`
	Default  any    `yaml:"default,omitempty" json:"default,omitempty"`

	Size     int       `yaml:"size,omitempty" json:"size,omitempty"`
	Min      *float64  `yaml:"min,omitempty" json:"min,omitempty"`
	Max      *float64  `yaml:"max,omitempty" json:"max,omitempty"`
	Elements []string  `yaml:"elements,omitempty" json:"elements,omitempty"`
	Relation *Relation `yaml:"relation,omitempty" json:"relation,omitempty"`
}

// IndexType is the kind of a declared index.
type IndexType string

// Index types.
const (
	IndexKey      IndexType = "key"
	IndexUnique   IndexType = "unique"
	IndexFulltext IndexType = "fulltext"
	IndexSpatial  IndexType = "spatial"
)

// Valid reports whether t is a supported index type.
func (t IndexType) Valid() bool {
	switch t {
	case IndexKey, IndexUnique, IndexFulltext, IndexSpatial:
		return true
	}
	return false
}

// Index is a declared index over an ordered list of column keys.
type Index struct {
	Key     string    `yaml:"key" json:"key"`
	Type    IndexType `yaml:"type" json:"type"`
	Columns []string  `yaml:"columns" json:"columns"`
}

// Table is the declaration of one table.
//
// Permissions nil is treated as the empty permission set. RowSecurity nil is
// treated as false. Enabled nil means the remote value is left untouched.
type Table struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name,omitempty" json:"name,omitempty"`
	Columns     []Column `yaml:"columns" json:"columns"`
	Indexes     []Index  `yaml:"indexes,omitempty" json:"indexes,omitempty"`
	Permissions []string `yaml:"permissions,omitempty" json:"permissions,omitempty"`
	RowSecurity *bool    `yaml:"rowSecurity,omitempty" json:"rowSecurity,omitempty"`
	Enabled     *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// DisplayName returns Name, falling back to ID.
func (t Table) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// RowSecurityEnabled returns the declared row-security flag, false when unset.
func (t Table) RowSecurityEnabled() bool {
	return t.RowSecurity != nil && *t.RowSecurity
}

// Column returns the declared column with the given key.
func (t Table) Column(key string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// Bool returns a pointer to b, for the optional table flags.
func Bool(b bool) *bool {
	return &b
}

// Float returns a pointer to f, for numeric bounds.
func Float(f float64) *float64 {
	return &f
}
