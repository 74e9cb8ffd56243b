package schema

import (
	"fmt"
	"strings"
)

// systemColumns are backend-managed attributes that may be indexed without
// being declared.
var systemColumns = map[string]bool{
	"$id":        true,
	"$createdAt": true,
	"$updatedAt": true,
}

// IsSystemColumn reports whether key names a backend-managed attribute.
func IsSystemColumn(key string) bool {
	return systemColumns[key]
}

// ValidationError lists every problem found in a declaration.
type ValidationError struct {
	Table    string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("table %q: invalid declaration: %s", e.Table, strings.Join(e.Problems, "; "))
}

// Validate checks the declaration for internal consistency. It does not
// contact any backend.
func (t Table) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if t.ID == "" {
		add("table id is required")
	}
	if len(t.Columns) == 0 {
		add("at least one column is required")
	}

	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c.Key] {
			add("duplicate column key %q", c.Key)
		}
		seen[c.Key] = true
		problems = append(problems, c.problems()...)
	}

	seenIdx := make(map[string]bool, len(t.Indexes))
	for _, idx := range t.Indexes {
		if idx.Key == "" {
			add("index key is required")
			continue
		}
		if seenIdx[idx.Key] {
			add("duplicate index key %q", idx.Key)
		}
		seenIdx[idx.Key] = true
		if !idx.Type.Valid() {
			add("index %q: unknown type %q", idx.Key, idx.Type)
		}
		if len(idx.Columns) == 0 {
			add("index %q: at least one column is required", idx.Key)
		}
		for _, col := range idx.Columns {
			if !seen[col] && !IsSystemColumn(col) {
				add("index %q: references undeclared column %q", idx.Key, col)
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Table: t.ID, Problems: problems}
	}
	return nil
}

// Validate checks a single column declaration.
func (c Column) Validate() error {
	if problems := c.problems(); len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (c Column) problems() []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Key == "" {
		add("column key is required")
		return problems
	}
	if !c.Kind.Valid() {
		add("column %q: unknown type %q", c.Key, c.Kind)
		return problems
	}
	if c.Required && c.Default != nil {
		add("column %q: a required column cannot declare a default", c.Key)
	}

	switch c.Kind {
	case KindString:
		if c.Size <= 0 {
			add("column %q: string size must be positive", c.Key)
		}
	case KindInteger, KindFloat:
		if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
			add("column %q: min %v is greater than max %v", c.Key, *c.Min, *c.Max)
		}
	case KindEnum:
		if len(c.Elements) == 0 {
			add("column %q: enum requires at least one element", c.Key)
		}
	case KindRelationship:
		if c.Relation == nil || c.Relation.RelatedTable == "" {
			add("column %q: relationship requires a related table", c.Key)
		}
		if c.Array {
			add("column %q: relationship columns cannot be arrays", c.Key)
		}
	}
	return problems
}
