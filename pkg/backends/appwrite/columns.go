package appwrite

import (
	"context"
	"net/http"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

// columnDoc is the union of every column document shape.
type columnDoc struct {
	Key      string   `json:"key"`
	Type     string   `json:"type"`
	Status   string   `json:"status"`
	Error    string   `json:"error"`
	Required bool     `json:"required"`
	Array    bool     `json:"array"`
	Format   string   `json:"format"`
	Size     int      `json:"size"`
	Elements []string `json:"elements"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Default  any      `json:"default"`

	RelatedTable string `json:"relatedTable"`
	RelationType string `json:"relationType"`
	TwoWay       bool   `json:"twoWay"`
	TwoWayKey    string `json:"twoWayKey"`
	OnDelete     string `json:"onDelete"`
}

// normalizeKind maps a remote type and format onto a declared kind. String
// columns carry their semantic type in the format field.
func normalizeKind(typ, format string) schema.Kind {
	switch typ {
	case "string":
		switch format {
		case "email":
			return schema.KindEmail
		case "url":
			return schema.KindURL
		case "ip":
			return schema.KindIP
		case "enum":
			return schema.KindEnum
		}
		return schema.KindString
	case "double":
		return schema.KindFloat
	case "linestring":
		return schema.KindLine
	}
	return schema.Kind(typ)
}

// columnPath returns the typed path segment used to create or update a column.
func columnPath(k schema.Kind) string {
	switch k {
	case schema.KindFloat:
		return "float"
	case schema.KindLine:
		return "line"
	}
	return string(k)
}

func (d columnDoc) toCore() core.Column {
	c := core.Column{
		Key:      d.Key,
		Kind:     normalizeKind(d.Type, d.Format),
		Status:   core.Status(d.Status),
		Error:    d.Error,
		Required: d.Required,
		Array:    d.Array,
		Size:     d.Size,
		Elements: d.Elements,
		Min:      d.Min,
		Max:      d.Max,
		Default:  d.Default,
	}
	if c.Kind == schema.KindRelationship {
		c.Relation = &schema.Relation{
			RelatedTable: d.RelatedTable,
			Type:         schema.RelationType(d.RelationType),
			TwoWay:       d.TwoWay,
			TwoWayKey:    d.TwoWayKey,
			OnDelete:     schema.OnDelete(d.OnDelete),
		}
	}
	return c
}

func (b *Backend) ListColumns(ctx context.Context, databaseID, tableID string) ([]core.Column, error) {
	var list struct {
		Total   int         `json:"total"`
		Columns []columnDoc `json:"columns"`
	}
	if err := b.do(ctx, http.MethodGet, tablePath(databaseID, tableID)+"/columns", nil, nil, &list); err != nil {
		return nil, err
	}
	out := make([]core.Column, 0, len(list.Columns))
	for _, doc := range list.Columns {
		out = append(out, doc.toCore())
	}
	return out, nil
}

func (b *Backend) GetColumn(ctx context.Context, databaseID, tableID, key string) (*core.Column, error) {
	var doc columnDoc
	if err := b.do(ctx, http.MethodGet, tablePath(databaseID, tableID)+"/columns/"+escape(key), nil, nil, &doc); err != nil {
		return nil, err
	}
	c := doc.toCore()
	return &c, nil
}

func (b *Backend) CreateColumn(ctx context.Context, databaseID, tableID string, col schema.Column) error {
	path := tablePath(databaseID, tableID) + "/columns/" + columnPath(col.Kind)
	return b.do(ctx, http.MethodPost, path, nil, columnBody(col, true), nil)
}

func (b *Backend) UpdateColumn(ctx context.Context, databaseID, tableID string, col schema.Column) error {
	path := tablePath(databaseID, tableID) + "/columns/" + columnPath(col.Kind) + "/" + escape(col.Key)
	return b.do(ctx, http.MethodPatch, path, nil, columnBody(col, false), nil)
}

// columnBody builds the request body for a column. Relationship columns
// cannot be updated through the typed endpoint, so create is the only case
// that emits relation fields.
func columnBody(col schema.Column, create bool) map[string]any {
	if col.Kind == schema.KindRelationship && col.Relation != nil {
		body := map[string]any{
			"relatedTableId": col.Relation.RelatedTable,
			"type":           string(col.Relation.Type),
			"twoWay":         col.Relation.TwoWay,
			"key":            col.Key,
		}
		if col.Relation.TwoWayKey != "" {
			body["twoWayKey"] = col.Relation.TwoWayKey
		}
		if col.Relation.OnDelete != "" {
			body["onDelete"] = string(col.Relation.OnDelete)
		}
		return body
	}

	body := map[string]any{
		"required": col.Required,
		"default":  col.Default,
	}
	if create {
		body["key"] = col.Key
		if !col.Kind.IsSpatial() {
			body["array"] = col.Array
		}
	}
	switch col.Kind {
	case schema.KindString:
		body["size"] = col.Size
	case schema.KindEnum:
		body["elements"] = col.Elements
	case schema.KindInteger, schema.KindFloat:
		if col.Min != nil {
			body["min"] = *col.Min
		}
		if col.Max != nil {
			body["max"] = *col.Max
		}
	}
	return body
}
