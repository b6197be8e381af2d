// Package profile resolves the ordered field schema used to lay out editable
// fields for an article. Schemas are supplied by an external resolver as an
// unordered editor/field description; this package sorts fields by their
// authoring-defined order attribute and partitions them into header and
// content sections.
package profile

import (
	"context"
	"sort"

	"github.com/newsroom-authoring-api/internal/models"
)

// FieldKind discriminates how a field is edited.
type FieldKind string

const (
	// KindText is a plain text field edited inline.
	KindText FieldKind = "text"

	// KindFromExtension is a field rendered by an extension with an opaque
	// extension-specific config.
	KindFromExtension FieldKind = "from-extension"
)

// Field is a single editable field in a content profile.
type Field struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`

	// Set only when Kind is KindFromExtension.
	ExtensionFieldType   string                 `json:"extension_field_type,omitempty"`
	ExtensionFieldConfig map[string]interface{} `json:"extension_field_config,omitempty"`
}

// Profile is the resolved, ordered schema for one article type. Field order
// inside each section reflects authoring-layout order.
type Profile struct {
	Name    string  `json:"name"`
	Header  []Field `json:"header"`
	Content []Field `json:"content"`
}

// EditorField describes where and in which order a field appears.
type EditorField struct {
	Order   int    `json:"order"`
	Section string `json:"section"`
}

// SchemaField carries the field-type details for custom fields. Fields without
// a SchemaField entry default to plain text.
type SchemaField struct {
	ID                string                 `json:"id"`
	FieldType         string                 `json:"field_type"`
	CustomFieldType   string                 `json:"custom_field_type,omitempty"`
	CustomFieldConfig map[string]interface{} `json:"custom_field_config,omitempty"`
}

// Schema is the raw, unordered profile description returned by a resolver.
type Schema struct {
	Name   string                 `json:"name"`
	Editor map[string]EditorField `json:"editor"`
	Fields []SchemaField          `json:"fields"`
}

// SchemaResolver fetches the raw schema for a profile id. Implemented by the
// CMS backend boundary.
type SchemaResolver interface {
	ResolveSchema(ctx context.Context, profileID string) (*Schema, error)
}

// LabelResolver maps a field id to its display name.
type LabelResolver func(fieldID string) string

// Resolve produces the ordered header/content field lists for an article's
// assigned profile. Fields are sorted by their explicit order attribute, not
// collection order. A field declaring a section other than header or content
// fails the resolution with *models.InvalidSectionError.
func Resolve(ctx context.Context, resolver SchemaResolver, labels LabelResolver, article *models.Article) (*Profile, error) {
	schema, err := resolver.ResolveSchema(ctx, article.Profile)
	if err != nil {
		return nil, err
	}

	type orderedField struct {
		fieldID string
		editor  EditorField
	}

	ordered := make([]orderedField, 0, len(schema.Editor))
	for fieldID, editor := range schema.Editor {
		ordered = append(ordered, orderedField{fieldID: fieldID, editor: editor})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].editor.Order < ordered[j].editor.Order
	})

	fieldByID := make(map[string]SchemaField, len(schema.Fields))
	for _, f := range schema.Fields {
		fieldByID[f.ID] = f
	}

	result := &Profile{Name: schema.Name}

	for _, entry := range ordered {
		field := Field{
			ID:   entry.fieldID,
			Name: labels(entry.fieldID),
			Kind: KindText,
		}
		if sf, ok := fieldByID[entry.fieldID]; ok && sf.FieldType == "custom" {
			field.Kind = KindFromExtension
			field.ExtensionFieldType = sf.CustomFieldType
			field.ExtensionFieldConfig = sf.CustomFieldConfig
		}

		switch entry.editor.Section {
		case "header":
			result.Header = append(result.Header, field)
		case "content":
			result.Content = append(result.Content, field)
		default:
			return nil, &models.InvalidSectionError{FieldID: entry.fieldID, Section: entry.editor.Section}
		}
	}

	return result, nil
}
