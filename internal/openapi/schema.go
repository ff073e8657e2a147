package openapi

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arolang/aro/internal/aroerr"
)

// Schema is the structural representation the validator checks values
// against. Its shape mirrors google/jsonschema-go's Schema type field
// for field (Type/Properties/Items/Required/Ref) — the same vocabulary
// internal/devtools/mcpserver uses for MCP tool input schemas — plus one
// OpenAPI-specific addition, Nullable, that standard JSON Schema doesn't
// carry as a top-level keyword.
type Schema struct {
	Type       string             `yaml:"type"`
	Nullable   bool               `yaml:"nullable"`
	Required   []string           `yaml:"required"`
	Properties map[string]*Schema `yaml:"properties"`
	Items      *Schema            `yaml:"items"`
	Ref        string             `yaml:"$ref"`
	Format     string             `yaml:"format"`
	Enum       []any              `yaml:"enum"`
}

// Components is the OpenAPI document's `components.schemas` table,
// keyed by schema name.
type Components map[string]*Schema

// decodeSchema decodes a YAML node from the OpenAPI document into a Schema.
func decodeSchema(node *yaml.Node) (*Schema, error) {
	if node == nil {
		return nil, nil
	}
	var s Schema
	if err := node.Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

const refPrefix = "#/components/schemas/"

// resolveRef inlines schema's $ref against components, recursively,
// guarding against cycles by tracking names already on the current
// resolution path. A $ref that doesn't resolve to a known component
// yields invalid-schema-reference; a cyclic $ref is left in place rather
// than inlined infinitely (self-referential schemas, e.g. trees, are
// valid — only the cycle edge is not expanded further).
func resolveRef(schema *Schema, components Components, path []string) (*Schema, *aroerr.Error) {
	if schema == nil || schema.Ref == "" {
		return schema, nil
	}
	name := strings.TrimPrefix(schema.Ref, refPrefix)
	if name == schema.Ref {
		return nil, aroerr.New(aroerr.KindInvalidSchemaReference,
			fmt.Sprintf("unsupported $ref %q (only %s<name> is supported)", schema.Ref, refPrefix), nil)
	}
	for _, seen := range path {
		if seen == name {
			return schema, nil // cyclic reference; leave unexpanded
		}
	}
	target, ok := components[name]
	if !ok {
		return nil, aroerr.New(aroerr.KindInvalidSchemaReference,
			fmt.Sprintf("$ref %q does not resolve to a known component schema", schema.Ref), nil).
			WithDetail("ref", schema.Ref)
	}
	return resolveRef(target, components, append(path, name))
}
