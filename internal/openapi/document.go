package openapi

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arolang/aro/internal/aroerr"
)

// supportedMethods is the set of HTTP methods an OpenAPI path item may
// declare an operation under.
var supportedMethods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// Operation is one method+path binding's OpenAPI operation object, kept
// intentionally narrow to what routing and contract validation need.
type Operation struct {
	OperationID string
	RequestBody *Schema
	Responses   map[string]*Schema
}

// Document is a parsed OpenAPI 3.x document.
type Document struct {
	Version    string
	Components Components
	Routes     []*RouteEntry
}

// ParseDocument parses raw YAML or JSON OpenAPI content (YAML is a
// JSON superset, so gopkg.in/yaml.v3 handles both) into a Document.
func ParseDocument(raw []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, aroerr.Wrap(aroerr.KindInvalidExpression, err)
	}
	if len(root.Content) == 0 {
		return nil, aroerr.New(aroerr.KindNoContract, "empty OpenAPI document", nil)
	}
	docNode := root.Content[0]

	var raw2 map[string]yaml.Node
	if err := docNode.Decode(&raw2); err != nil {
		return nil, aroerr.Wrap(aroerr.KindInvalidExpression, err)
	}

	version := ""
	if v, ok := raw2["openapi"]; ok {
		_ = v.Decode(&version)
	}
	if !strings.HasPrefix(version, "3.") {
		return nil, aroerr.New(aroerr.KindNoContract,
			fmt.Sprintf("unsupported openapi version %q, expected 3.x", version), nil)
	}

	components, err := parseComponents(raw2)
	if err != nil {
		return nil, err
	}

	routes, err := parseRoutes(raw2)
	if err != nil {
		return nil, err
	}

	return &Document{Version: version, Components: components, Routes: routes}, nil
}

func parseComponents(doc map[string]yaml.Node) (Components, error) {
	out := make(Components)
	compNode, ok := doc["components"]
	if !ok {
		return out, nil
	}
	var comp map[string]yaml.Node
	if err := compNode.Decode(&comp); err != nil {
		return nil, aroerr.Wrap(aroerr.KindInvalidExpression, err)
	}
	schemasNode, ok := comp["schemas"]
	if !ok {
		return out, nil
	}
	var schemas map[string]yaml.Node
	if err := schemasNode.Decode(&schemas); err != nil {
		return nil, aroerr.Wrap(aroerr.KindInvalidExpression, err)
	}
	for name, node := range schemas {
		node := node
		schema, err := decodeSchema(&node)
		if err != nil {
			return nil, aroerr.Wrap(aroerr.KindInvalidExpression, err)
		}
		out[name] = schema
	}
	return out, nil
}

func parseRoutes(doc map[string]yaml.Node) ([]*RouteEntry, error) {
	pathsNode, ok := doc["paths"]
	if !ok {
		return nil, nil
	}
	var paths map[string]yaml.Node
	if err := pathsNode.Decode(&paths); err != nil {
		return nil, aroerr.Wrap(aroerr.KindInvalidExpression, err)
	}

	// Deterministic iteration order ("ties broken
	// by insertion order") requires a stable traversal of the document's
	// own path declaration order, which yaml.v3's map decode loses; sort
	// by template as a stand-in, and within one template take methods in
	// the fixed supportedMethods order below.
	templates := make([]string, 0, len(paths))
	for t := range paths {
		templates = append(templates, t)
	}
	sort.Strings(templates)

	var routes []*RouteEntry
	for _, template := range templates {
		pathItemNode := paths[template]
		var pathItem map[string]yaml.Node
		if err := pathItemNode.Decode(&pathItem); err != nil {
			return nil, aroerr.Wrap(aroerr.KindInvalidExpression, err)
		}
		for _, method := range supportedMethods {
			opNode, ok := pathItem[method]
			if !ok {
				continue
			}
			op, opID, err := parseOperation(&opNode)
			if err != nil {
				return nil, err
			}
			if opID == "" {
				continue // skip entries without an operationId
			}
			routes = append(routes, &RouteEntry{
				Method:      strings.ToUpper(method),
				Pattern:     template,
				OperationID: opID,
				Operation:   op,
			})
		}
	}
	return routes, nil
}

func parseOperation(node *yaml.Node) (*Operation, string, error) {
	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return nil, "", aroerr.Wrap(aroerr.KindInvalidExpression, err)
	}
	var operationID string
	if v, ok := raw["operationId"]; ok {
		_ = v.Decode(&operationID)
	}

	op := &Operation{OperationID: operationID, Responses: make(map[string]*Schema)}

	if bodyNode, ok := raw["requestBody"]; ok {
		schema, err := extractJSONBodySchema(&bodyNode)
		if err != nil {
			return nil, "", err
		}
		op.RequestBody = schema
	}

	if respNode, ok := raw["responses"]; ok {
		var responses map[string]yaml.Node
		if err := respNode.Decode(&responses); err != nil {
			return nil, "", aroerr.Wrap(aroerr.KindInvalidExpression, err)
		}
		for status, respDef := range responses {
			respDef := respDef
			schema, err := extractJSONBodySchema(&respDef)
			if err != nil {
				return nil, "", err
			}
			if schema != nil {
				op.Responses[status] = schema
			}
		}
	}

	return op, operationID, nil
}

// extractJSONBodySchema pulls `content["application/json"].schema` out
// of a requestBody or response object.
func extractJSONBodySchema(node *yaml.Node) (*Schema, error) {
	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return nil, aroerr.Wrap(aroerr.KindInvalidExpression, err)
	}
	contentNode, ok := raw["content"]
	if !ok {
		return nil, nil
	}
	var content map[string]yaml.Node
	if err := contentNode.Decode(&content); err != nil {
		return nil, aroerr.Wrap(aroerr.KindInvalidExpression, err)
	}
	jsonNode, ok := content["application/json"]
	if !ok {
		return nil, nil
	}
	var mediaType map[string]yaml.Node
	if err := jsonNode.Decode(&mediaType); err != nil {
		return nil, aroerr.Wrap(aroerr.KindInvalidExpression, err)
	}
	schemaNode, ok := mediaType["schema"]
	if !ok {
		return nil, nil
	}
	return decodeSchema(&schemaNode)
}
