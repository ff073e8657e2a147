package openapi

import (
	"fmt"

	"github.com/arolang/aro/internal/aroerr"
	"github.com/arolang/aro/internal/ast"
)

// ValidateContract performs the compile-time contract checks a program
// must pass before it may execute: every operation has an
// operationId (already enforced by parseRoutes skipping entries without
// one — reported here as missing-operation-id so a caller can still
// surface it), operationIds are unique, every $ref resolves, and every
// operationId names a feature set in program.
func ValidateContract(doc *Document, program ast.Program) []*aroerr.Error {
	var errs []*aroerr.Error

	seen := make(map[string]bool)
	for _, route := range doc.Routes {
		if route.OperationID == "" {
			errs = append(errs, aroerr.New(aroerr.KindMissingOperationID,
				fmt.Sprintf("%s %s has no operationId", route.Method, route.Pattern), nil))
			continue
		}
		if seen[route.OperationID] {
			errs = append(errs, aroerr.New(aroerr.KindDuplicateOperationID,
				fmt.Sprintf("operationId %q is declared more than once", route.OperationID), nil).
				WithDetail("operationId", route.OperationID))
			continue
		}
		seen[route.OperationID] = true

		if route.Operation != nil {
			errs = append(errs, checkRefs(route.Operation.RequestBody, doc.Components)...)
			for _, respSchema := range route.Operation.Responses {
				errs = append(errs, checkRefs(respSchema, doc.Components)...)
			}
		}

		if _, ok := program.ByName(route.OperationID); !ok {
			errs = append(errs, aroerr.New(aroerr.KindMissingHandler,
				fmt.Sprintf("operationId %q has no matching feature set", route.OperationID), nil).
				WithDetail("operationId", route.OperationID))
		}
	}

	return errs
}

func checkRefs(schema *Schema, components Components) []*aroerr.Error {
	if schema == nil {
		return nil
	}
	var errs []*aroerr.Error
	if schema.Ref != "" {
		if _, err := resolveRef(schema, components, nil); err != nil {
			errs = append(errs, err)
		}
	}
	if schema.Items != nil {
		errs = append(errs, checkRefs(schema.Items, components)...)
	}
	for _, prop := range schema.Properties {
		errs = append(errs, checkRefs(prop, components)...)
	}
	return errs
}
