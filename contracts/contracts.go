// Package contracts embeds the OpenAPI documents served and enforced by the
// API binary.
package contracts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed admin.yaml
var adminYAML []byte

// AdminYAML returns the raw admin API document.
func AdminYAML() []byte {
	return append([]byte(nil), adminYAML...)
}

// LoadAdmin parses and validates the admin API document. Every call returns a
// fresh copy, so callers may mutate it.
func LoadAdmin(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	spec, err := loader.LoadFromData(adminYAML)
	if err != nil {
		return nil, fmt.Errorf("load admin contract: %w", err)
	}
	if err := spec.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate admin contract: %w", err)
	}
	return spec, nil
}
