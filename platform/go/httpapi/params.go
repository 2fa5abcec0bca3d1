package httpapi

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/flowlyst-io/agents/platform/go/apperrors"
)

// PathUUID binds a UUID path parameter using simple-style OpenAPI rules.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return uuid.Nil, apperrors.NewValidation(name, name+" must be a valid UUID")
	}
	return id, nil
}

// QueryString binds an optional form-style query parameter. It returns nil
// when the parameter is absent.
func QueryString(query url.Values, name string) (*string, error) {
	var value *string
	if err := runtime.BindQueryParameter("form", true, false, name, query, &value); err != nil {
		return nil, apperrors.NewValidation(name, "invalid "+name+" parameter")
	}
	return value, nil
}
