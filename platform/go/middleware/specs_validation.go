package middleware

import (
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"go.uber.org/zap"

	"github.com/flowlyst-io/agents/platform/go/httpapi"
)

// SpecValidator rejects requests that do not match the OpenAPI document
// before they reach a handler. Rejections are rendered as problem details.
// Validation runs against a copy of the document with its servers cleared so
// paths match as written; spec itself is left untouched.
func SpecValidator(spec *openapi3.T, logger *zap.Logger) func(http.Handler) http.Handler {
	if spec == nil {
		panic("openapi spec is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	validated := *spec
	validated.Servers = nil

	return func(next http.Handler) http.Handler {
		validate := oapimiddleware.OapiRequestValidatorWithOptions(&validated, &oapimiddleware.Options{
			Options: openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
			SilenceServersWarning: true,
			ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
				logger.Debug("request rejected by contract",
					zap.Int("status", statusCode),
					zap.String("reason", message),
				)
				httpapi.WriteProblem(w, contractProblem(message, statusCode))
			},
		})
		return validate(next)
	}
}

// contractProblem maps validator failures onto problem documents. Unknown
// routes become 404s, everything else is a bad request.
func contractProblem(message string, statusCode int) httpapi.ProblemDetails {
	message = strings.TrimSpace(message)
	switch statusCode {
	case http.StatusNotFound:
		return httpapi.ProblemDetails{
			Type:   httpapi.ProblemTypeNotFound,
			Title:  "Resource not found",
			Status: http.StatusNotFound,
			Detail: message,
		}
	case http.StatusMethodNotAllowed:
		return httpapi.ProblemDetails{
			Title:  "Method not allowed",
			Status: http.StatusMethodNotAllowed,
			Detail: message,
		}
	default:
		problem := httpapi.BadRequest(message)
		problem.Title = "Request does not match the API contract"
		return problem
	}
}
