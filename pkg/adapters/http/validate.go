package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// Validator checks requests against an OpenAPI document.
type Validator struct {
	doc    *openapi3.T
	router routers.Router
}

// NewValidator loads and validates the document.
func NewValidator(spec []byte) (*Validator, error) {
	doc, err := openapi3.NewLoader().LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build openapi router: %w", err)
	}
	return &Validator{doc: doc, router: router}, nil
}

// Version is the API version declared by the document.
func (v *Validator) Version() string {
	if v.doc.Info == nil {
		return ""
	}
	return v.doc.Info.Version
}

// Check validates one request. Routes missing from the document are
// reported with routers.ErrPathNotFound.
func (v *Validator) Check(r *http.Request) error {
	route, params, err := v.router.FindRoute(r)
	if err != nil {
		return err
	}
	return openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: params,
		Route:      route,
		Options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			MultiError:         false,
		},
	})
}

type problemWriter func(w http.ResponseWriter, status int, msg, kind string, suggestions []string)

// Middleware rejects requests that do not match the document.
func (v *Validator) Middleware(write problemWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			err := v.Check(r)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, routers.ErrPathNotFound):
				write(w, http.StatusNotFound, "no such route", "", nil)
			case errors.Is(err, routers.ErrMethodNotAllowed):
				write(w, http.StatusMethodNotAllowed, "method not allowed", "", nil)
			default:
				write(w, http.StatusBadRequest, requestErrorMessage(err), "", nil)
			}
		})
	}
}

func requestErrorMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Parameter != nil {
			return fmt.Sprintf("invalid parameter %q: %v", reqErr.Parameter.Name, reqErr.Err)
		}
		if reqErr.RequestBody != nil && reqErr.Err != nil {
			return fmt.Sprintf("invalid request body: %v", reqErr.Err)
		}
		return reqErr.Error()
	}
	return err.Error()
}
