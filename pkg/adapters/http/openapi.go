package http

import (
	"context"
	_ "embed"
	"fmt"
	"maps"
	"mime"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var rawSpec []byte

// maxRequestBytes bounds the JSON bodies read during request validation.
const maxRequestBytes = maxPatchBytes

var (
	loadSpec = sync.OnceValues(func() (*openapi3.T, error) {
		if openapi3filter.RegisteredBodyDecoder(contentTypeMergePatch) == nil {
			openapi3filter.RegisterBodyDecoder(contentTypeMergePatch, openapi3filter.JSONBodyDecoder)
		}
		doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
		if err != nil {
			return nil, fmt.Errorf("load openapi document: %w", err)
		}
		if err := doc.Validate(context.Background()); err != nil {
			return nil, fmt.Errorf("invalid openapi document: %w", err)
		}
		return doc, nil
	})

	specRouter = sync.OnceValues(func() (routers.Router, error) {
		doc, err := loadSpec()
		if err != nil {
			return nil, err
		}
		router, err := legacy.NewRouter(doc)
		if err != nil {
			return nil, fmt.Errorf("openapi router: %w", err)
		}
		return router, nil
	})
)

func getOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	_, _ = w.Write(rawSpec)
}

// validateRequests checks parameters and JSON bodies against the API document.
// Requests for routes the document does not describe pass through.
func (s *Server) validateRequests(router routers.Router) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, params, err := router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			opts := &openapi3filter.Options{}
			if body := route.Operation.RequestBody; body != nil && body.Value != nil {
				if r.Header.Get("Content-Type") == "" {
					// Bodies sent without a media type are read as the first one documented.
					r.Header.Set("Content-Type", slices.Sorted(maps.Keys(body.Value.Content))[0])
				}
				if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); strings.HasPrefix(mediaType, "multipart/") {
					// Uploads are streamed and size-checked by the handler.
					opts.ExcludeRequestBody = true
				} else {
					r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
				}
			}

			err = openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: params,
				Route:      route,
				Options:    opts,
			})
			if err != nil {
				s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
