// Package swagger serves the OpenAPI document and an embedded Swagger UI.
package swagger

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

const (
	specPath = "/openapi.yaml"
	docsPath = "/api-docs"
)

// Register attaches the docs routes to r.
//
//	GET /openapi.yaml -> embedded OpenAPI document
//	GET /api-docs/    -> Swagger UI loading /openapi.yaml
func Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}

	r.Get(specPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	})
	r.Mount(docsPath, v5emb.New("racetime API", specPath, docsPath))
}
