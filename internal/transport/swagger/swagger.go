package swagger

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	httpSwagger "github.com/swaggo/http-swagger"
)

const SpecPath = "/openapi.yml"

// Spec is a loaded and validated OpenAPI document together with its raw bytes.
type Spec struct {
	Doc *openapi3.T
	raw []byte
}

// Load parses and validates the document so a broken spec fails at startup
// rather than in the Swagger UI.
func Load(ctx context.Context, raw []byte) (*Spec, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("swagger: parse openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("swagger: invalid openapi document: %w", err)
	}
	return &Spec{Doc: doc, raw: raw}, nil
}

// HasOperation reports whether the document describes method on path.
func (s *Spec) HasOperation(method, path string) bool {
	item := s.Doc.Paths.Find(path)
	if item == nil {
		return false
	}
	return item.GetOperation(method) != nil
}

func (s *Spec) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(s.raw)
}

func Handler() http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL(SpecPath),
	)
}
