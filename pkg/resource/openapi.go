package resource

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml.tmpl
var openAPITemplate string

var openAPITmpl = template.Must(template.New("openapi").Parse(openAPITemplate))

// OpenAPI is a rendered OpenAPI 3 document in both encodings.
type OpenAPI struct {
	Doc  *openapi3.T
	JSON []byte
	YAML []byte
}

type openAPIResource struct {
	Name        string
	Title       string
	MaxPageSize int
}

// BuildOpenAPI renders and validates the OpenAPI document describing every
// resource of the application.
func (a *Application) BuildOpenAPI(ctx context.Context) (*OpenAPI, error) {
	server := a.basePath
	if server == "" {
		server = "/"
	}

	title := cases.Title(language.English)
	resources := make([]openAPIResource, len(a.resources))
	for i, r := range a.resources {
		resources[i] = openAPIResource{
			Name:        r.Name(),
			Title:       title.String(r.Name()),
			MaxPageSize: r.maxPageSize,
		}
	}

	var buf bytes.Buffer
	err := openAPITmpl.Execute(&buf, map[string]any{
		"Title":     a.name,
		"Server":    server,
		"Resources": resources,
	})
	if err != nil {
		return nil, fmt.Errorf("render openapi template: %w", err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}

	jsonDoc, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal openapi JSON: %w", err)
	}
	yamlDoc, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal openapi YAML: %w", err)
	}

	return &OpenAPI{Doc: doc, JSON: jsonDoc, YAML: yamlDoc}, nil
}
