package resource

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getmockd/entityd/pkg/httputil"
	"github.com/getmockd/entityd/pkg/logging"
)

// DefaultApplicationName is the title used in the OpenAPI document.
const DefaultApplicationName = "entityd"

// Application groups resources under a common base path.
type Application struct {
	name      string
	basePath  string
	resources []*Resource
	log       *slog.Logger
}

// NewApplication creates an application serving resources under basePath.
// basePath is either empty or starts with "/" and has no trailing slash.
func NewApplication(name, basePath string, log *slog.Logger, resources ...*Resource) *Application {
	if name == "" {
		name = DefaultApplicationName
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Application{
		name:      name,
		basePath:  basePath,
		resources: resources,
		log:       log,
	}
}

// BasePath returns the path prefix shared by all resources.
func (a *Application) BasePath() string {
	return a.basePath
}

// Resources returns the registered resources.
func (a *Application) Resources() []*Resource {
	return a.resources
}

// Register adds every resource route and the OpenAPI document routes
// ({base}/openapi.json and {base}/openapi.yaml) to mux.
func (a *Application) Register(ctx context.Context, mux *http.ServeMux) error {
	seen := make(map[string]bool, len(a.resources))
	for _, r := range a.resources {
		if seen[r.Name()] {
			return fmt.Errorf("duplicate resource %q", r.Name())
		}
		seen[r.Name()] = true
		r.Register(mux, a.basePath)
		a.log.Debug("resource registered", "resource", r.Name(), "path", r.Path(a.basePath))
	}

	doc, err := a.BuildOpenAPI(ctx)
	if err != nil {
		return err
	}
	mux.HandleFunc("GET "+a.basePath+"/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteRaw(w, http.StatusOK, httputil.ContentTypeJSON, doc.JSON)
	})
	mux.HandleFunc("GET "+a.basePath+"/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteRaw(w, http.StatusOK, httputil.ContentTypeYAML, doc.YAML)
	})
	return nil
}
