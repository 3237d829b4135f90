// Package resource exposes an entity store over HTTP: a collection endpoint,
// an item endpoint keyed by integer id, the resource's OpenAPI document and,
// in singleton scope, a websocket stream of change events.
package resource

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/getmockd/entityd/pkg/entity"
	"github.com/getmockd/entityd/pkg/httputil"
	"github.com/getmockd/entityd/pkg/logging"
)

// DefaultMaxBodySize is the largest accepted request body (1 MiB).
const DefaultMaxBodySize = 1 << 20

// Resource serves CRUD operations for one entity store.
type Resource struct {
	provider    *entity.Provider
	feed        *entity.Feed
	log         *slog.Logger
	maxBodySize int64
	maxPageSize int
}

// Option configures a Resource.
type Option func(*Resource)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Resource) {
		if log != nil {
			r.log = log
		}
	}
}

// WithFeed enables the change event stream. It is ignored in request scope.
func WithFeed(feed *entity.Feed) Option {
	return func(r *Resource) {
		r.feed = feed
	}
}

// WithMaxBodySize sets the request body limit in bytes.
func WithMaxBodySize(n int64) Option {
	return func(r *Resource) {
		if n > 0 {
			r.maxBodySize = n
		}
	}
}

// WithMaxPageSize caps the pageSize query parameter.
func WithMaxPageSize(n int) Option {
	return func(r *Resource) {
		r.maxPageSize = n
	}
}

// New creates a resource backed by the provider's stores.
func New(provider *entity.Provider, opts ...Option) *Resource {
	r := &Resource{
		provider:    provider,
		log:         logging.Nop(),
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if provider.Scope() != entity.ScopeSingleton {
		r.feed = nil
	}
	return r
}

// Name returns the resource name, which is also its path segment.
func (r *Resource) Name() string {
	return r.provider.Shared().Name()
}

// Path returns the collection path under base.
func (r *Resource) Path(base string) string {
	return base + "/" + r.Name()
}

// Register adds the resource's routes under base to mux.
func (r *Resource) Register(mux *http.ServeMux, base string) {
	path := r.Path(base)

	mux.HandleFunc("GET "+path, r.handleList)
	mux.HandleFunc("POST "+path, r.handleCreate)
	mux.HandleFunc("GET "+path+"/{id}", r.handleGet)
	mux.HandleFunc("PUT "+path+"/{id}", r.handlePut)
	mux.HandleFunc("DELETE "+path+"/{id}", r.handleDelete)

	if r.feed != nil {
		mux.Handle("GET "+path+"/events", NewEventStream(r.feed, r.log))
	}
}

// handleGet returns a single entity by id.
func (r *Resource) handleGet(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, err)
		return
	}

	e, ok := r.provider.Acquire().Get(id)
	if !ok {
		r.writeError(w, &entity.NotFoundError{Resource: r.Name(), ID: id})
		return
	}
	httputil.WriteOK(w, e)
}

// handleList returns the collection wrapped in a Page.
func (r *Resource) handleList(w http.ResponseWriter, req *http.Request) {
	q, err := entity.ParseQuery(req.URL.Query(), r.maxPageSize)
	if err != nil {
		r.writeError(w, err)
		return
	}

	page, err := r.provider.Acquire().Query(q)
	if err != nil {
		r.writeError(w, err)
		return
	}
	httputil.WriteOK(w, page)
}

// handleCreate stores the body entity, inserting or overwriting by its id.
func (r *Resource) handleCreate(w http.ResponseWriter, req *http.Request) {
	m, err := r.readBody(w, req)
	if err != nil {
		r.writeError(w, err)
		return
	}

	e, err := entity.FromMap(m)
	if err != nil {
		r.writeError(w, err)
		return
	}

	stored := r.provider.Acquire().Put(e)
	r.log.Debug("entity stored", "resource", r.Name(), "id", stored.ID)
	httputil.WriteOK(w, stored)
}

// handlePut overwrites the entity. The body id wins over the path id; a body
// without an id is stored under the path id.
func (r *Resource) handlePut(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, err)
		return
	}

	m, err := r.readBody(w, req)
	if err != nil {
		r.writeError(w, err)
		return
	}
	if raw, ok := m[entity.IDField]; !ok || raw == nil {
		m[entity.IDField] = id
	}

	e, err := entity.FromMap(m)
	if err != nil {
		r.writeError(w, err)
		return
	}
	if e.ID != id {
		r.log.Warn("body id differs from path id, storing under body id",
			"resource", r.Name(), "pathId", id, "bodyId", e.ID)
	}

	stored := r.provider.Acquire().Put(e)
	httputil.WriteOK(w, stored)
}

// handleDelete removes the entity. Deleting a missing id still returns 204.
func (r *Resource) handleDelete(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req)
	if err != nil {
		r.writeError(w, err)
		return
	}

	removed := r.provider.Acquire().Delete(id)
	r.log.Debug("entity deleted", "resource", r.Name(), "id", id, "removed", removed)
	httputil.WriteNoContent(w)
}

func (r *Resource) readBody(w http.ResponseWriter, req *http.Request) (map[string]any, error) {
	data, err := httputil.ReadBody(w, req, r.maxBodySize)
	if err != nil {
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			return nil, &entity.PayloadTooLargeError{MaxSize: r.maxBodySize}
		}
		return nil, err
	}
	return entity.DecodeMap(data)
}

// writeError renders err as an ErrorResponse. Unexpected errors are logged.
func (r *Resource) writeError(w http.ResponseWriter, err error) {
	resp := entity.ToErrorResponse(err)
	if resp.StatusCode >= http.StatusInternalServerError {
		r.log.Error("request failed", "resource", r.Name(), "error", err)
	}
	httputil.WriteJSON(w, resp.StatusCode, resp)
}

func pathID(req *http.Request) (int64, error) {
	id, err := entity.ParseID(req.PathValue("id"))
	if err != nil {
		return 0, &entity.ValidationError{Field: entity.IDField, Message: err.Error()}
	}
	return id, nil
}
