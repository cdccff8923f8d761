// Package metaapi exposes a metadata store over HTTP.
//
//	GET    /schemas                  schema names
//	GET    /schemas/{schema}/tables  table names in a schema
//	GET    /tables                   table names in the default schema
//	GET    /tables/{table}/{type}    one kind of metadata for a table
//	DELETE /tables/{table}           drop a table's cached metadata
//	DELETE /tables                   drop every cached table metadata
//	GET    /metrics                  Prometheus metrics
//
// GET routes accept ?refresh=true to bypass cached values.
package metaapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/logger"
	"github.com/koustreak/dbmeta/internal/meta"
)

var requests = metrics.GetOrCreateCounter(`dbmeta_http_requests_total`)

// Handler serves one metadata store. Requests are serialized because a
// Store is confined to one goroutine at a time.
type Handler struct {
	mu     sync.Mutex
	store  *meta.Store
	log    *logger.Logger
	router chi.Router
}

// New returns a Handler for store. A nil log means logger.Global().
func New(store *meta.Store, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Global()
	}
	h := &Handler{store: store, log: log.Component("metaapi")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(countRequests)

	r.Get("/schemas", h.schemaNames)
	r.Get("/schemas/{schema}/tables", h.tableNames)
	r.Get("/tables", h.tableNames)
	r.Get("/tables/{table}/{type}", h.tableMetadata)
	r.Delete("/tables/{table}", h.refreshTable)
	r.Delete("/tables", h.refresh)
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		metrics.WritePrometheus(w, false)
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Inc()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) schemaNames(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	names, err := h.store.SchemaNames(r.Context(), wantRefresh(r))
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": names})
}

func (h *Handler) tableNames(w http.ResponseWriter, r *http.Request) {
	schemaName, err := pathParam(r, "schema")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.mu.Lock()
	names, err := h.store.TableNames(r.Context(), schemaName, wantRefresh(r))
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schema": schemaName, "tables": names})
}

func (h *Handler) tableMetadata(w http.ResponseWriter, r *http.Request) {
	table, err := pathParam(r, "table")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	typ := chi.URLParam(r, "type")

	h.mu.Lock()
	v, err := h.store.TableMetadata(r.Context(), table, typ, wantRefresh(r))
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if v == nil {
		h.writeError(w, r, errs.Newf(errs.ErrKindNotFound, "no %s metadata for table %q", typ, table))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) refreshTable(w http.ResponseWriter, r *http.Request) {
	table, err := pathParam(r, "table")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.mu.Lock()
	h.store.RefreshTable(r.Context(), table)
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.store.Refresh(context.WithoutCancel(r.Context()))
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WarnWith("metadata request failed", err, map[string]any{
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		})
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindUnsupported:
		return http.StatusNotImplemented
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// pathParam returns the unescaped URL parameter, so that names such as
// "[my.db].dbo.users" survive percent-encoding.
func pathParam(r *http.Request, key string) (string, error) {
	v, err := url.PathUnescape(chi.URLParam(r, key))
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "malformed path parameter "+key, err)
	}
	return v, nil
}

func wantRefresh(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return ok
}
