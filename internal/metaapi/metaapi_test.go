package metaapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/dbmeta/internal/cache"
	"github.com/koustreak/dbmeta/internal/database"
	"github.com/koustreak/dbmeta/internal/database/sqlite"
	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/logger"
	"github.com/koustreak/dbmeta/internal/meta"
	"github.com/koustreak/dbmeta/internal/schema"
)

func setup(t *testing.T) (*httptest.Server, *database.SQL) {
	ctx := context.Background()
	cfg := database.DefaultConfig(database.DriverSQLite, ":memory:")
	db, err := sqlite.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.DB().ExecContext(ctx, `
		CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL UNIQUE);
		CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER REFERENCES users (id));`)
	require.NoError(t, err)

	adapter := cache.New(cache.NewMemory(), cache.Config{Enabled: true})
	store, err := meta.NewStore(cfg.Identity(), sqlite.NewDialect(db, cfg), adapter, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(New(store, logger.Nop()))
	t.Cleanup(srv.Close)
	return srv, db
}

func do(t *testing.T, method, url string) *http.Response {
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestTableNames(t *testing.T) {
	srv, _ := setup(t)

	resp := do(t, http.MethodGet, srv.URL+"/tables")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Tables []string `json:"tables"`
	}
	decode(t, resp, &body)
	assert.Equal(t, []string{"posts", "users"}, body.Tables)

	resp = do(t, http.MethodGet, srv.URL+"/schemas/main/tables")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &body)
	assert.Equal(t, []string{"posts", "users"}, body.Tables)
}

func TestSchemaNames_Unsupported(t *testing.T) {
	srv, _ := setup(t)

	resp := do(t, http.MethodGet, srv.URL+"/schemas")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Contains(t, body["error"], "schema enumeration")
}

func TestTableMetadata(t *testing.T) {
	srv, _ := setup(t)

	resp := do(t, http.MethodGet, srv.URL+"/tables/users/schema")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var tbl schema.Table
	decode(t, resp, &tbl)
	assert.Equal(t, "users", tbl.Name)
	assert.Equal(t, []string{"id"}, tbl.PrimaryKey)
	assert.Equal(t, []string{"id", "email"}, tbl.ColumnNames())

	resp = do(t, http.MethodGet, srv.URL+"/tables/posts/foreignKeys")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fks schema.ForeignKeys
	decode(t, resp, &fks)
	require.Len(t, fks, 1)
	assert.Equal(t, "users", fks[0].ForeignTable)

	resp = do(t, http.MethodGet, srv.URL+"/tables/users/uniques")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var uq schema.Constraints
	decode(t, resp, &uq)
	require.Len(t, uq, 1)
	assert.Equal(t, []string{"email"}, uq[0].Columns)
}

func TestTableMetadata_Errors(t *testing.T) {
	srv, _ := setup(t)

	tests := []struct {
		path string
		want int
	}{
		{"/tables/missing/schema", http.StatusNotFound},
		{"/tables/posts/primaryKey", http.StatusOK},
		{"/tables/users/indexes", http.StatusNotImplemented},
		{"/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := do(t, http.MethodGet, srv.URL+tt.path)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRefresh(t *testing.T) {
	srv, db := setup(t)
	ctx := context.Background()

	resp := do(t, http.MethodGet, srv.URL+"/tables/posts/schema")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err := db.DB().ExecContext(ctx, `DROP TABLE posts`)
	require.NoError(t, err)

	// still served from the store
	resp = do(t, http.MethodGet, srv.URL+"/tables/posts/schema")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/tables/posts")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/tables/posts/schema")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/tables")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/tables")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Tables []string `json:"tables"`
	}
	decode(t, resp, &body)
	assert.Equal(t, []string{"users"}, body.Tables)
}

func TestMetrics(t *testing.T) {
	srv, _ := setup(t)
	do(t, http.MethodGet, srv.URL+"/tables/users/schema")

	resp := do(t, http.MethodGet, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sb strings.Builder
	_, err := io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), "dbmeta_http_requests_total")
	assert.Contains(t, sb.String(), `dbmeta_metadata_lookups_total{source="loader"}`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.Unsupported("x", "y"), http.StatusNotImplemented},
		{errs.New(errs.ErrKindInvalidInput, "bad"), http.StatusBadRequest},
		{errs.New(errs.ErrKindNotFound, "gone"), http.StatusNotFound},
		{errs.New(errs.ErrKindTimeout, "slow"), http.StatusGatewayTimeout},
		{errs.New(errs.ErrKindQueryFailed, "boom"), http.StatusInternalServerError},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
