// Package meta implements the table metadata store: an in-process map of
// per-table metadata records, loaded lazily per metadata type from DBMS
// specific loaders and persisted to an external cache under a versioned,
// tag-invalidated format.
//
// A Store serves one connection and is not safe for concurrent use; confine
// it to one goroutine or synchronize externally. The Cache it writes to may
// be shared across stores and processes.
package meta

import (
	"context"
	"encoding/json"
	"time"

	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/logger"
	"github.com/koustreak/dbmeta/internal/schema"
)

// CacheVersion is the format version stamped into persisted records. Bump
// it whenever a metadata value's JSON shape changes incompatibly.
const CacheVersion = 1

// versionField is reserved in persisted records and never a type label.
const versionField = "cacheVersion"

// Introspector is the DBMS-specific side of the store.
type Introspector interface {
	// ClassID identifies the dialect implementation in cache keys.
	ClassID() string
	// Quoter returns the identifier quoter for a connection with prefix.
	Quoter(prefix string) *schema.Quoter
	// Loaders returns the metadata loaders of this dialect.
	Loaders() *Registry
	// SchemaNames lists schemas; dialects that cannot return ErrKindUnsupported.
	SchemaNames(ctx context.Context) ([]string, error)
	// TableNames lists tables in schema ("" is the default schema).
	TableNames(ctx context.Context, schema string) ([]string, error)
}

// TableNameResolver is implemented by dialects that can split a qualified
// table name into its parts.
type TableNameResolver interface {
	ResolveTableName(name string) (schema.TableName, error)
}

// Options tunes a Store. The zero value is usable.
type Options struct {
	// CacheDuration is the TTL of persisted records; zero never expires.
	CacheDuration time.Duration
	Logger        *logger.Logger
}

// Store serves table metadata for one connection.
type Store struct {
	conn    Identity
	dialect Introspector
	loaders *Registry
	cache   Cache
	quoter  *schema.Quoter
	ttl     time.Duration
	log     *logger.Logger

	// raw table name -> metadata type label -> value (nil = known absent)
	tables      map[string]map[string]any
	tableNames  map[string][]string
	schemaNames []string
}

// NewStore builds a Store. A nil cache disables caching.
func NewStore(conn Identity, d Introspector, cache Cache, opts *Options) (*Store, error) {
	if d == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "metadata store needs an introspector")
	}
	loaders := d.Loaders()
	if loaders == nil {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "%s registered no metadata loaders", d.ClassID())
	}
	if err := loaders.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid metadata loader registry", err)
	}
	if len(loaders.order) == 0 {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "%s registered no metadata loaders", d.ClassID())
	}
	if cache == nil {
		cache = NoCache{}
	}
	if opts == nil {
		opts = &Options{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Global()
	}

	return &Store{
		conn:       conn,
		dialect:    d,
		loaders:    loaders,
		cache:      cache,
		quoter:     d.Quoter(conn.TablePrefix),
		ttl:        opts.CacheDuration,
		log:        log.Component("meta").With().Str("class", d.ClassID()).Logger(),
		tables:     make(map[string]map[string]any),
		tableNames: make(map[string][]string),
	}, nil
}

// Quoter returns the identifier quoter of this connection.
func (s *Store) Quoter() *schema.Quoter {
	return s.quoter
}

// RawTableName resolves templates and the table prefix in name.
func (s *Store) RawTableName(name string) string {
	return s.quoter.RawTableName(name)
}

// CacheKey returns the cache key of a table's metadata record.
func (s *Store) CacheKey(name string) CacheKey {
	return CacheKey{
		ClassID:  s.dialect.ClassID(),
		DSN:      s.conn.DSN,
		Username: s.conn.Username,
		Table:    s.RawTableName(name),
	}
}

// CacheTag returns the tag shared by every cached record of this connection.
func (s *Store) CacheTag() string {
	return CacheTag(s.dialect.ClassID(), s.conn.DSN, s.conn.Username)
}

// TableMetadata returns one kind of metadata for a table. Unless refresh is
// set, a value already held in-process is returned without touching the
// cache or the DBMS. A nil value with a nil error means the table or item
// does not exist.
func (s *Store) TableMetadata(ctx context.Context, name, typ string, refresh bool) (any, error) {
	l, ok := s.loaders.lookup(typ)
	if !ok {
		return nil, errs.Newf(errs.ErrKindUnsupported,
			"metadata type %q is not supported by %s", typ, s.dialect.ClassID())
	}

	raw := s.RawTableName(name)
	useCache := s.cacheable(raw)

	record, ok := s.tables[raw]
	if !ok {
		record = s.loadRecord(ctx, useCache, raw)
		s.tables[raw] = record
	}

	if v, has := record[typ]; has && !refresh {
		memoryHits.Inc()
		return v, nil
	}

	loaderCalls.Inc()
	s.log.DebugWith("loading table metadata", map[string]any{"table": raw, "type": typ})
	v, err := l.load(ctx, raw)
	if err != nil {
		return nil, err
	}
	record[typ] = v
	s.saveRecord(ctx, useCache, raw, record)
	return v, nil
}

// AllMetadata returns one kind of metadata for every table in schemaName,
// in table name order. Tables whose metadata is absent are skipped.
func (s *Store) AllMetadata(ctx context.Context, schemaName, typ string, refresh bool) ([]any, error) {
	names, err := s.TableNames(ctx, schemaName, refresh)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(names))
	for _, name := range names {
		if schemaName != "" {
			name = schemaName + "." + name
		}
		v, err := s.TableMetadata(ctx, name, typ, refresh)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

// TableNames returns the table names of schemaName ("" is the default schema).
func (s *Store) TableNames(ctx context.Context, schemaName string, refresh bool) ([]string, error) {
	if names, ok := s.tableNames[schemaName]; ok && !refresh {
		return names, nil
	}
	names, err := s.dialect.TableNames(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	s.tableNames[schemaName] = names
	return names, nil
}

// SchemaNames returns the schema names of the database. Dialects that cannot
// enumerate schemas return an error for which errs.IsUnsupported is true.
func (s *Store) SchemaNames(ctx context.Context, refresh bool) ([]string, error) {
	if s.schemaNames != nil && !refresh {
		return s.schemaNames, nil
	}
	names, err := s.dialect.SchemaNames(ctx)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	s.schemaNames = names
	return names, nil
}

// ResolveTableName splits a possibly qualified table name.
func (s *Store) ResolveTableName(name string) (schema.TableName, error) {
	r, ok := s.dialect.(TableNameResolver)
	if !ok {
		return schema.TableName{}, errs.Unsupported("table name resolution", s.dialect.ClassID())
	}
	return r.ResolveTableName(s.RawTableName(name))
}

// Refresh drops everything held in-process and, when caching is enabled,
// invalidates every cached record of this connection.
func (s *Store) Refresh(ctx context.Context) {
	if s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, s.CacheTag()); err != nil {
			cacheInvErrors.Inc()
			s.log.WarnWith("metadata cache invalidation failed", err, nil)
		}
	}
	s.tables = make(map[string]map[string]any)
	s.tableNames = make(map[string][]string)
	s.schemaNames = nil
}

// RefreshTable drops one table's metadata in-process and in the cache. The
// table name lists of all schemas are dropped too, since the set of tables
// may have changed.
func (s *Store) RefreshTable(ctx context.Context, name string) {
	raw := s.RawTableName(name)
	delete(s.tables, raw)
	s.tableNames = make(map[string][]string)

	if s.cache.Enabled() {
		if err := s.cache.Remove(ctx, s.CacheKey(raw).String()); err != nil {
			cacheDelErrors.Inc()
			s.log.WarnWith("metadata cache remove failed", err, map[string]any{"table": raw})
		}
	}
}

func (s *Store) cacheable(raw string) bool {
	return s.cache.Enabled() && !s.cache.Excluded(raw)
}

// loadRecord reads a table's record from the cache. Anything unusable is a
// miss and yields an empty record.
func (s *Store) loadRecord(ctx context.Context, useCache bool, raw string) map[string]any {
	record := make(map[string]any)
	if !useCache {
		return record
	}

	data, found, err := s.cache.Get(ctx, s.CacheKey(raw).String())
	if err != nil {
		cacheGetErrors.Inc()
		s.log.WarnWith("metadata cache read failed", err, map[string]any{"table": raw})
		return record
	}
	if !found {
		return record
	}

	var stored map[string]json.RawMessage
	if err := json.Unmarshal(data, &stored); err != nil {
		s.log.WarnWith("discarding undecodable metadata cache record", err, map[string]any{"table": raw})
		return record
	}

	var version int
	if v, ok := stored[versionField]; !ok || json.Unmarshal(v, &version) != nil || version != CacheVersion {
		versionMismatch.Inc()
		s.log.DebugWith("metadata cache record has a stale format version", map[string]any{"table": raw})
		return record
	}
	delete(stored, versionField)

	for typ, rawValue := range stored {
		l, ok := s.loaders.lookup(typ)
		if !ok {
			continue
		}
		v, err := l.decode(rawValue)
		if err != nil {
			s.log.WarnWith("discarding undecodable metadata cache record", err,
				map[string]any{"table": raw, "type": typ})
			return make(map[string]any)
		}
		record[typ] = v
	}
	cacheHits.Inc()
	return record
}

func (s *Store) saveRecord(ctx context.Context, useCache bool, raw string, record map[string]any) {
	if !useCache {
		return
	}

	persisted := make(map[string]any, len(record)+1)
	for typ, v := range record {
		persisted[typ] = v
	}
	persisted[versionField] = CacheVersion

	data, err := json.Marshal(persisted)
	if err != nil {
		cacheSetErrors.Inc()
		s.log.WarnWith("metadata cache record is not serializable", err, map[string]any{"table": raw})
		return
	}
	if err := s.cache.Set(ctx, s.CacheKey(raw).String(), data, s.ttl, s.CacheTag()); err != nil {
		cacheSetErrors.Inc()
		s.log.WarnWith("metadata cache write failed", err, map[string]any{"table": raw})
	}
}
