package meta

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

const (
	keyPrefix = "dbmeta:table:"
	tagPrefix = "dbmeta:conn:"
)

// Identity is what the store knows about its connection. It is used for
// cache key and tag derivation and raw name resolution only.
type Identity struct {
	DSN         string
	Username    string
	TablePrefix string
}

// CacheKey identifies one table's cached metadata record.
type CacheKey struct {
	ClassID  string
	DSN      string
	Username string
	Table    string // raw table name
}

// String encodes the key for a cache backend. The four components are JSON
// encoded as an array before hashing, so distinct tuples never share an
// encoding even when components contain separators.
func (k CacheKey) String() string {
	return keyPrefix + digest(k.ClassID, k.DSN, k.Username, k.Table)
}

// CacheTag returns the tag shared by every cached record of one connection.
func CacheTag(classID, dsn, username string) string {
	return tagPrefix + digest(classID, dsn, username)
}

func digest(parts ...string) string {
	// Marshalling a []string cannot fail.
	b, _ := json.Marshal(parts)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
