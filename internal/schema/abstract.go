package schema

import (
	"strconv"
	"strings"
)

// Abstract is a DBMS-independent column type.
type Abstract string

const (
	TypePK        Abstract = "pk"
	TypeUPK       Abstract = "upk"
	TypeBigPK     Abstract = "bigpk"
	TypeUBigPK    Abstract = "ubigpk"
	TypeChar      Abstract = "char"
	TypeString    Abstract = "string"
	TypeText      Abstract = "text"
	TypeTinyInt   Abstract = "tinyint"
	TypeSmallInt  Abstract = "smallint"
	TypeInteger   Abstract = "integer"
	TypeBigInt    Abstract = "bigint"
	TypeFloat     Abstract = "float"
	TypeDouble    Abstract = "double"
	TypeDecimal   Abstract = "decimal"
	TypeDatetime  Abstract = "datetime"
	TypeTimestamp Abstract = "timestamp"
	TypeTime      Abstract = "time"
	TypeDate      Abstract = "date"
	TypeBinary    Abstract = "binary"
	TypeBoolean   Abstract = "boolean"
	TypeMoney     Abstract = "money"
	TypeJSON      Abstract = "json"
)

// HostType is the Go-side representation chosen for a column's values.
type HostType string

const (
	HostString  HostType = "string"
	HostInteger HostType = "integer"
	HostBoolean HostType = "boolean"
	HostFloat   HostType = "float"
	HostBytes   HostType = "bytes"
	HostJSON    HostType = "json"
)

// hostTypes is read-only after init.
var hostTypes = map[Abstract]HostType{
	TypeTinyInt:  HostInteger,
	TypeSmallInt: HostInteger,
	TypeInteger:  HostInteger,
	TypeBigInt:   HostInteger,
	TypeBoolean:  HostBoolean,
	TypeFloat:    HostFloat,
	TypeDouble:   HostFloat,
	TypeBinary:   HostBytes,
	TypeJSON:     HostJSON,
}

// HostTypeFor maps an abstract type to the host type for the platform
// integer width intSize (32 or 64). A bigint only fits a native integer
// when the platform is 64-bit and the column is signed; an integer only
// overflows when the platform is 32-bit and the column is unsigned. Those
// cases fall back to strings to avoid precision loss. Unmapped types are
// strings.
func HostTypeFor(t Abstract, unsigned bool, intSize int) HostType {
	host, ok := hostTypes[t]
	if !ok {
		return HostString
	}
	switch t {
	case TypeBigInt:
		if intSize == 64 && !unsigned {
			return HostInteger
		}
		return HostString
	case TypeInteger:
		if intSize == 32 && unsigned {
			return HostString
		}
		return HostInteger
	}
	return host
}

// ResolveHostType sets c.HostType for the running platform.
func (c *Column) ResolveHostType() {
	c.HostType = HostTypeFor(c.Type, c.Unsigned, strconv.IntSize)
}

// TypeMap maps lower-case DBMS type names to abstract types.
type TypeMap map[string]Abstract

// Lookup returns the abstract type for dbType, matching on the bare type
// name (before any "(" size suffix or trailing modifiers). Unknown types map
// to TypeString.
func (m TypeMap) Lookup(dbType string) Abstract {
	name := strings.ToLower(strings.TrimSpace(dbType))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	if t, ok := m[name]; ok {
		return t
	}
	if i := strings.IndexByte(name, ' '); i >= 0 {
		if t, ok := m[name[:i]]; ok {
			return t
		}
	}
	return TypeString
}

// ParseSize reads "(size)" or "(precision,scale)" from a DBMS type string
// such as "decimal(10,2)". Enum value lists are returned separately.
func ParseSize(dbType string) (size, precision, scale int, enum []string) {
	open := strings.IndexByte(dbType, '(')
	end := strings.LastIndexByte(dbType, ')')
	if open < 0 || end <= open {
		return 0, 0, 0, nil
	}
	inner := dbType[open+1 : end]
	lower := strings.ToLower(dbType)
	if strings.HasPrefix(lower, "enum") || strings.HasPrefix(lower, "set") {
		for _, v := range strings.Split(inner, ",") {
			v = strings.TrimSpace(v)
			v = strings.TrimSuffix(strings.TrimPrefix(v, "'"), "'")
			enum = append(enum, strings.ReplaceAll(v, "''", "'"))
		}
		return 0, 0, 0, enum
	}
	parts := strings.Split(inner, ",")
	size, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	precision = size
	if len(parts) > 1 {
		scale, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return size, precision, scale, nil
}
