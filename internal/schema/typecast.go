package schema

import (
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Typecast converts a value read from the DBMS into the column's host type.
// An empty string becomes nil unless the column stores text or bytes.
func (c *Column) Typecast(v any) (any, error) {
	if s, ok := v.(string); ok && s == "" {
		switch c.Type {
		case TypeText, TypeString, TypeBinary, TypeChar:
			return v, nil
		}
		return nil, nil
	}
	if v == nil {
		return nil, nil
	}

	switch c.HostType {
	case HostString:
		switch x := v.(type) {
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		case float32:
			return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
		case []byte:
			return string(x), nil
		}
		return cast.ToStringE(v)
	case HostInteger:
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		return cast.ToInt64E(v)
	case HostFloat:
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		return cast.ToFloat64E(v)
	case HostBoolean:
		switch x := v.(type) {
		case []byte:
			return truthy(string(x)), nil
		case string:
			return truthy(x), nil
		}
		return cast.ToBoolE(v)
	case HostBytes:
		if s, ok := v.(string); ok {
			return []byte(s), nil
		}
	}
	return v, nil
}

// truthy follows loose string semantics: "", "0", "\x00" and any casing of
// "false" are false, everything else is true.
func truthy(s string) bool {
	return s != "" && s != "0" && s != "\x00" && !strings.EqualFold(s, "false")
}
