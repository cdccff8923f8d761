package schema

import (
	"regexp"
	"strings"
)

// QuoteChars is the pair of characters a DBMS wraps identifiers in.
// Most DBMS quote symmetrically; SQL Server uses "[" and "]".
type QuoteChars struct {
	Start string
	End   string
}

// Symmetric returns QuoteChars using c on both sides.
func Symmetric(c string) QuoteChars {
	return QuoteChars{Start: c, End: c}
}

// Quoter quotes and unquotes identifiers for one connection.
type Quoter struct {
	Table  QuoteChars
	Column QuoteChars

	// Prefix replaces "%" inside "{{...}}" table templates.
	Prefix string

	// SplitName splits a qualified table name into its parts. Nil splits on ".".
	SplitName func(name string) []string
}

// NewQuoter returns a Quoter using the same quote characters for tables and
// columns.
func NewQuoter(q QuoteChars, prefix string) *Quoter {
	return &Quoter{Table: q, Column: q, Prefix: prefix}
}

var (
	templateName = regexp.MustCompile(`\{\{(.*?)\}\}`)
	quoteTokens  = regexp.MustCompile(`(\{\{(%?[\w\-\. ]+%?)\}\}|\[\[([\w\-\. ]+)\]\])`)
	readQuery    = regexp.MustCompile(`(?i)^\s*(SELECT|SHOW|DESCRIBE)\b`)
)

// QuoteTableName quotes a possibly schema-qualified table name. Raw
// expressions in parentheses and "{{...}}" templates pass through unchanged.
func (q *Quoter) QuoteTableName(name string) string {
	if strings.HasPrefix(name, "(") && strings.Index(name, ")") == len(name)-1 {
		return name
	}
	if strings.Contains(name, "{{") {
		return name
	}
	if !strings.Contains(name, ".") {
		return q.QuoteSimpleTableName(name)
	}
	parts := q.splitName(name)
	for i, p := range parts {
		parts[i] = q.QuoteSimpleTableName(p)
	}
	return strings.Join(parts, ".")
}

// QuoteColumnName quotes a possibly table-qualified column name. Names
// containing "(" or "[[" pass through unchanged.
func (q *Quoter) QuoteColumnName(name string) string {
	if strings.Contains(name, "(") || strings.Contains(name, "[[") {
		return name
	}
	prefix := ""
	if pos := strings.LastIndex(name, "."); pos >= 0 {
		prefix = q.QuoteTableName(name[:pos]) + "."
		name = name[pos+1:]
	}
	if strings.Contains(name, "{{") {
		return name
	}
	return prefix + q.QuoteSimpleColumnName(name)
}

// QuoteSimpleTableName quotes an unqualified table name unless it already
// contains the opening quote character.
func (q *Quoter) QuoteSimpleTableName(name string) string {
	if strings.Contains(name, q.Table.Start) {
		return name
	}
	return q.Table.Start + name + q.Table.End
}

// EscapeTableName always quotes name as a single identifier, doubling any
// closing quote character inside it. Unlike QuoteSimpleTableName it never
// passes a name through, so it is safe for names taken from requests.
func (q *Quoter) EscapeTableName(name string) string {
	end := q.Table.End
	return q.Table.Start + strings.ReplaceAll(name, end, end+end) + end
}

// QuoteSimpleColumnName quotes an unqualified column name unless it is "*"
// or already contains the opening quote character.
func (q *Quoter) QuoteSimpleColumnName(name string) string {
	if name == "*" || strings.Contains(name, q.Column.Start) {
		return name
	}
	return q.Column.Start + name + q.Column.End
}

// UnquoteSimpleTableName strips one character from each end when the name
// contains the opening quote character. A lone quote character unquotes to "".
func (q *Quoter) UnquoteSimpleTableName(name string) string {
	return unquote(name, q.Table.Start)
}

// UnquoteSimpleColumnName strips one character from each end when the name
// contains the opening quote character.
func (q *Quoter) UnquoteSimpleColumnName(name string) string {
	return unquote(name, q.Column.Start)
}

func unquote(name, start string) string {
	if !strings.Contains(name, start) {
		return name
	}
	if len(name) < 2 {
		return ""
	}
	return name[1 : len(name)-1]
}

// RawTableName resolves "{{...}}" templates: the braces are removed and "%"
// is replaced with the table prefix. Other names are returned unchanged.
func (q *Quoter) RawTableName(name string) string {
	if !strings.Contains(name, "{{") {
		return name
	}
	name = templateName.ReplaceAllString(name, "$1")
	return strings.ReplaceAll(name, "%", q.Prefix)
}

// QuoteSQL quotes "{{table}}" and "[[column]]" tokens inside sql.
func (q *Quoter) QuoteSQL(sql string) string {
	return quoteTokens.ReplaceAllStringFunc(sql, func(tok string) string {
		m := quoteTokens.FindStringSubmatch(tok)
		if m[3] != "" {
			return q.QuoteColumnName(m[3])
		}
		return strings.ReplaceAll(q.QuoteTableName(m[2]), "%", q.Prefix)
	})
}

func (q *Quoter) splitName(name string) []string {
	if q.SplitName != nil {
		return q.SplitName(name)
	}
	return strings.Split(name, ".")
}

var bracketParts = regexp.MustCompile(`([^.\[\]]+)|\[([^\[\]]+)\]`)

// SplitBracketed splits a dotted name whose parts may be bracket quoted,
// e.g. "[my.db].dbo.users" -> ["my.db", "dbo", "users"].
func SplitBracketed(name string) []string {
	matches := bracketParts.FindAllString(name, -1)
	if len(matches) == 0 {
		return []string{name}
	}
	for i, m := range matches {
		matches[i] = strings.NewReplacer("[", "", "]", "").Replace(m)
	}
	return matches
}

var valueEscaper = strings.NewReplacer(
	"'", "''",
	"\x00", `\000`,
	"\n", `\n`,
	"\r", `\r`,
	`\`, `\\`,
	"\x1a", `\032`,
)

// QuoteValue returns s as a single-quoted SQL string literal. Prefer bound
// parameters; this exists for statements that cannot take them.
func QuoteValue(s string) string {
	return "'" + valueEscaper.Replace(s) + "'"
}

// IsReadQuery reports whether sql is a SELECT, SHOW or DESCRIBE statement.
func IsReadQuery(sql string) bool {
	return readQuery.MatchString(sql)
}
