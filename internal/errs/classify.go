package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Rule maps a message fragment to the kind of error it indicates.
type Rule struct {
	Pattern string
	Kind    ErrKind
}

// Rules is an ordered rule list. Order matters: when several patterns match
// a message, the one declared last wins.
type Rules []Rule

// DefaultRules is the classification every dialect starts from.
var DefaultRules = Rules{
	{Pattern: "SQLSTATE[23", Kind: ErrKindIntegrityViolation},
}

// With returns a copy of r with extra appended after the existing rules, so
// the extra rules override on conflict.
func (r Rules) With(extra ...Rule) Rules {
	out := make(Rules, 0, len(r)+len(extra))
	out = append(out, r...)
	return append(out, extra...)
}

// Match scans msg against every rule in declaration order and returns the
// kind of the last matching rule, or def when none match.
func (r Rules) Match(msg string, def ErrKind) ErrKind {
	kind := def
	for _, rule := range r {
		if strings.Contains(msg, rule.Pattern) {
			kind = rule.Kind
		}
	}
	return kind
}

// Classify turns a low-level driver error raised while executing sql into an
// *Error. The kind is picked by scanning rules over the error message (and a
// "SQLSTATE[xxxxx]" prefix when info carries a state). Errors that are
// already classified are returned unchanged.
func Classify(err error, sql string, rules Rules, info *DriverInfo) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{
			Kind:    ErrKindTimeout,
			Message: describe(err, sql),
			Cause:   err,
			SQL:     sql,
			Info:    info,
		}
	}

	return &Error{
		Kind:    rules.Match(scanText(err, info), ErrKindQueryFailed),
		Message: describe(err, sql),
		Cause:   err,
		SQL:     sql,
		Info:    info,
	}
}

// scanText is the string the rules are matched against.
func scanText(err error, info *DriverInfo) string {
	if info != nil && info.SQLState != "" {
		return fmt.Sprintf("SQLSTATE[%s]: %s", info.SQLState, err.Error())
	}
	return err.Error()
}

func describe(err error, sql string) string {
	if sql == "" {
		return err.Error()
	}
	return fmt.Sprintf("%s\nThe SQL being executed was: %s", err.Error(), sql)
}
