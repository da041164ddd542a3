package cmd

import (
	"strconv"
	"strings"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/predicate"
	"github.com/colpress/colpress/scalar"
)

var opTokens = []struct {
	text string
	op   array.CompareOp
}{
	{"!=", array.NotEq},
	{"<=", array.Lte},
	{">=", array.Gte},
	{"=", array.Eq},
	{"<", array.Lt},
	{">", array.Gt},
}

// parsePredicate parses a single "field op literal" clause, e.g.
// "score > 10" or "name = foo". It has no grouping or boolean combinators;
// those are only reachable via the predicate package's Go API.
func parsePredicate(expr string) (predicate.Expr, error) {
	expr = strings.TrimSpace(expr)
	for _, t := range opTokens {
		if idx := strings.Index(expr, t.text); idx >= 0 {
			field := strings.TrimSpace(expr[:idx])
			lit := strings.TrimSpace(expr[idx+len(t.text):])
			if field == "" || lit == "" {
				continue
			}
			return predicate.Compare{Col: predicate.Column{Path: field}, Op: t.op, Rhs: parseLiteral(lit)}, nil
		}
	}
	return nil, errs.New(errs.InvalidArgument, "cmd/colpress: cannot parse predicate %q (want \"field op literal\")", expr)
}

func parseLiteral(s string) scalar.Scalar {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return scalar.Int(dtype.I64, i, false)
		}
		return scalar.Float(dtype.F64, f, false)
	}
	return scalar.Utf8(s, false)
}
