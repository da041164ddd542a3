// Package predicate implements the boolean expression tree evaluated
// against scan batches: column references, literal scalars, comparison
// operators, and the logical combinators And/Or/Not, with short-circuit
// evaluation and chunk pruning from min/max statistics (spec.md §6
// "Predicate"). Evaluation does not push down into search_sorted.
//
// Grounded on encoding/pam.go's ValidateCoordRange range-filtering idea,
// generalized from a single coordinate range check to an arbitrary
// expression tree, and on interval.UnionScanner's short-circuit
// all-covered/none-covered shape for the And/Or all-true/all-false case.
package predicate

import (
	"fmt"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/compute"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/scalar"
	"github.com/colpress/colpress/stats"
	"github.com/colpress/colpress/validity"
)

// Expr is a boolean predicate tree node.
type Expr interface {
	// Eval evaluates the predicate against a struct-shaped root array,
	// returning an array of the same length: the referenced field for a
	// Column, a Bool mask (nullable where an operand is) for the others.
	Eval(root array.Array) (array.Array, error)
	// PruneChunk reports whether a chunk can be skipped entirely, using
	// only per-chunk layout statistics (no buffer fetch). ok=false means
	// the statistics available aren't enough to decide; the caller must
	// still fetch and evaluate.
	PruneChunk(fields map[string]*stats.Statistics) (skip bool, ok bool)
	String() string
}

// Column references a field by dotted path into the struct root
// (`"a.b.c"` for nested structs).
type Column struct {
	Path string
}

func (c Column) resolve(root array.Array) (array.Array, error) {
	cur := root
	start := 0
	for i := 0; i <= len(c.Path); i++ {
		if i < len(c.Path) && c.Path[i] != '.' {
			continue
		}
		name := c.Path[start:i]
		idx := cur.DType().FieldIndex(name)
		if idx < 0 {
			return array.Array{}, errs.New(errs.InvalidArgument, "predicate: unknown field %q in path %q", name, c.Path)
		}
		cur = cur.Child(idx)
		start = i + 1
	}
	return cur, nil
}

func (c Column) Eval(root array.Array) (array.Array, error) {
	return c.resolve(root)
}

func (c Column) PruneChunk(map[string]*stats.Statistics) (bool, bool) { return false, false }

func (c Column) String() string { return c.Path }

// Literal is a constant Scalar, used as a Compare operand. Evaluating a
// Literal on its own returns an InvalidArgument error.
type Literal struct {
	Value scalar.Scalar
}

func (l Literal) Eval(root array.Array) (array.Array, error) {
	return array.Array{}, errs.New(errs.InvalidArgument, "predicate: Literal cannot be evaluated standalone; it is only valid as a Compare operand")
}

func (l Literal) PruneChunk(map[string]*stats.Statistics) (bool, bool) { return false, false }

func (l Literal) String() string { return l.Value.DType().String() }

// Compare applies op between a Column and a Literal.
type Compare struct {
	Col Column
	Op  array.CompareOp
	Rhs scalar.Scalar
}

func opName(op array.CompareOp) string {
	switch op {
	case array.Eq:
		return "="
	case array.NotEq:
		return "!="
	case array.Lt:
		return "<"
	case array.Lte:
		return "<="
	case array.Gt:
		return ">"
	case array.Gte:
		return ">="
	default:
		return "?"
	}
}

func (c Compare) String() string { return fmt.Sprintf("%s %s <lit>", c.Col.Path, opName(c.Op)) }

func (c Compare) Eval(root array.Array) (array.Array, error) {
	col, err := c.Col.resolve(root)
	if err != nil {
		return array.Array{}, err
	}
	return compute.Compare(col, c.Rhs, c.Op)
}

// PruneChunk answers from Min/Max layout stats when present: a chunk
// whose [min,max] range cannot satisfy the comparison is skippable.
func (c Compare) PruneChunk(fields map[string]*stats.Statistics) (bool, bool) {
	st, ok := fields[c.Col.Path]
	if !ok {
		return false, false
	}
	minV, hasMin := st.Get(stats.Min)
	maxV, hasMax := st.Get(stats.Max)
	if !hasMin || !hasMax {
		return false, false
	}
	lo, hi := minV.Scalar(), maxV.Scalar()
	switch c.Op {
	case array.Lt:
		return lo.Compare(c.Rhs) >= 0, true
	case array.Lte:
		return lo.Compare(c.Rhs) > 0, true
	case array.Gt:
		return hi.Compare(c.Rhs) <= 0, true
	case array.Gte:
		return hi.Compare(c.Rhs) < 0, true
	case array.Eq:
		return c.Rhs.Compare(lo) < 0 || c.Rhs.Compare(hi) > 0, true
	default:
		return false, false
	}
}

// And is a conjunction, short-circuiting to all-false if any side proves
// all-false without needing the other side's buffers.
type And struct {
	Left, Right Expr
}

func (a And) String() string { return fmt.Sprintf("(%s AND %s)", a.Left, a.Right) }

func (a And) Eval(root array.Array) (array.Array, error) {
	l, err := a.Left.Eval(root)
	if err != nil {
		return array.Array{}, err
	}
	if allFalse(l) {
		return l, nil
	}
	r, err := a.Right.Eval(root)
	if err != nil {
		return array.Array{}, err
	}
	return boolAnd(l, r)
}

func (a And) PruneChunk(fields map[string]*stats.Statistics) (bool, bool) {
	if skip, ok := a.Left.PruneChunk(fields); ok && skip {
		return true, true
	}
	if skip, ok := a.Right.PruneChunk(fields); ok && skip {
		return true, true
	}
	return false, false
}

// Or is a disjunction, short-circuiting to all-true if any side proves
// all-true.
type Or struct {
	Left, Right Expr
}

func (o Or) String() string { return fmt.Sprintf("(%s OR %s)", o.Left, o.Right) }

func (o Or) Eval(root array.Array) (array.Array, error) {
	l, err := o.Left.Eval(root)
	if err != nil {
		return array.Array{}, err
	}
	if allTrue(l) {
		return l, nil
	}
	r, err := o.Right.Eval(root)
	if err != nil {
		return array.Array{}, err
	}
	return boolOr(l, r)
}

func (o Or) PruneChunk(fields map[string]*stats.Statistics) (bool, bool) {
	lSkip, lOK := o.Left.PruneChunk(fields)
	rSkip, rOK := o.Right.PruneChunk(fields)
	if lOK && rOK {
		return lSkip && rSkip, true
	}
	return false, false
}

// Not negates its operand.
type Not struct {
	Inner Expr
}

func (n Not) String() string { return fmt.Sprintf("NOT %s", n.Inner) }

func (n Not) Eval(root array.Array) (array.Array, error) {
	v, err := n.Inner.Eval(root)
	if err != nil {
		return array.Array{}, err
	}
	return boolNot(v)
}

func (n Not) PruneChunk(map[string]*stats.Statistics) (bool, bool) { return false, false }

func boolAt(a array.Array, i int) bool {
	impl, _ := array.Lookup(a.Encoding())
	sae, ok := impl.(array.ScalarAtEncoding)
	if !ok {
		canon, _ := impl.Canonicalize(a)
		cimpl, _ := array.Lookup(canon.Encoding())
		sae = cimpl.(array.ScalarAtEncoding)
		a = canon
	}
	r, _ := sae.ScalarAt(a, i)
	return !r.Null && r.Bool
}

func allFalse(a array.Array) bool {
	for i := 0; i < a.Len(); i++ {
		if boolAt(a, i) {
			return false
		}
	}
	return true
}

func allTrue(a array.Array) bool {
	for i := 0; i < a.Len(); i++ {
		if !boolAt(a, i) {
			return false
		}
	}
	return true
}

func boolValues(a array.Array) []bool {
	out := make([]bool, a.Len())
	for i := range out {
		out[i] = boolAt(a, i)
	}
	return out
}

func boolAnd(l, r array.Array) (array.Array, error) {
	lv, rv := boolValues(l), boolValues(r)
	out := make([]bool, len(lv))
	for i := range out {
		out[i] = lv[i] && rv[i]
	}
	return fromBools(out), nil
}

func boolOr(l, r array.Array) (array.Array, error) {
	lv, rv := boolValues(l), boolValues(r)
	out := make([]bool, len(lv))
	for i := range out {
		out[i] = lv[i] || rv[i]
	}
	return fromBools(out), nil
}

func boolNot(a array.Array) (array.Array, error) {
	v := boolValues(a)
	out := make([]bool, len(v))
	for i := range out {
		out[i] = !v[i]
	}
	return fromBools(out), nil
}

func fromBools(vals []bool) array.Array {
	return array.NewBoolFromBools(false, vals, validity.NewNonNullable(len(vals)))
}
