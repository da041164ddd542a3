package ipc

import (
	"strings"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
)

// Projection selects which top-level/nested struct fields Reader.Scan
// decodes per chunk (spec.md §6 "Either All or an explicit ordered list
// of field references ... nested projection is by path"). The zero value
// is not a valid Projection; use AllFields or Fields.
type Projection struct {
	all   bool
	paths []string
}

// AllFields projects every field: Scan decodes whole chunks, same as
// before Projection existed.
func AllFields() Projection { return Projection{all: true} }

// Fields projects exactly the named dotted paths, in the given order.
// A path like "a.b" selects nested field b of top-level struct field a.
func Fields(paths ...string) Projection { return Projection{paths: paths} }

// IsAll reports whether this Projection selects every field.
func (p Projection) IsAll() bool { return p.all }

func (p Projection) project(a array.Array) (array.Array, error) {
	if p.all {
		return a, nil
	}
	return projectPaths(a, p.paths)
}

// projectPaths rebuilds a struct array containing only the requested
// dotted field paths, recursing into nested structs. Grounded on
// leafDType/collectLeafStats's dotted-path walk over a struct dtype tree.
func projectPaths(a array.Array, paths []string) (array.Array, error) {
	dt := a.DType()
	if dt.Kind() != dtype.KindStruct {
		return array.Array{}, errs.New(errs.InvalidArgument, "ipc: projection path descends into non-struct %s", dt)
	}

	var order []string
	rest := make(map[string][]string)
	seen := make(map[string]bool)
	for _, p := range paths {
		name, tail, nested := strings.Cut(p, ".")
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
		if nested {
			rest[name] = append(rest[name], tail)
		}
	}

	names := make([]string, 0, len(order))
	types := make([]dtype.DType, 0, len(order))
	children := make([]array.Array, 0, len(order))
	for _, name := range order {
		idx := dt.FieldIndex(name)
		if idx < 0 {
			return array.Array{}, errs.New(errs.InvalidArgument, "ipc: unknown field %q in projection", name)
		}
		child := a.Child(idx)
		if sub, ok := rest[name]; ok {
			projected, err := projectPaths(child, sub)
			if err != nil {
				return array.Array{}, err
			}
			child = projected
		}
		names = append(names, name)
		types = append(types, child.DType())
		children = append(children, child)
	}

	newDT := dtype.Struct(names, types, dt.Nullable())
	return array.NewStruct(newDT, a.Len(), children, array.ArrayValidity(a)), nil
}
