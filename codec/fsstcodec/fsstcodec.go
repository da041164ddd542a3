// Package fsstcodec implements the FSST (Fast Static Symbol Table) string
// codec: a small code table trained on a sample turns each string into a
// byte stream of codes, with an escape code for bytes that don't match any
// learned symbol (spec.md §4.3 "FSST (Fast Static Symbol Table) for
// strings").
//
// Grounded directly on github.com/axiomhq/fsst's Table/Train/Encode/Decode
// API (one of the pack's dedicated example repos). Table keeps its learned
// symbols in unexported fields reachable only via whole-table
// (Un)MarshalBinary, so unlike spec.md's literal `symbols`/`symbol_lengths`
// child split this codec stores the trained table as one serialized
// metadata blob and keeps `codes` + `uncompressed_lengths` as children.
package fsstcodec

import (
	axiomfsst "github.com/axiomhq/fsst"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/buf"
	"github.com/colpress/colpress/dtype"
	"github.com/colpress/colpress/errs"
	"github.com/colpress/colpress/validity"
)

// EncodingID is this codec's globally registered id.
const EncodingID array.EncodingID = array.EncodingCodecBase + 9

type codec struct{}

func init() {
	array.Register(EncodingID, "fsst", codec{})
}

// Encode trains an FSST symbol table on src's values (Utf8 or Binary) and
// encodes every value through it. utf8 validity of the compressed bytes is
// the caller's responsibility, per spec.md.
func Encode(src array.Array) (array.Array, error) {
	dt := src.DType()
	if dt.Kind() != dtype.KindUtf8 && dt.Kind() != dtype.KindBinary {
		return array.Array{}, errs.New(errs.MismatchedTypes, "fsstcodec: Encode requires a Utf8 or Binary array")
	}
	n := src.Len()
	valid := array.ArrayValidity(src)
	var corpus [][]byte
	raw := make([][]byte, n)
	for i := 0; i < n; i++ {
		if !valid.IsValid(i) {
			continue
		}
		b, err := stringBytesAt(src, i)
		if err != nil {
			return array.Array{}, err
		}
		raw[i] = b
		corpus = append(corpus, b)
	}
	if len(corpus) == 0 {
		corpus = [][]byte{{}}
	}
	table := axiomfsst.Train(corpus)
	tableBlob, err := table.MarshalBinary()
	if err != nil {
		return array.Array{}, errs.Wrap(errs.ComputeError, err, "fsstcodec: marshal trained table")
	}

	offs := make([]int32, n+1)
	uncompLens := make([]int32, n)
	var codeData []byte
	for i := 0; i < n; i++ {
		if valid.IsValid(i) {
			uncompLens[i] = int32(len(raw[i]))
			enc := table.EncodeAll(raw[i])
			codeData = append(codeData, enc...)
		}
		offs[i+1] = int32(len(codeData))
	}
	codesArr := array.NewVarBin(dtype.Binary(false), n, buf.FromSlice(offs), buf.New(codeData), array.ArrayValidity(src))
	lensArr := buildI32Array(uncompLens)

	meta := encodeMetaLen(len(tableBlob))
	meta = append(meta, tableBlob...)
	return array.New(EncodingID, dt, n, meta, nil, []array.Array{codesArr, lensArr}), nil
}

func stringBytesAt(a array.Array, i int) ([]byte, error) {
	impl, _ := array.Lookup(a.Encoding())
	sae, ok := impl.(array.ScalarAtEncoding)
	if !ok {
		canon, err := impl.Canonicalize(a)
		if err != nil {
			return nil, err
		}
		cimpl, _ := array.Lookup(canon.Encoding())
		sae = cimpl.(array.ScalarAtEncoding)
		a = canon
	}
	r, err := sae.ScalarAt(a, i)
	if err != nil {
		return nil, err
	}
	return r.Bytes, nil
}

func encodeMetaLen(n int) []byte {
	return []byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}
}

func decodeMetaLen(b []byte) int {
	return int(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

func decodeTable(meta []byte) (*axiomfsst.Table, error) {
	n := decodeMetaLen(meta)
	blob := meta[4 : 4+n]
	t := &axiomfsst.Table{}
	if err := t.UnmarshalBinary(blob); err != nil {
		return nil, errs.Wrap(errs.InvalidSerde, err, "fsstcodec: unmarshal trained table")
	}
	return t, nil
}

func buildI32Array(vals []int32) array.Array {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		u := uint32(v)
		out[i*4] = byte(u)
		out[i*4+1] = byte(u >> 8)
		out[i*4+2] = byte(u >> 16)
		out[i*4+3] = byte(u >> 24)
	}
	return array.NewPrimitive(dtype.Primitive(dtype.I32, false), len(vals), buf.New(out), validity.NewNonNullable(len(vals)))
}

func (codec) Canonicalize(a array.Array) (array.Array, error) {
	table, err := decodeTable(a.Metadata())
	if err != nil {
		return array.Array{}, err
	}
	codesArr := a.Child(0)
	n := a.Len()
	valid := array.ArrayValidity(codesArr)
	offs := make([]int32, n+1)
	var data []byte
	for i := 0; i < n; i++ {
		if valid.IsValid(i) {
			enc, err := stringBytesAt(codesArr, i)
			if err != nil {
				return array.Array{}, err
			}
			data = append(data, table.DecodeAll(enc)...)
		}
		offs[i+1] = int32(len(data))
	}
	return array.NewVarBin(a.DType(), n, buf.FromSlice(offs), buf.New(data), valid), nil
}

func (codec) ScalarAt(a array.Array, index int) (array.ScalarResult, error) {
	codesArr := a.Child(0)
	valid := array.ArrayValidity(codesArr)
	if !valid.IsValid(index) {
		return array.ScalarResult{Null: true}, nil
	}
	table, err := decodeTable(a.Metadata())
	if err != nil {
		return array.ScalarResult{}, err
	}
	enc, err := stringBytesAt(codesArr, index)
	if err != nil {
		return array.ScalarResult{}, err
	}
	return array.ScalarResult{Bytes: table.DecodeAll(enc)}, nil
}
