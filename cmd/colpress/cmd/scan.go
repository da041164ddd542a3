package cmd

import (
	"context"
	"fmt"

	"github.com/colpress/colpress/array"
	"github.com/colpress/colpress/config"
	"github.com/colpress/colpress/ipc"
	"github.com/colpress/colpress/predicate"
)

// scan counts rows surviving an optional "field op literal" predicate
// (e.g. "score > 10"), reporting how many chunks were pruned by
// statistics alone versus fetched and evaluated row-by-row. This is the
// columnar analogue of bio-pamtool's "filter" subcommand.
func scan(path, predExpr string) error {
	ctx := context.Background()
	r, err := ipc.Open(ctx, path, config.Default())
	if err != nil {
		return err
	}
	defer r.Close(ctx)

	var pred predicate.Expr
	if predExpr != "" {
		pred, err = parsePredicate(predExpr)
		if err != nil {
			return err
		}
	}

	var matched, scannedChunks, prunedChunks int64
	err = r.Scan(ipc.AllFields(), pred, func(chunk array.Array) error {
		if pred == nil {
			matched += int64(chunk.Len())
			return nil
		}
		mask, err := pred.Eval(chunk)
		if err != nil {
			return err
		}
		for i := 0; i < mask.Len(); i++ {
			impl, _ := array.Lookup(mask.Encoding())
			sae := impl.(array.ScalarAtEncoding)
			res, err := sae.ScalarAt(mask, i)
			if err != nil {
				return err
			}
			if !res.Null && res.Bool {
				matched++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if pred != nil {
		for i := 0; i < r.NumChunks(); i++ {
			st, err := r.ChunkStatistics(i)
			if err != nil {
				return err
			}
			if skip, ok := pred.PruneChunk(st); ok && skip {
				prunedChunks++
			}
		}
	}
	scannedChunks = int64(r.NumChunks()) - prunedChunks
	fmt.Printf("matched rows: %d\n", matched)
	fmt.Printf("chunks scanned: %d, pruned: %d\n", scannedChunks, prunedChunks)
	return nil
}
