package cmd

import (
	"context"
	"fmt"

	"github.com/colpress/colpress/config"
	"github.com/colpress/colpress/ipc"
)

// view prints a colpress file's schema and chunk summary, the columnar
// analogue of bio-pamtool's "view" (which prints a BAM/PAM header).
func view(path string) error {
	ctx := context.Background()
	r, err := ipc.Open(ctx, path, config.Default())
	if err != nil {
		return err
	}
	defer r.Close(ctx)

	fmt.Printf("schema: %s\n", r.DType())
	fmt.Printf("chunks: %d\n", r.NumChunks())
	var totalRows int64
	for i := 0; i < r.NumChunks(); i++ {
		totalRows += r.ChunkRows(i)
	}
	fmt.Printf("rows: %d\n", totalRows)
	return nil
}
