package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/colpress/colpress/config"
	"github.com/colpress/colpress/ipc"
	"github.com/colpress/colpress/stats"
)

// chunkStat is the JSON-serializable view of one chunk's field statistics,
// mirroring bio-pamtool's checksum command's "print a JSON summary" idiom.
type chunkStat struct {
	Chunk  int                      `json:"chunk"`
	Rows   int64                    `json:"rows"`
	Fields map[string]fieldStatJSON `json:"fields"`
}

type fieldStatJSON struct {
	NullCount  int64 `json:"null_count"`
	IsSorted   bool  `json:"is_sorted"`
	IsConstant bool  `json:"is_constant"`
}

// stat prints per-chunk field statistics as JSON.
func stat(path string) error {
	ctx := context.Background()
	r, err := ipc.Open(ctx, path, config.Default())
	if err != nil {
		return err
	}
	defer r.Close(ctx)

	out := make([]chunkStat, 0, r.NumChunks())
	for i := 0; i < r.NumChunks(); i++ {
		fieldStats, err := r.ChunkStatistics(i)
		if err != nil {
			return err
		}
		cs := chunkStat{Chunk: i, Rows: r.ChunkRows(i), Fields: make(map[string]fieldStatJSON, len(fieldStats))}
		for path, st := range fieldStats {
			cs.Fields[path] = toFieldStatJSON(st)
		}
		out = append(out, cs)
	}
	js, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(js))
	return nil
}

func toFieldStatJSON(st *stats.Statistics) fieldStatJSON {
	var fs fieldStatJSON
	if v, ok := st.Get(stats.NullCount); ok {
		fs.NullCount = v.Count()
	}
	if v, ok := st.Get(stats.IsSorted); ok {
		fs.IsSorted = v.Bool()
	}
	if v, ok := st.Get(stats.IsConstant); ok {
		fs.IsConstant = v.Bool()
	}
	return fs
}
