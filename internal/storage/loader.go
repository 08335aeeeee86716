package storage

import (
	"context"
	"fmt"
	"log"
	"slices"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
	"github.com/NeoOrigin/flint-sub000/internal/invocation"
	"github.com/NeoOrigin/flint-sub000/internal/metrics"
)

// CopyFn abstracts the bulk insert so batching can be tested without a
// database.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn for each non-empty batch. It returns the rows reported by
// copyFn, the number of batches flushed and the first error.
//
// It returns when in is closed or ctx is canceled, and never holds more
// than one batch.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (total int64, batches int, err error) {
	if batchSize <= 0 {
		return 0, 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, 0, fmt.Errorf("copyFn must not be nil")
	}

	batch := make([][]any, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batches++
		batch = make([][]any, 0, batchSize)
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return total, batches, ctx.Err()
		case row, ok := <-in:
			if !ok {
				return total, batches, flush()
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, batches, err
				}
			}
		}
	}
}

// SinkColumns returns the columns written for out: the configured ones, or
// the decoded output columns padded with generated names up to the widest
// row.
func SinkColumns(cfg Config, out *invocation.Output) []string {
	if len(cfg.Columns) > 0 {
		return cfg.Columns
	}
	return codec.MatchLengthOf(out.Columns, out.Data.Width(), codec.GeneratedColumnPrefix, true, false)
}

// LoadOutput copies the decoded output rows of out into repo. Each row is
// aligned by name to the sink columns; cells a row lacks are written as
// NULL. A sink column absent from the output fails with
// codec.ErrColumnNotFound before anything is written.
func LoadOutput(ctx context.Context, repo Repository, cfg Config, out *invocation.Output) (int64, error) {
	if out == nil || len(out.Data) == 0 {
		return 0, nil
	}
	columns := SinkColumns(cfg, out)
	available := codec.MatchLengthOf(out.Columns, out.Data.Width(), codec.GeneratedColumnPrefix, true, false)
	order := sinkOrder(columns, available)
	if _, err := codec.Align(codec.MakeRecord(available, nil, "", false), order, sinkAlign); err != nil {
		return 0, fmt.Errorf("sink %s: %w", cfg.Table, err)
	}

	if cfg.AutoCreateTable {
		if err := repo.EnsureTable(ctx, columns); err != nil {
			return 0, fmt.Errorf("sink %s: ensure table: %w", cfg.Table, err)
		}
	}

	in := make(chan []any, cfg.batchSize())
	var alignErr error
	go func() {
		defer close(in)
		for i, row := range out.Data {
			aligned, err := codec.Align(codec.MakeRecord(available, row, "", false), order, sinkAlign)
			if err != nil {
				alignErr = fmt.Errorf("row %d: %w", i, err)
				return
			}
			vals := make([]any, len(columns))
			for j, v := range aligned[:len(columns)] {
				if v != nil {
					vals[j] = *v
				}
			}
			select {
			case in <- vals:
			case <-ctx.Done():
				return
			}
		}
	}()

	total, batches, err := LoadBatches(ctx, columns, in, cfg.batchSize(), repo.CopyFrom)
	metrics.RecordSinkBatches(cfg.Engine, int64(batches))
	if err != nil {
		// unblock the producer
		for range in {
		}
		return total, fmt.Errorf("sink %s: %w", cfg.Table, err)
	}
	if alignErr != nil {
		return total, fmt.Errorf("sink %s: %w", cfg.Table, alignErr)
	}
	log.Printf("sink: kind=%s table=%s rows=%d batches=%d", cfg.Kind, cfg.Table, total, batches)
	return total, nil
}

// sinkAlign makes every sink column mandatory.
var sinkAlign = codec.AlignOptions{Strict: true}

// sinkOrder lists the sink columns first and then the remaining output
// columns, so aligning a row to it leaves the sink values in front.
func sinkOrder(columns, available []string) []string {
	order := append([]string(nil), columns...)
	for _, a := range available {
		if !slices.Contains(columns, a) {
			order = append(order, a)
		}
	}
	return order
}
