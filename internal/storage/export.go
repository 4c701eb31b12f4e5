package storage

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"csvclean/internal/dataset"
	"csvclean/internal/metrics"
	"csvclean/internal/transformer"
)

// DefaultBatchSize is used when Export is given a non-positive batch size.
const DefaultBatchSize = 5000

// Export creates table if needed and loads ds into it through repo.
//
// Rows flow through three stages: a reader feeding text rows, the typed
// coercion loop and the batch loader. Blank cells and cells that do not
// fit their column type are stored as NULL. It returns the number of rows
// inserted.
func Export(
	ctx context.Context,
	repo Repository,
	d Dialect,
	table string,
	ds *dataset.Dataset,
	cols []Column,
	batchSize int,
	log *zap.Logger,
) (n int64, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(cols) != ds.Width() {
		return 0, fmt.Errorf("export: %d columns for a dataset of width %d", len(cols), ds.Width())
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	job := "export:" + table
	start := time.Now()
	defer func() { metrics.RecordStep(job, "export", err, time.Since(start)) }()

	ddl, err := d.CreateTableSQL(table, cols)
	if err != nil {
		return 0, err
	}
	if err := repo.Exec(ctx, ddl); err != nil {
		return 0, fmt.Errorf("create table %s: %w", table, err)
	}
	log.Debug("export: table ensured", zap.String("table", table), zap.String("dialect", d.Name))

	names := make([]string, len(cols))
	spec := transformer.CoerceSpec{Types: make(map[string]string, len(cols))}
	var years []int
	for i, c := range cols {
		names[i] = c.Name
		t := c.Type
		if t == TypeYear {
			years = append(years, i)
			t = transformer.TypeInteger
		}
		spec.Types[c.Name] = t
	}

	var rejected atomic.Int64
	onReject := func(line int, column, value string) {
		rejected.Add(1)
		log.Debug("export: cell stored as NULL",
			zap.Int("line", line), zap.String("column", column), zap.String("value", value))
	}

	g, gctx := errgroup.WithContext(ctx)
	text := make(chan []string, batchSize)
	typed := make(chan []any, batchSize)

	g.Go(func() error {
		defer close(text)
		for _, r := range ds.Rows {
			row := r
			if len(years) > 0 {
				row = append([]string(nil), r...)
				for _, i := range years {
					row[i] = yearOf(row[i])
				}
			}
			select {
			case text <- row:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	g.Go(func() error {
		defer close(typed)
		transformer.TransformLoop(gctx, names, text, typed, spec, onReject)
		return nil
	})
	g.Go(func() error {
		var lerr error
		n, lerr = LoadBatches(gctx, job, names, typed, batchSize, repo.CopyFrom, log)
		return lerr
	})
	if err := g.Wait(); err != nil {
		return n, fmt.Errorf("export %s: %w", table, err)
	}

	metrics.RecordRow(job, "inserted", n)
	metrics.RecordRow(job, "rejected", rejected.Load())
	log.Info("export: done",
		zap.String("table", table),
		zap.Int64("rows", n),
		zap.Int64("null_cells", rejected.Load()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return n, nil
}

// yearOf returns the year of an ISO date or timestamp cell; other values
// pass through for the integer coercion to reject.
func yearOf(s string) string {
	if len(s) >= len("2006-01-02") && s[4] == '-' {
		return s[:4]
	}
	return s
}
