// Package extractor copies planned warehouse tables into the local DuckDB mirror.
package extractor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/dbsmedya/warehouse-to-go/internal/config"
	"github.com/dbsmedya/warehouse-to-go/internal/localdb"
	"github.com/dbsmedya/warehouse-to-go/internal/logger"
	"github.com/dbsmedya/warehouse-to-go/internal/parquetfile"
	"github.com/dbsmedya/warehouse-to-go/internal/plan"
	"github.com/dbsmedya/warehouse-to-go/internal/sqlutil"
	"github.com/dbsmedya/warehouse-to-go/internal/types"
	"github.com/dbsmedya/warehouse-to-go/internal/verifier"
)

const defaultBatchSize = 10000

// Target is the local store tables are written to. *localdb.DuckDB implements it.
type Target interface {
	EnsureSchema(ctx context.Context, database, schema string) error
	WriteBatch(ctx context.Context, ref localdb.TableRef, batch *types.Batch, replace bool) error
	LoadParquet(ctx context.Context, ref localdb.TableRef, path string, cols []types.Column, replace bool) error
	CountRows(ctx context.Context, ref localdb.TableRef) (int64, error)
}

// Loader runs an extraction plan table by table over one warehouse connection.
type Loader struct {
	source   *sql.DB
	dialect  sqlutil.Dialect
	target   Target
	verifier *verifier.Verifier
	reporter Reporter
	logger   *logger.Logger
	tempDir  string
}

// NewLoader creates a loader reading from source and writing to target. When
// cfg.Verify is set every loaded table is row-counted afterwards. A nil
// reporter discards progress events.
func NewLoader(source *sql.DB, dialect sqlutil.Dialect, target Target, cfg config.ExtractConfig, log *logger.Logger, reporter Reporter) (*Loader, error) {
	if source == nil {
		return nil, fmt.Errorf("source database is nil")
	}
	if target == nil {
		return nil, fmt.Errorf("target is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	if reporter == nil {
		reporter = nopReporter{}
	}

	l := &Loader{
		source:   source,
		dialect:  dialect,
		target:   target,
		reporter: reporter,
		logger:   log,
	}

	if cfg.Verify {
		v, err := verifier.NewVerifier(target, verifier.MethodCount, log)
		if err != nil {
			return nil, err
		}
		l.verifier = v
	}
	return l, nil
}

// SetTempDir sets the directory fallback Parquet files are created in.
// The default is the system temp directory.
func (l *Loader) SetTempDir(dir string) {
	l.tempDir = dir
}

// Run loads every group of p in order. Table failures are recorded in the
// result and do not stop the run; a canceled context does.
func (l *Loader) Run(ctx context.Context, p *plan.Plan) (*RunResult, error) {
	result := newRunResult()
	defer func() { result.Duration = time.Since(result.StartedAt) }()

	l.logger.Infow("Starting extraction",
		"groups", p.Len(),
		"tables", p.TableCount(),
	)

	for _, group := range p.Groups() {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("extraction interrupted: %w", err)
		}

		log := l.logger.WithGroup(group.Key)
		stats := result.group(group.Key)
		l.reporter.GroupStarted(group)

		if err := l.target.EnsureSchema(ctx, group.Database, group.Schema); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, fmt.Errorf("extraction interrupted: %w", ctxErr)
			}
			log.Errorw("Failed to prepare local schema", "error", err)
			for _, unit := range group.Units {
				res := failedResult(unit, fmt.Errorf("failed to prepare local schema: %w", err))
				result.add(stats, res)
				l.reporter.TableDone(res)
			}
			l.reporter.GroupDone(group, *stats)
			continue
		}

		for _, unit := range group.Units {
			res := l.LoadTable(ctx, unit)
			if !res.Success {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return result, fmt.Errorf("extraction interrupted: %w", ctxErr)
				}
			}
			result.add(stats, res)
			l.reporter.TableDone(res)
		}

		l.reporter.GroupDone(group, *stats)
	}

	l.logger.Infow("Extraction complete",
		"tables_loaded", result.TablesLoaded,
		"tables_failed", result.TablesFailed,
		"rows", result.RowsWritten,
		"duration", time.Since(result.StartedAt),
	)
	return result, nil
}

// LoadTable copies one table. The local table is fully replaced: the first
// batch recreates it and later batches append. Errors are returned in the result.
func (l *Loader) LoadTable(ctx context.Context, unit plan.ExtractionUnit) TableResult {
	start := time.Now()
	res := TableResult{Unit: unit, Ref: LocalRef(unit)}
	log := l.logger.WithSource(unit.SourceName).WithTable(res.Ref.String())

	err := l.loadTable(ctx, unit, &res, log)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		log.Errorw("Table failed", "rows_written", res.Rows, "error", err)
		return res
	}

	if l.verifier != nil {
		if _, err := l.verifier.Verify(ctx, res.Ref, res.Rows); err != nil {
			res.Err = err
			return res
		}
	}

	res.Success = true
	log.Infow("Table loaded",
		"rows", res.Rows,
		"batches", res.Batches,
		"fallback", res.Fallback,
		"duration", res.Duration,
	)
	return res
}

func (l *Loader) loadTable(ctx context.Context, unit plan.ExtractionUnit, res *TableResult, log *logger.Logger) error {
	query, err := sqlutil.SelectQuery(l.dialect, unit.Database, unit.Schema, unit.Identifier, unit.Columns, unit.RowLimit)
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	log.Debugw("Querying warehouse", "query", query)

	rows, err := l.source.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to extract: %w", err)
	}
	defer rows.Close()

	cts, err := rows.ColumnTypes()
	if err != nil {
		return fmt.Errorf("failed to read column types: %w", err)
	}
	cols := types.ColumnsFromSQL(cts)

	batchSize := unit.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	warned := make(map[string]bool)
	for replace := true; ; replace = false {
		want := batchSize
		if unit.RowLimit > 0 {
			remaining := unit.RowLimit - int(res.Rows)
			if remaining <= 0 {
				break
			}
			want = min(want, remaining)
		}

		batch, err := fetchBatch(rows, cols, want)
		if err != nil {
			return err
		}
		// An empty first batch still creates the table with the remote columns.
		if batch.Rows == 0 && !replace {
			break
		}

		for _, d := range types.Normalize(batch) {
			if warned[d.Column] {
				continue
			}
			warned[d.Column] = true
			log.Warnw("Values could not be converted and were stored as null",
				"column", d.Column,
				"kind", d.Kind.String(),
				"count", d.Count,
			)
		}
		fallback, err := l.write(ctx, res.Ref, batch, replace, log.WithBatch(res.Batches+1))
		if err != nil {
			return err
		}

		res.Rows += int64(batch.Rows)
		res.Batches++
		res.Fallback = res.Fallback || fallback

		if batch.Rows < want {
			break
		}
	}
	return nil
}

// fetchBatch reads up to n rows.
func fetchBatch(rows *sql.Rows, cols []types.Column, n int) (*types.Batch, error) {
	batch := types.NewBatch(cols)
	for batch.Rows < n && rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := batch.AppendRow(values); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return batch, nil
}

// write stores batch through the direct path, falling back to a Parquet file
// when the direct write fails. It reports whether the fallback was used.
func (l *Loader) write(ctx context.Context, ref localdb.TableRef, batch *types.Batch, replace bool, log *logger.Logger) (bool, error) {
	directErr := l.target.WriteBatch(ctx, ref, batch, replace)
	if directErr == nil {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	log.Warnw("Direct write failed, loading through parquet", "error", directErr)
	if err := l.writeViaParquet(ctx, ref, batch, replace, log); err != nil {
		return true, fmt.Errorf("failed to load through parquet: %w (direct write: %v)", err, directErr)
	}
	return true, nil
}

func (l *Loader) writeViaParquet(ctx context.Context, ref localdb.TableRef, batch *types.Batch, replace bool, log *logger.Logger) error {
	f, err := os.CreateTemp(l.tempDir, "warehouse-to-go-*.parquet")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	_ = f.Close()

	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warnw("Failed to remove temp file", "path", path, "error", err)
		}
	}()

	if err := parquetfile.Write(path, batch); err != nil {
		return err
	}
	return l.target.LoadParquet(ctx, ref, path, batch.Columns, replace)
}

// LocalRef returns the local table a unit is mirrored into. The table keeps
// the source table name; the remote query uses the identifier.
func LocalRef(unit plan.ExtractionUnit) localdb.TableRef {
	return localdb.TableRef{
		Database: unit.Database,
		Schema:   unit.Schema,
		Table:    unit.TableName,
	}
}
