package extractor

import (
	"time"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/warehouse-to-go/internal/localdb"
	"github.com/dbsmedya/warehouse-to-go/internal/plan"
)

// TableResult is the outcome of loading one table.
type TableResult struct {
	Unit     plan.ExtractionUnit
	Ref      localdb.TableRef
	Success  bool
	Rows     int64 // rows written locally
	Batches  int
	Fallback bool // at least one batch went through the parquet fallback
	Err      error
	Duration time.Duration
}

// GroupStats aggregates the results of one "database.schema" group.
type GroupStats struct {
	Tables int   // tables loaded
	Rows   int64 // rows written by loaded tables
	Failed int
}

// RunResult contains statistics of a whole extraction run.
type RunResult struct {
	StartedAt    time.Time
	Duration     time.Duration
	Groups       *orderedmap.OrderedMap[string, *GroupStats]
	Tables       []TableResult
	TablesLoaded int
	TablesFailed int
	RowsWritten  int64
}

func newRunResult() *RunResult {
	return &RunResult{
		StartedAt: time.Now(),
		Groups:    orderedmap.NewOrderedMap[string, *GroupStats](),
	}
}

func (r *RunResult) group(key string) *GroupStats {
	if stats, ok := r.Groups.Get(key); ok {
		return stats
	}
	stats := &GroupStats{}
	r.Groups.Set(key, stats)
	return stats
}

func (r *RunResult) add(stats *GroupStats, res TableResult) {
	r.Tables = append(r.Tables, res)
	if res.Success {
		stats.Tables++
		stats.Rows += res.Rows
		r.TablesLoaded++
		r.RowsWritten += res.Rows
		return
	}
	stats.Failed++
	r.TablesFailed++
}

// Failed returns the results of tables that did not load.
func (r *RunResult) Failed() []TableResult {
	var out []TableResult
	for _, res := range r.Tables {
		if !res.Success {
			out = append(out, res)
		}
	}
	return out
}

func failedResult(unit plan.ExtractionUnit, err error) TableResult {
	return TableResult{Unit: unit, Ref: LocalRef(unit), Err: err}
}

// Reporter receives progress events from a run.
type Reporter interface {
	GroupStarted(group *plan.Group)
	TableDone(res TableResult)
	GroupDone(group *plan.Group, stats GroupStats)
}

type nopReporter struct{}

func (nopReporter) GroupStarted(*plan.Group)          {}
func (nopReporter) TableDone(TableResult)             {}
func (nopReporter) GroupDone(*plan.Group, GroupStats) {}
