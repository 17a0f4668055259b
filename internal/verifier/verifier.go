// Package verifier provides post-load integrity checks for the local mirror.
package verifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbsmedya/warehouse-to-go/internal/localdb"
	"github.com/dbsmedya/warehouse-to-go/internal/logger"
)

// VerificationMethod defines how a loaded table is checked.
type VerificationMethod string

const (
	// MethodCount compares the local row count with the rows written
	MethodCount VerificationMethod = "count"
	// MethodSkip skips verification entirely
	MethodSkip VerificationMethod = "skip"
)

// ErrCountMismatch is returned when the local table holds a different number
// of rows than the loader wrote.
var ErrCountMismatch = errors.New("row count mismatch")

// Counter counts rows in a local table.
type Counter interface {
	CountRows(ctx context.Context, ref localdb.TableRef) (int64, error)
}

// VerifyResult holds verification results for a single table.
type VerifyResult struct {
	Table        string
	Method       VerificationMethod
	Expected     int64
	Actual       int64
	Match        bool
	ErrorMessage string
}

// VerifyStats contains overall verification statistics.
type VerifyStats struct {
	TablesVerified int
	TablesPassed   int
	TablesFailed   int
	TotalRows      int64
	Method         VerificationMethod
}

// Verifier checks tables in the local mirror after they are loaded.
type Verifier struct {
	target Counter
	method VerificationMethod
	logger *logger.Logger
	stats  VerifyStats
}

// NewVerifier creates a verifier reading counts from target.
func NewVerifier(target Counter, method VerificationMethod, log *logger.Logger) (*Verifier, error) {
	if target == nil {
		return nil, fmt.Errorf("verification target is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	// Default to count if method not specified
	if method == "" {
		method = MethodCount
	}
	switch method {
	case MethodCount, MethodSkip:
	default:
		return nil, fmt.Errorf("unsupported verification method: %s", method)
	}

	return &Verifier{
		target: target,
		method: method,
		logger: log,
		stats:  VerifyStats{Method: method},
	}, nil
}

// Method returns the configured verification method.
func (v *Verifier) Method() VerificationMethod {
	return v.method
}

// Verify checks that ref holds expected rows. A mismatch is returned as an
// error wrapping ErrCountMismatch together with the detailed result.
func (v *Verifier) Verify(ctx context.Context, ref localdb.TableRef, expected int64) (*VerifyResult, error) {
	result := &VerifyResult{
		Table:    ref.String(),
		Method:   v.method,
		Expected: expected,
	}

	if v.method == MethodSkip {
		result.Match = true
		return result, nil
	}

	actual, err := v.target.CountRows(ctx, ref)
	if err != nil {
		result.ErrorMessage = err.Error()
		v.record(result)
		return result, fmt.Errorf("failed to verify %s: %w", ref, err)
	}

	result.Actual = actual
	result.Match = actual == expected
	if !result.Match {
		result.ErrorMessage = fmt.Sprintf("expected %d rows, found %d", expected, actual)
	}
	v.record(result)

	if !result.Match {
		v.logger.Errorw("Verification failed",
			"table", result.Table,
			"expected", expected,
			"actual", actual,
		)
		return result, fmt.Errorf("%w in %s: %s", ErrCountMismatch, ref, result.ErrorMessage)
	}

	v.logger.Debugw("Verification passed", "table", result.Table, "rows", actual)
	return result, nil
}

func (v *Verifier) record(result *VerifyResult) {
	v.stats.TablesVerified++
	if result.Match {
		v.stats.TablesPassed++
		v.stats.TotalRows += result.Actual
	} else {
		v.stats.TablesFailed++
	}
}

// Stats returns the statistics gathered so far.
func (v *Verifier) Stats() VerifyStats {
	return v.stats
}
