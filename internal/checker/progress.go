package checker

import (
	"context"

	"github.com/jacobarthurs/pgreview/internal/models"
)

// Progress reports how far a batch has got. Unknown batch ids return an
// error wrapping models.ErrNotFound.
func (c *Checker) Progress(ctx context.Context, batchID string) (*models.Progress, error) {
	sum, err := c.store.GetSummary(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return ProgressOf(sum), nil
}

// ProgressOf derives a progress snapshot from a summary. The remaining time
// is the average elapsed time per completed item times the items left, and
// stays nil until at least one item has completed.
func ProgressOf(sum *models.BatchSummary) *models.Progress {
	completed := sum.Completed()

	p := &models.Progress{
		BatchID:        sum.BatchID,
		TotalCount:     sum.TotalCount,
		CompletedCount: completed,
		SuccessCount:   sum.SuccessCount,
		FailedCount:    sum.FailedCount,
		Status:         models.ProgressRunning,
	}

	if sum.TotalCount > 0 {
		p.Progress = completed * 100 / sum.TotalCount
	}
	if completed > 0 && sum.TotalDurationMs != nil {
		avg := float64(*sum.TotalDurationMs) / float64(completed)
		remaining := int64(avg * float64(sum.TotalCount-completed))
		p.RemainingMs = &remaining
	}
	if completed == sum.TotalCount {
		p.Status = models.ProgressCompleted
	}
	return p
}
