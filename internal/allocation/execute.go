package allocation

import (
	"context"
	"errors"
	"fmt"

	apperrors "budgetbook/internal/errors"
)

// Sink persists a single posting and returns the new transaction's id.
type Sink interface {
	Post(ctx context.Context, posting Posting) (string, error)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, posting Posting) (string, error)

// Post calls f.
func (f SinkFunc) Post(ctx context.Context, posting Posting) (string, error) {
	return f(ctx, posting)
}

// Posted is a posting that was written.
type Posted struct {
	Posting
	TransactionID string `json:"transaction_id"`
}

// Failed is a posting that was attempted and rejected.
type Failed struct {
	Posting
	Error string `json:"error"`
}

// Report describes what happened to every posting of a plan.
type Report struct {
	Succeeded    []Posted  `json:"succeeded"`
	Failed       []Failed  `json:"failed"`
	NotAttempted []Posting `json:"not_attempted"`
}

// Complete reports whether every posting was written.
func (r Report) Complete() bool {
	return len(r.Failed) == 0 && len(r.NotAttempted) == 0
}

// Execute submits postings one at a time, in order. It stops at the first
// failure or when ctx is done. Postings already written stay written.
//
// When nothing was written the error of the first posting (or ctx.Err()) is
// returned as is. When at least one posting was written the error is an
// ErrPartialPosting wrapping the cause. The report is always complete.
func Execute(ctx context.Context, sink Sink, postings []Posting) (Report, error) {
	report := Report{
		Succeeded:    []Posted{},
		Failed:       []Failed{},
		NotAttempted: []Posting{},
	}

	for i, posting := range postings {
		if err := ctx.Err(); err != nil {
			report.NotAttempted = append(report.NotAttempted, postings[i:]...)
			return report, failure(report, err)
		}

		id, err := sink.Post(ctx, posting)
		if err != nil {
			report.Failed = append(report.Failed, Failed{Posting: posting, Error: publicMessage(err)})
			report.NotAttempted = append(report.NotAttempted, postings[i+1:]...)
			return report, failure(report, err)
		}
		report.Succeeded = append(report.Succeeded, Posted{Posting: posting, TransactionID: id})
	}
	return report, nil
}

func failure(report Report, cause error) error {
	if len(report.Succeeded) == 0 {
		return cause
	}
	perr := apperrors.Wrap(apperrors.ErrPartialPosting, cause)
	perr.Message = fmt.Sprintf("%d of %d postings written before a failure: %s",
		len(report.Succeeded), len(report.Succeeded)+len(report.Failed)+len(report.NotAttempted), publicMessage(cause))
	return perr
}

// publicMessage keeps internal error details out of reports sent to clients.
func publicMessage(err error) string {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr.Message
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "request cancelled"
	default:
		return apperrors.ErrInternalServer.Message
	}
}
