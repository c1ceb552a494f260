package audit

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/Additional-Code/backorder/internal/entity"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

// FeedEntry is one audit entry as shown in the activity feed.
type FeedEntry struct {
	ID         int64
	UserID     int64
	FirstName  string
	Action     entity.Action
	ActionText string
	Target     entity.Target
	Details    string
	Date       time.Time
}

// FeedDay groups the entries of one UTC calendar day.
type FeedDay struct {
	Date    time.Time
	Entries []FeedEntry
}

// Latest returns up to days days that have entries, newest day first,
// each holding at most perDay entries ordered by id descending.
func (r *Recorder) Latest(ctx context.Context, days, perDay int) ([]FeedDay, error) {
	ctx, span := serviceTracer.Start(ctx, "AuditRecorder.Latest")
	defer span.End()

	var out []FeedDay
	var cutoff *time.Time
	for len(out) < days {
		last, ok, err := r.repo.LatestBefore(ctx, cutoff)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "latest failed")
			return nil, errorbank.Storage("failed to load activity", errorbank.WithCause(err))
		}
		if !ok {
			break
		}
		start := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
		views, err := r.repo.Between(ctx, start, start.AddDate(0, 0, 1), perDay)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "between failed")
			return nil, errorbank.Storage("failed to load activity", errorbank.WithCause(err))
		}
		day := FeedDay{Date: start, Entries: make([]FeedEntry, 0, len(views))}
		for _, v := range views {
			day.Entries = append(day.Entries, FeedEntry{
				ID:         v.ID,
				UserID:     v.UserID,
				FirstName:  firstName(v.UserName),
				Action:     v.Action,
				ActionText: v.Action.Text(),
				Target:     v.Table,
				Details:    v.Details,
				Date:       v.Date.UTC(),
			})
		}
		out = append(out, day)
		cutoff = &start
	}
	return out, nil
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
