package reconcile

import (
	"context"
	"fmt"

	"desaweb/pkg/events"
	"desaweb/pkg/logger"
	"desaweb/pkg/normalize"
	"desaweb/pkg/record"
	"desaweb/pkg/recordstore"
)

// PushFailure is one record PushLocal could not migrate.
type PushFailure struct {
	ID  record.ID `json:"id"`
	Err string    `json:"error"`
}

type PushReport struct {
	News       int           `json:"news"`
	Businesses int           `json:"businesses"`
	Reviews    int           `json:"reviews"`
	Failures   []PushFailure `json:"failures"`
}

// PushLocal copies every mirror-only record into the record store and
// replaces the mirror record with a cached copy of the new row. News keep
// their slug; reviews follow their business to its new id. A failing record
// is reported and skipped, the batch goes on.
func (s *Service) PushLocal(ctx context.Context) (PushReport, error) {
	report := PushReport{Failures: []PushFailure{}}
	if s.remote == nil {
		return report, ErrNoRemote
	}
	fail := func(id record.ID, err error) {
		logger.WithField("id", id.String()).Warnf("push to record store: %v", err)
		report.Failures = append(report.Failures, PushFailure{ID: id, Err: err.Error()})
	}

	news, err := s.mirror.News().GetAll(ctx)
	if err != nil {
		return report, err
	}
	for _, n := range news {
		if !n.ID.IsLocal() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		stored, err := s.News().insert(ctx, n, n.Slug)
		if err != nil {
			fail(n.ID, err)
			continue
		}
		if err := s.replaceNews(ctx, n.ID, stored); err != nil {
			return report, err
		}
		report.News++
		s.publish(ctx, events.NewsCreated, stored.ID, map[string]any{"migratedFrom": n.ID.String()})
	}

	businesses, err := s.mirror.Businesses().GetAll(ctx)
	if err != nil {
		return report, err
	}
	for _, b := range businesses {
		if !b.ID.IsLocal() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		row, err := s.remote.Insert(ctx, recordstore.Businesses, normalize.BusinessRow(b))
		if err != nil {
			fail(b.ID, err)
			continue
		}
		stored := normalize.Business(row)
		if stored.TanggalDaftar == "" {
			stored.TanggalDaftar = b.TanggalDaftar
		}
		if err := s.mirror.Businesses().Put(ctx, stored); err != nil {
			return report, err
		}
		if _, err := s.mirror.Businesses().Delete(ctx, b.ID); err != nil {
			return report, err
		}
		moved, err := s.mirror.Reviews().Reassign(ctx, b.ID.String(), stored.ID.String())
		if err != nil {
			return report, err
		}
		report.Businesses++
		report.Reviews += moved
		s.publish(ctx, events.BusinessRegistered, stored.ID, map[string]any{"migratedFrom": b.ID.String()})
	}

	logger.WithField("news", report.News).
		WithField("businesses", report.Businesses).
		WithField("failures", len(report.Failures)).
		Info("pushed mirror records to record store")
	return report, nil
}

func (s *Service) replaceNews(ctx context.Context, local record.ID, stored record.News) error {
	if err := s.mirror.News().Put(ctx, stored); err != nil {
		return fmt.Errorf("cache pushed news: %w", err)
	}
	if _, err := s.mirror.News().Delete(ctx, local); err != nil {
		return fmt.Errorf("drop pushed news: %w", err)
	}
	return nil
}
