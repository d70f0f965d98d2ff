package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/events"
	"o2d-backend/internal/sheets"
)

const DefaultInterval = 5 * time.Minute

// Publisher receives refresh notifications.
type Publisher interface {
	Publish(eventType string, payload any)
}

// Service keeps the FMS snapshot fresh.
type Service struct {
	source sheets.Reader
	store  Store
	layout dispatch.Layout
	pub    Publisher
	log    *zap.Logger
	now    func() time.Time

	group singleflight.Group
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(source sheets.Reader, store Store, layout dispatch.Layout, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		source: source,
		store:  store,
		layout: layout,
		log:    log.Named("snapshot"),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Layout() dispatch.Layout {
	return s.layout
}

// Refresh fetches the sheet and replaces the stored snapshot. Callers
// that arrive while a refresh is running share its result.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	v, err, shared := s.group.Do("refresh", func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debug("refresh shared with concurrent caller")
	}
	return v.(*Snapshot), nil
}

func (s *Service) refresh(ctx context.Context) (*Snapshot, error) {
	rows, err := s.source.Fetch(ctx, s.layout.Sheet)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.layout.Sheet, err)
	}

	header := dispatch.Header(rows, s.layout)
	layout := s.layout
	if len(layout.Headers) > 0 {
		layout, err = layout.Resolve(header)
		if err != nil {
			return nil, err
		}
	}

	records := dispatch.ParseRows(rows, layout)
	snap := &Snapshot{
		Records:   records,
		Options:   dispatch.CollectOptions(records),
		Header:    header,
		FetchedAt: s.now().UTC(),
		Columns:   layout.Columns,
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	s.log.Info("snapshot refreshed",
		zap.String("sheet", layout.Sheet),
		zap.Int("rows", len(rows)),
		zap.Int("records", len(records)),
	)
	if s.pub != nil {
		s.pub.Publish(events.TypeDashboardRefresh, map[string]any{
			"records":    len(records),
			"fetched_at": snap.FetchedAt,
		})
	}
	return snap, nil
}

// Current returns the stored snapshot, fetching one when the store is
// empty.
func (s *Service) Current(ctx context.Context) (*Snapshot, error) {
	snap, err := s.store.Load(ctx)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, ErrMiss) {
		s.log.Warn("snapshot store unavailable, fetching directly", zap.Error(err))
	}
	return s.Refresh(ctx)
}

// Run refreshes immediately and then every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s.tick(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("refresh loop stopped")
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		s.log.Error("scheduled refresh failed", zap.Error(err))
	}
}
