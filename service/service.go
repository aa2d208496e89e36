package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apex/log"

	"response-dashboard/config"
	"response-dashboard/incidents"
	"response-dashboard/models"
)

// UpstreamAPI is the slice of the upstream emergency API the refresh cycle
// consumes.
type UpstreamAPI interface {
	ListAllReports(ctx context.Context) ([]models.Report, error)
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string, read bool) error
	DeleteNotification(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
}

// StateStore persists snapshot counters across restarts.
type StateStore interface {
	GetCounters(ctx context.Context) (pending, unseen int, seq int64, err error)
	UpdateCounters(ctx context.Context, pending, unseen int, seq int64) error
}

// Broadcaster pushes snapshots to connected dashboard clients.
type Broadcaster interface {
	BroadcastSnapshot(seq int64, snapshot interface{})
}

// SnapshotPublisher republishes snapshot summaries for downstream consumers.
type SnapshotPublisher interface {
	PublishSnapshot(summary interface{}) error
}

// Snapshot is the complete derived dashboard state from one refresh. It is
// built from scratch on every trigger and replaced atomically; nothing
// mutates a snapshot after installation.
type Snapshot struct {
	Reports       []models.Report                 `json:"reports"`
	Groups        []incidents.Group               `json:"groups"`
	Notifications []incidents.DisplayNotification `json:"notifications"`
	UnseenCount   int                             `json:"unseen_count"`
	PendingCount  int                             `json:"pending_count"`
	Alert         bool                            `json:"alert"`
	Seq           int64                           `json:"seq"`
	FetchedAt     time.Time                       `json:"fetched_at"`

	forward map[string]string
	reverse map[string]incidents.Group
}

// Summary is the compact snapshot view broadcast to WebSocket clients and
// republished to the message broker.
type Summary struct {
	Seq               int64     `json:"seq"`
	IncidentCount     int       `json:"incident_count"`
	PendingCount      int       `json:"pending_count"`
	UnseenCount       int       `json:"unseen_count"`
	ReportCount       int       `json:"report_count"`
	NotificationCount int       `json:"notification_count"`
	Alert             bool      `json:"alert"`
	FetchedAt         time.Time `json:"fetched_at"`
}

// Service owns the dashboard refresh cycle: fetch the full report and
// notification lists, run the grouping and reconciliation kernel, and install
// the result as the current snapshot.
type Service struct {
	cfg       *config.Config
	api       UpstreamAPI
	state     StateStore
	hub       Broadcaster
	publisher SnapshotPublisher

	seq int64

	mu       sync.RWMutex
	snapshot *Snapshot
	prev     Counters
}

// NewService creates the dashboard service. publisher may be nil when
// republication is disabled.
func NewService(cfg *config.Config, api UpstreamAPI, state StateStore, hub Broadcaster, publisher SnapshotPublisher) *Service {
	return &Service{
		cfg:       cfg,
		api:       api,
		state:     state,
		hub:       hub,
		publisher: publisher,
	}
}

// Start restores the persisted counters and performs the initial refresh.
func (s *Service) Start(ctx context.Context) error {
	if s.state != nil {
		pending, unseen, seq, err := s.state.GetCounters(ctx)
		if err != nil {
			return fmt.Errorf("failed to restore service state: %w", err)
		}
		s.mu.Lock()
		s.prev = Counters{Pending: pending, Unseen: unseen}
		s.mu.Unlock()
		atomic.StoreInt64(&s.seq, seq)
	}

	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("initial refresh failed: %w", err)
	}
	log.Info("dashboard service started")
	return nil
}

// Refresh re-fetches the full report and notification lists and rebuilds the
// derived state. The kernel is stateless over the fetched pair, so concurrent
// refreshes are benign; the sequence guard in install just drops whichever
// rebuild finishes late with stale data.
func (s *Service) Refresh(ctx context.Context) error {
	seq := atomic.AddInt64(&s.seq, 1)

	reports, err := s.api.ListAllReports(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch reports: %w", err)
	}
	notifications, err := s.api.ListNotifications(ctx, s.cfg.DashboardUserID)
	if err != nil {
		return fmt.Errorf("failed to fetch notifications: %w", err)
	}

	groups := incidents.GroupReports(reports, s.cfg.GroupWindow)
	forward, reverse := incidents.BuildIndex(groups)
	display := incidents.Dedupe(notifications, forward, reverse)

	snapshot := &Snapshot{
		Reports:       reports,
		Groups:        groups,
		Notifications: display,
		UnseenCount:   incidents.UnseenCount(display),
		PendingCount:  incidents.PendingCount(groups),
		Seq:           seq,
		FetchedAt:     time.Now(),
		forward:       forward,
		reverse:       reverse,
	}

	installed := s.install(snapshot)
	if !installed {
		log.Debugf("discarded stale snapshot seq %d", seq)
		return nil
	}

	s.afterInstall(ctx, snapshot)
	return nil
}

// RefreshAsync runs a refresh in the background, swallowing errors. This is
// the entry point for live events and poll ticks, where a failed refresh just
// leaves the previous snapshot in place.
func (s *Service) RefreshAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Refresh(ctx); err != nil {
			log.WithError(err).Warn("background refresh failed")
		}
	}()
}

// install swaps in the snapshot unless a newer one is already current, and
// computes the alert flag from the previous counters.
func (s *Service) install(snapshot *Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot != nil && s.snapshot.Seq > snapshot.Seq {
		return false
	}

	next := Counters{Pending: snapshot.PendingCount, Unseen: snapshot.UnseenCount}
	snapshot.Alert = ShouldAlert(s.prev, next, s.cfg.SoundEnabled)
	s.prev = next
	s.snapshot = snapshot
	return true
}

// afterInstall fans the installed snapshot out to clients, persistence and
// the broker. All of it is best-effort.
func (s *Service) afterInstall(ctx context.Context, snapshot *Snapshot) {
	summary := Summary{
		Seq:               snapshot.Seq,
		IncidentCount:     len(snapshot.Groups),
		PendingCount:      snapshot.PendingCount,
		UnseenCount:       snapshot.UnseenCount,
		ReportCount:       len(snapshot.Reports),
		NotificationCount: len(snapshot.Notifications),
		Alert:             snapshot.Alert,
		FetchedAt:         snapshot.FetchedAt,
	}

	if s.hub != nil {
		s.hub.BroadcastSnapshot(snapshot.Seq, summary)
	}
	if s.state != nil {
		if err := s.state.UpdateCounters(ctx, snapshot.PendingCount, snapshot.UnseenCount, snapshot.Seq); err != nil {
			log.WithError(err).Warn("failed to persist snapshot counters")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishSnapshot(summary); err != nil {
			log.WithError(err).Warn("failed to republish snapshot")
		}
	}

	log.Infof("snapshot %d installed: %d reports -> %d incidents (%d pending), %d notification entries (%d unseen)",
		snapshot.Seq, len(snapshot.Reports), len(snapshot.Groups), snapshot.PendingCount,
		len(snapshot.Notifications), snapshot.UnseenCount)
}

// Snapshot returns the current snapshot, which may be nil before the first
// successful refresh.
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// GroupForReport resolves an individual report id to the incident group it
// was folded into in the current snapshot.
func (s *Service) GroupForReport(reportID string) (incidents.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return incidents.Group{}, false
	}
	key, ok := s.snapshot.forward[reportID]
	if !ok {
		return incidents.Group{}, false
	}
	g, ok := s.snapshot.reverse[key]
	return g, ok
}

// MarkDisplayNotificationRead marks every raw member of the display
// notification identified by groupKey, then refreshes so the AND-read state
// is re-derived.
func (s *Service) MarkDisplayNotificationRead(ctx context.Context, groupKey string, read bool) error {
	display, err := s.findDisplay(groupKey)
	if err != nil {
		return err
	}
	for _, id := range display.MemberIDs {
		if err := s.api.MarkNotificationRead(ctx, id, read); err != nil {
			return err
		}
	}
	return s.Refresh(ctx)
}

// DeleteDisplayNotification deletes every raw member of the display
// notification identified by groupKey, then refreshes.
func (s *Service) DeleteDisplayNotification(ctx context.Context, groupKey string) error {
	display, err := s.findDisplay(groupKey)
	if err != nil {
		return err
	}
	for _, id := range display.MemberIDs {
		if err := s.api.DeleteNotification(ctx, id); err != nil {
			return err
		}
	}
	return s.Refresh(ctx)
}

// MarkAllNotificationsRead marks everything read upstream, then refreshes.
func (s *Service) MarkAllNotificationsRead(ctx context.Context) error {
	if err := s.api.MarkAllNotificationsRead(ctx, s.cfg.DashboardUserID); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// ErrNotFound is returned when a group key does not resolve in the current
// snapshot.
var ErrNotFound = fmt.Errorf("display notification not found")

func (s *Service) findDisplay(groupKey string) (incidents.DisplayNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return incidents.DisplayNotification{}, ErrNotFound
	}
	for _, d := range s.snapshot.Notifications {
		if d.GroupKey == groupKey {
			return d, nil
		}
	}
	return incidents.DisplayNotification{}, ErrNotFound
}
