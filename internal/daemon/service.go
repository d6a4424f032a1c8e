// Package daemon provides the long-running background ledger monitor service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/opencivic/civiledger/internal/ledger"
	"github.com/opencivic/civiledger/internal/model"
	"github.com/opencivic/civiledger/internal/store"
)

// BudgetSource supplies the current active budget for polling.
type BudgetSource interface {
	ActiveBudget() (*model.BudgetRecord, error)
}

// Config controls the daemon runtime behavior.
type Config struct {
	Interval     time.Duration
	Addr         string
	EventsBuffer int
}

// Snapshot is a compact ledger state for status/event payloads.
type Snapshot struct {
	At                time.Time `json:"at"`
	FiscalYear        string    `json:"fiscal_year"`
	TotalAllocated    int64     `json:"total_allocated_paise"`
	SalaryAllocated   int64     `json:"salary_allocated_paise"`
	SalarySpent       int64     `json:"salary_spent_paise"`
	OpAllocated       int64     `json:"op_allocated_paise"`
	OpSpent           int64     `json:"op_spent_paise"`
	OpReserved        int64     `json:"op_reserved_paise"`
	PendingReview     int64     `json:"pending_review_paise"`
	GrievanceCount    int       `json:"grievance_count"`
	OverrunCategories []string  `json:"overrun_categories,omitempty"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	SalarySpent    int64 `json:"salary_spent_paise"`
	OpSpent        int64 `json:"op_spent_paise"`
	OpReserved     int64 `json:"op_reserved_paise"`
	PendingReview  int64 `json:"pending_review_paise"`
	GrievanceCount int   `json:"grievance_count"`
}

func (d Delta) isZero() bool {
	return d.SalarySpent == 0 &&
		d.OpSpent == 0 &&
		d.OpReserved == 0 &&
		d.PendingReview == 0 &&
		d.GrievanceCount == 0
}

// Event is emitted whenever the ledger snapshot changes between polls, and
// immediately for every ledger mutation pushed through Notify.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
	Detail    string    `json:"detail,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
//
// CLI commands run in their own processes, so the daemon learns about their
// mutations by polling the shared database; a ledger delta shows up on the
// stream within one poll interval. Embedded deployments that construct their
// Engine in-process can pass the Service as its notifier to surface mutations
// immediately instead.
type Service struct {
	cfg    Config
	source BudgetSource

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service polling the given budget source.
func New(cfg Config, source BudgetSource) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 15 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8791"
	}

	return &Service{
		cfg:       cfg,
		source:    source,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Notify implements ledger.Notifier for in-process engines: their mutations
// become stream events immediately rather than waiting for the next poll
// tick. The standalone daemon never receives these; it relies on polling.
func (s *Service) Notify(ev ledger.Event) {
	s.mu.Lock()
	s.nextEventID++
	out := Event{
		ID:        s.nextEventID,
		Type:      string(ev.Type),
		Timestamp: ev.At,
		Detail:    ev.Detail,
	}
	s.mu.Unlock()

	s.publishEvent(out)
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce()
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce() {
	now := time.Now()
	budget, err := s.source.ActiveBudget()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		if !errors.Is(err, ledger.ErrNoActiveBudget) && !errors.Is(err, store.ErrNotFound) {
			log.Printf("civiledger daemon poll error: %v", err)
		}
		return
	}

	snap := snapshotFromBudget(budget, now)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	if !prevExists || prev.FiscalYear != snap.FiscalYear {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      "snapshot",
			Timestamp: now,
			Snapshot:  snap,
			Delta:     Delta{},
		}
		publish = true
	} else {
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() {
			s.nextEventID++
			ev = Event{
				ID:        s.nextEventID,
				Type:      "ledger_delta",
				Timestamp: now,
				Snapshot:  snap,
				Delta:     delta,
			}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func snapshotFromBudget(b *model.BudgetRecord, at time.Time) Snapshot {
	snap := Snapshot{
		At:              at,
		FiscalYear:      b.FiscalYear,
		TotalAllocated:  int64(b.TotalAllocated),
		SalaryAllocated: int64(b.Salary.Allocated),
		SalarySpent:     int64(b.Salary.Spent),
		OpAllocated:     int64(b.Operational.Allocated),
		OpSpent:         int64(b.Operational.Spent),
		OpReserved:      int64(b.Operational.Reserved),
		PendingReview:   int64(b.Operational.Pending),
	}
	for _, pool := range b.Categories {
		snap.GrievanceCount += pool.GrievanceCount
		if pool.Overrun() {
			snap.OverrunCategories = append(snap.OverrunCategories, string(pool.Category))
		}
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		SalarySpent:    curr.SalarySpent - prev.SalarySpent,
		OpSpent:        curr.OpSpent - prev.OpSpent,
		OpReserved:     curr.OpReserved - prev.OpReserved,
		PendingReview:  curr.PendingReview - prev.PendingReview,
		GrievanceCount: curr.GrievanceCount - prev.GrievanceCount,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
