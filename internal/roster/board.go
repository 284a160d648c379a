package roster

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"dashboard/internal/metrics"
)

var (
	// ErrStale is returned by Refresh when a newer refresh started before
	// this one finished. Its result was discarded.
	ErrStale = errors.New("roster: refresh superseded by a newer request")
	// ErrClosed is returned once the board has been closed.
	ErrClosed = errors.New("roster: board closed")
)

// LoadFunc fetches and merges the records for a board.
type LoadFunc func(ctx context.Context) ([]DisplayRecord, error)

// Board holds the merged records of one teacher session. Only the most
// recently started refresh may commit its result.
type Board struct {
	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	records []DisplayRecord
	loaded  bool
	closed  bool
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{}
}

// Refresh cancels any in-flight load, runs load and commits its result if no
// newer refresh has started and the board is still open.
func (b *Board) Refresh(ctx context.Context, load LoadFunc) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.gen++
	gen := b.gen
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.mu.Unlock()
	defer cancel()

	records, err := load(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		metrics.StaleRefreshes.Inc()
		return ErrClosed
	}
	if gen != b.gen {
		metrics.StaleRefreshes.Inc()
		return ErrStale
	}
	b.cancel = nil
	if err != nil {
		return err
	}
	b.records = records
	b.loaded = true
	return nil
}

// Loaded reports whether a refresh has committed.
func (b *Board) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

// Snapshot returns a copy of the committed records.
func (b *Board) Snapshot() []DisplayRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]DisplayRecord, len(b.records))
	copy(out, b.records)
	return out
}

// Visible applies Filter to the committed records.
func (b *Board) Visible(term string, status StatusFilter) []DisplayRecord {
	return Filter(b.Snapshot(), term, status)
}

// Find returns the committed record for a student.
func (b *Board) Find(studentID string) (DisplayRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.records {
		if rec.ID == studentID {
			return rec, true
		}
	}
	return DisplayRecord{}, false
}

// Apply sets the status of a student in place and reports whether the
// student was on the board. A non-empty at replaces the displayed time.
// Loads still in flight are superseded so they cannot overwrite the change.
func (b *Board) Apply(studentID string, status Status, at string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	for i := range b.records {
		if b.records[i].ID != studentID {
			continue
		}
		b.records[i].Status = status
		if at != "" {
			b.records[i].Time = at
		}
		if b.cancel != nil {
			b.cancel()
			b.cancel = nil
		}
		b.gen++
		return true
	}
	return false
}

// Close cancels in-flight loads and drops the records.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.closed = true
	b.records = nil
	b.loaded = false
}

// Boards keeps one board per session.
type Boards struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]*boardEntry
}

type boardEntry struct {
	board    *Board
	lastUsed time.Time
}

// NewBoards creates an empty registry.
func NewBoards() *Boards {
	return &Boards{now: time.Now, entries: make(map[string]*boardEntry)}
}

// Get returns the board for a session, creating it on first use.
func (r *Boards) Get(sessionID string) *Board {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok {
		e = &boardEntry{board: NewBoard()}
		r.entries[sessionID] = e
		metrics.ActiveSessions.Inc()
	}
	e.lastUsed = r.now()
	return e.board
}

// Drop closes and forgets the board for a session. It reports whether a
// board was held.
func (r *Boards) Drop(sessionID string) bool {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	if ok {
		delete(r.entries, sessionID)
		metrics.ActiveSessions.Dec()
	}
	r.mu.Unlock()
	if ok {
		e.board.Close()
	}
	return ok
}

// Len returns the number of boards held.
func (r *Boards) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops boards not used for longer than idle and returns how many
// were dropped.
func (r *Boards) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	var stale []*Board
	r.mu.Lock()
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e.board)
			delete(r.entries, id)
			metrics.ActiveSessions.Dec()
		}
	}
	r.mu.Unlock()
	for _, b := range stale {
		b.Close()
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (r *Boards) Run(ctx context.Context, every, idle time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				log.Printf("dropped %d idle boards", n)
			}
		}
	}
}
