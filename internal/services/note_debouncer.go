package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NoteDebouncer coalesces rapid note edits into one write per line. Each edit
// restarts the line's quiet period; only the latest value is written when the
// period elapses. Close cancels everything still pending without writing.
type NoteDebouncer struct {
	mu      sync.Mutex
	timers  map[uuid.UUID]*time.Timer
	pending map[uuid.UUID]string
	quiet   time.Duration
	write   func(ctx context.Context, lineID uuid.UUID, note string) error
	closed  bool
}

// NewNoteDebouncer creates a debouncer with the given quiet period. write is
// invoked once per burst of edits with the final value.
func NewNoteDebouncer(quiet time.Duration, write func(ctx context.Context, lineID uuid.UUID, note string) error) *NoteDebouncer {
	return &NoteDebouncer{
		timers:  make(map[uuid.UUID]*time.Timer),
		pending: make(map[uuid.UUID]string),
		quiet:   quiet,
		write:   write,
	}
}

// Set records an edit and restarts the line's quiet period
func (d *NoteDebouncer) Set(lineID uuid.UUID, note string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.pending[lineID] = note
	if timer, ok := d.timers[lineID]; ok {
		timer.Stop()
	}
	d.timers[lineID] = time.AfterFunc(d.quiet, func() {
		d.flush(lineID)
	})
}

func (d *NoteDebouncer) flush(lineID uuid.UUID) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	note, ok := d.pending[lineID]
	delete(d.pending, lineID)
	delete(d.timers, lineID)
	d.mu.Unlock()

	if !ok {
		return
	}
	if err := d.write(context.Background(), lineID, note); err != nil {
		log.Error().Err(err).Str("line_id", lineID.String()).Msg("failed to write debounced note")
	}
}

// Close cancels all pending timers. Edits still in their quiet period are
// dropped, matching an editor teardown before the debounce fires.
func (d *NoteDebouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for id, timer := range d.timers {
		timer.Stop()
		delete(d.timers, id)
		delete(d.pending, id)
	}
}
