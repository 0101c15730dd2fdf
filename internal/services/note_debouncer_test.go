package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noteRecorder struct {
	mu     sync.Mutex
	writes []string
}

func (r *noteRecorder) write(ctx context.Context, lineID uuid.UUID, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, note)
	return nil
}

func (r *noteRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.writes...)
}

func TestDebouncerCoalescesEdits(t *testing.T) {
	recorder := &noteRecorder{}
	d := NewNoteDebouncer(30*time.Millisecond, recorder.write)
	defer d.Close()

	id := lineID(1)
	d.Set(id, "a")
	d.Set(id, "ab")
	d.Set(id, "abc")

	require.Eventually(t, func() bool {
		return len(recorder.all()) > 0
	}, time.Second, 5*time.Millisecond)

	writes := recorder.all()
	require.Len(t, writes, 1)
	assert.Equal(t, "abc", writes[0])
}

func TestDebouncerIndependentLines(t *testing.T) {
	recorder := &noteRecorder{}
	d := NewNoteDebouncer(20*time.Millisecond, recorder.write)
	defer d.Close()

	d.Set(lineID(1), "uno")
	d.Set(lineID(2), "due")

	require.Eventually(t, func() bool {
		return len(recorder.all()) == 2
	}, time.Second, 5*time.Millisecond)

	assert.ElementsMatch(t, []string{"uno", "due"}, recorder.all())
}

func TestDebouncerCloseDropsPending(t *testing.T) {
	recorder := &noteRecorder{}
	d := NewNoteDebouncer(50*time.Millisecond, recorder.write)

	d.Set(lineID(1), "mai scritta")
	d.Close()

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, recorder.all())

	// Edits after Close are ignored
	d.Set(lineID(2), "ignorata")
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, recorder.all())
}
