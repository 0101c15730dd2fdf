package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"example.com/woodtrack/services/production/internal/messaging"
	"example.com/woodtrack/services/production/internal/models"
	"example.com/woodtrack/services/production/internal/repositories"
)

// fakeLineStore is an in-memory LineStore and LineWriter
type fakeLineStore struct {
	mu    sync.Mutex
	lines map[uuid.UUID]models.OrderLine

	failUpdates map[uuid.UUID]bool
}

func newFakeLineStore(lines ...models.OrderLine) *fakeLineStore {
	s := &fakeLineStore{
		lines:       make(map[uuid.UUID]models.OrderLine),
		failUpdates: make(map[uuid.UUID]bool),
	}
	for _, line := range lines {
		s.lines[line.ID] = line
	}
	return s
}

func (s *fakeLineStore) GetByID(ctx context.Context, id uuid.UUID) (*models.OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, ok := s.lines[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copy := line
	return &copy, nil
}

func (s *fakeLineStore) ListByStatuses(ctx context.Context, statuses ...models.Status) ([]models.OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OrderLine
	for _, line := range s.lines {
		for _, status := range statuses {
			if line.Status == status {
				out = append(out, line)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeLineStore) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdates[id] {
		return errors.New("induced write failure")
	}
	line, ok := s.lines[id]
	if !ok {
		return repositories.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "status":
			line.Status = value.(models.Status)
		case "payload":
			line.Payload = value.(models.LinePayload)
		case "group_code":
			if value == nil {
				line.GroupCode = nil
			} else {
				code := value.(string)
				line.GroupCode = &code
			}
		}
	}
	s.lines[id] = line
	return nil
}

func (s *fakeLineStore) Create(ctx context.Context, line *models.OrderLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[line.ID] = *line
	return nil
}

func (s *fakeLineStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lines, id)
	return nil
}

func (s *fakeLineStore) get(id uuid.UUID) models.OrderLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines[id]
}

// fakeGroupStore implements GroupStore on top of a fakeLineStore with the same
// collect-not-propagate semantics as the real repository.
type fakeGroupStore struct {
	lines *fakeLineStore
}

func (s *fakeGroupStore) MembersOf(ctx context.Context, code string) ([]models.OrderLine, error) {
	s.lines.mu.Lock()
	defer s.lines.mu.Unlock()
	var out []models.OrderLine
	for _, line := range s.lines.lines {
		if line.GroupCode != nil && *line.GroupCode == code {
			out = append(out, line)
		}
	}
	return out, nil
}

func (s *fakeGroupStore) ApplyToGroup(ctx context.Context, code string, mutate func(line models.OrderLine) map[string]interface{}) error {
	members, err := s.MembersOf(ctx, code)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return errors.Errorf("group %s has no members", code)
	}

	var failed []uuid.UUID
	var causes []error
	for _, member := range members {
		fields := mutate(member)
		if len(fields) == 0 {
			continue
		}
		if err := s.lines.Update(ctx, member.ID, fields); err != nil {
			failed = append(failed, member.ID)
			causes = append(causes, err)
		}
	}

	if len(failed) == len(members) && len(failed) > 0 {
		return errors.Wrapf(causes[0], "failed to update group %s", code)
	}
	if len(failed) > 0 {
		return &repositories.PartialApplyError{GroupCode: code, FailedIDs: failed, Causes: causes}
	}
	return nil
}

func (s *fakeGroupStore) Dissolve(ctx context.Context, code string) error {
	members, err := s.MembersOf(ctx, code)
	if err != nil {
		return err
	}
	for _, member := range members {
		if err := s.lines.Update(ctx, member.ID, map[string]interface{}{"group_code": nil}); err != nil {
			return err
		}
	}
	return nil
}

// fakePublisher records published events
type fakePublisher struct {
	mu     sync.Mutex
	events []messaging.TransitionEvent
}

func (p *fakePublisher) PublishTransition(ctx context.Context, event messaging.TransitionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []messaging.TransitionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]messaging.TransitionEvent(nil), p.events...)
}

// lineID builds a deterministic uuid from a small number
func lineID(n byte) uuid.UUID {
	return uuid.UUID{15: n}
}

func strptr(s string) *string { return &s }
