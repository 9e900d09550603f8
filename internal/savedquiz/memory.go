package savedquiz

import (
	"context"
	"sync"

	"github.com/park285/opening-quiz/internal/domain"
)

// MemoryStore keeps saved quizzes in process. Intended for development
// and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	list     []domain.SavedQuiz
	watchers map[chan []domain.SavedQuiz]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{watchers: make(map[chan []domain.SavedQuiz]struct{})}
}

func (m *MemoryStore) List(ctx context.Context) ([]domain.SavedQuiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.SavedQuiz{}, m.list...), nil
}

func (m *MemoryStore) Append(ctx context.Context, q domain.SavedQuiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == "" {
		q.ID = LegacyID(q)
	}
	m.list = append(append([]domain.SavedQuiz(nil), m.list...), q)
	m.notifyLocked()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := removeByID(m.list, id)
	if err != nil {
		return err
	}
	m.list = next
	m.notifyLocked()
	return nil
}

func (m *MemoryStore) Watch(ctx context.Context) (<-chan []domain.SavedQuiz, error) {
	ch := make(chan []domain.SavedQuiz, 1)
	m.mu.Lock()
	m.watchers[ch] = struct{}{}
	m.mu.Unlock()
	go func() {
		<-ctx.Done()
		m.mu.Lock()
		if _, ok := m.watchers[ch]; ok {
			delete(m.watchers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}()
	return ch, nil
}

// notifyLocked hands every watcher the latest list, replacing any value it
// has not consumed yet.
func (m *MemoryStore) notifyLocked() {
	for ch := range m.watchers {
		snapshot := append([]domain.SavedQuiz{}, m.list...)
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.watchers {
		close(ch)
	}
	m.watchers = make(map[chan []domain.SavedQuiz]struct{})
	return nil
}
