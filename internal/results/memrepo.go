package results

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/pocket-matcher/internal/domain"
)

// memrepo is used when no DATABASE_URL is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID    int64
	bySession map[string]*domain.SessionResult
	byLevel   map[string][]*domain.SessionResult
}

func NewMemoryRepository() Repository {
	return &memrepo{
		bySession: make(map[string]*domain.SessionResult),
		byLevel:   make(map[string][]*domain.SessionResult),
	}
}

func (m *memrepo) InsertResult(_ context.Context, res *domain.SessionResult) (int64, error) {
	if err := validateResult(res); err != nil {
		return 0, err
	}
	key := strings.TrimSpace(res.SessionID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bySession[key]; exists {
		return 0, ErrDuplicateResult
	}
	m.nextID++
	cp := *res
	cp.ID = m.nextID
	cp.FinalBoard = append([]string(nil), res.FinalBoard...)
	m.bySession[key] = &cp
	m.byLevel[cp.Level] = append(m.byLevel[cp.Level], &cp)
	return cp.ID, nil
}

func (m *memrepo) RecentResults(_ context.Context, level string, limit int) ([]*domain.SessionResult, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]*domain.SessionResult, 0, len(m.byLevel[level]))
	for _, r := range m.byLevel[level] {
		cp := *r
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) BestScore(ctx context.Context, level string) (int, error) {
	st, err := m.Stats(ctx, level)
	if err != nil {
		return 0, err
	}
	return st.BestScore, nil
}

func (m *memrepo) Stats(_ context.Context, level string) (*domain.LevelStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := &domain.LevelStats{Level: level}
	for _, r := range m.byLevel[level] {
		st.Played++
		if r.Won {
			st.Wins++
		}
		st.BestScore = max(st.BestScore, r.Score)
		st.BestStars = max(st.BestStars, r.Stars)
	}
	return st, nil
}
