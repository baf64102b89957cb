// internal/store/memory.go
//
// In-memory implementation of the Store interface, used when the server
// runs without a database (NO_DB=true) and in tests.
//
// Characteristics:
//   - Player rows keyed by username in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dariubs/percent"
)

// memory is a map-based Store implementation.
type memory struct {
	mu      sync.RWMutex
	players map[string]*Player
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{players: make(map[string]*Player)}
}

func (m *memory) EnsurePlayer(ctx context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[username]; !ok {
		m.players[username] = &Player{Username: username, CreatedAt: time.Now().UTC()}
	}
	return nil
}

func (m *memory) FindPlayer(ctx context.Context, username string) (*Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memory) RecordResult(ctx context.Context, winner, loser string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[winner]; ok {
		p.Wins++
	}
	if p, ok := m.players[loser]; ok {
		p.Losses++
	}
	return nil
}

func (m *memory) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 20
	}

	m.mu.RLock()
	rows := make([]LeaderboardRow, 0, len(m.players))
	created := make(map[string]time.Time, len(m.players))
	for _, p := range m.players {
		r := LeaderboardRow{Username: p.Username, Wins: p.Wins, Losses: p.Losses}
		if total := p.Wins + p.Losses; total > 0 {
			r.WinRate = percent.PercentOf(p.Wins, total)
		}
		rows = append(rows, r)
		created[p.Username] = p.CreatedAt
	}
	m.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Wins != rows[j].Wins {
			return rows[i].Wins > rows[j].Wins
		}
		if rows[i].Losses != rows[j].Losses {
			return rows[i].Losses < rows[j].Losses
		}
		return created[rows[i].Username].Before(created[rows[j].Username])
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memory) Close() error { return nil }
