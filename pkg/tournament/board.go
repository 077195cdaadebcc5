package tournament

import (
	"context"
	"strings"
	"sync"

	"github.com/timoknapp/badminton-buddy/pkg/logger"
	"github.com/timoknapp/badminton-buddy/pkg/models"
)

// Lister is the API call the board refreshes from.
type Lister interface {
	Tournaments(ctx context.Context) ([]models.Tournament, error)
}

// Board is the tournament list with one selected entry.
type Board struct {
	mu       sync.RWMutex
	items    []models.Tournament
	selected *models.Tournament
}

// Refresh reloads the list. With keepSelection the current selection survives if it is
// still listed; otherwise the first tournament becomes selected. A failed refresh
// empties the board and returns the error.
func (b *Board) Refresh(ctx context.Context, l Lister, keepSelection bool) error {
	list, err := l.Tournaments(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.items = nil
		b.selected = nil
		return err
	}

	prev := b.selected
	b.items = list
	b.selected = nil
	if keepSelection && prev != nil {
		if t, ok := find(list, prev.TournamentID); ok {
			b.selected = &t
		}
	}
	if b.selected == nil && len(list) > 0 {
		first := list[0]
		b.selected = &first
	}
	logger.Debug("Tournament board refreshed: %d tournament(s)", len(list))
	return nil
}

func (b *Board) Items() []models.Tournament {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.Tournament(nil), b.items...)
}

// Select picks a listed tournament by id and reports whether it was found.
func (b *Board) Select(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := find(b.items, id)
	if ok {
		b.selected = &t
	}
	return ok
}

func (b *Board) Selected() (models.Tournament, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.selected == nil {
		return models.Tournament{}, false
	}
	return *b.selected, true
}

// CanCreate gates tournament creation: admins only, a non-blank name, and room for more than one player.
func CanCreate(u models.User, name string, maxPlayers int) bool {
	return u.IsAdmin() && strings.TrimSpace(name) != "" && maxPlayers > 1
}

func find(list []models.Tournament, id int) (models.Tournament, bool) {
	for _, t := range list {
		if t.TournamentID == id {
			return t, true
		}
	}
	return models.Tournament{}, false
}
