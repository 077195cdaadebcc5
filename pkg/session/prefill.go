package session

import (
	"encoding/json"
	"fmt"

	"github.com/timoknapp/badminton-buddy/pkg/logger"
	"github.com/timoknapp/badminton-buddy/pkg/models"
)

// PrefillStore keeps at most one booking prefill record.
// LoadPrefill reads it in place and TakePrefill returns and removes it in one step;
// both return nil, nil when there is none.
type PrefillStore interface {
	SavePrefill(data []byte) error
	LoadPrefill() ([]byte, error)
	TakePrefill() ([]byte, error)
	ClearPrefill() error
}

// Prefills hands a chosen partner and time window from the partner search to the booking flow.
type Prefills struct {
	store PrefillStore
}

func NewPrefills(store PrefillStore) *Prefills {
	return &Prefills{store: store}
}

// Stash replaces any pending prefill.
func (p *Prefills) Stash(pf models.BookingPrefill) error {
	data, err := json.Marshal(pf)
	if err != nil {
		return fmt.Errorf("failed to encode booking prefill: %w", err)
	}
	return p.store.SavePrefill(data)
}

// Peek returns the pending prefill and leaves it in place.
func (p *Prefills) Peek() (*models.BookingPrefill, error) {
	data, err := p.store.LoadPrefill()
	if err != nil {
		return nil, fmt.Errorf("failed to read booking prefill: %w", err)
	}
	return decodePrefill(data), nil
}

// Take consumes the pending prefill. An unreadable record is dropped and reported as none.
func (p *Prefills) Take() (*models.BookingPrefill, error) {
	data, err := p.store.TakePrefill()
	if err != nil {
		return nil, fmt.Errorf("failed to read booking prefill: %w", err)
	}
	return decodePrefill(data), nil
}

func decodePrefill(data []byte) *models.BookingPrefill {
	if len(data) == 0 {
		return nil
	}
	var pf models.BookingPrefill
	if err := json.Unmarshal(data, &pf); err != nil {
		logger.Warn("Ignoring unreadable booking prefill: %v", err)
		return nil
	}
	return &pf
}

// Discard drops the pending prefill, if any.
func (p *Prefills) Discard() {
	if err := p.store.ClearPrefill(); err != nil {
		logger.Warn("Could not clear booking prefill: %v", err)
	}
}

// PrefillNote is the line shown when a booking starts from a prefill.
func PrefillNote(pf models.BookingPrefill) string {
	if pf.OpponentName != "" {
		return "Selected partner: " + pf.OpponentName
	}
	return "Booking details prefilled."
}
