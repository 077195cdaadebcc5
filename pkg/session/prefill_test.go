package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timoknapp/badminton-buddy/pkg/models"
)

type memPrefill struct {
	data []byte
}

func (m *memPrefill) SavePrefill(d []byte) error   { m.data = d; return nil }
func (m *memPrefill) LoadPrefill() ([]byte, error) { return m.data, nil }
func (m *memPrefill) TakePrefill() ([]byte, error) {
	d := m.data
	m.data = nil
	return d, nil
}
func (m *memPrefill) ClearPrefill() error { m.data = nil; return nil }

func TestPrefillConsumedOnce(t *testing.T) {
	p := NewPrefills(&memPrefill{})
	want := models.BookingPrefill{OpponentID: 3, OpponentName: "Bo", StartTime: "2025-12-28T17:00:00", EndTime: "2025-12-28T18:00:00"}
	require.NoError(t, p.Stash(want))

	got, err := p.Take()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
	assert.Equal(t, "Selected partner: Bo", PrefillNote(*got))

	again, err := p.Take()
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestPrefillPeekLeavesRecord(t *testing.T) {
	p := NewPrefills(&memPrefill{})
	require.NoError(t, p.Stash(models.BookingPrefill{OpponentID: 3, OpponentName: "Bo"}))

	for i := 0; i < 2; i++ {
		got, err := p.Peek()
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 3, got.OpponentID)
	}

	p.Discard()
	got, err := p.Peek()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPrefillCorruptIsIgnored(t *testing.T) {
	p := NewPrefills(&memPrefill{data: []byte("{broken")})
	got, err := p.Take()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPrefillDiscardOnSessionEnd(t *testing.T) {
	store := &memPrefill{}
	p := NewPrefills(store)
	require.NoError(t, p.Stash(models.BookingPrefill{OpponentID: 3}))

	h := Open(&fakeAuth{user: ana}, &memMirror{})
	h.OnEnd(p.Discard)
	require.NoError(t, h.Clear())

	assert.Nil(t, store.data)
	assert.Equal(t, "Booking details prefilled.", PrefillNote(models.BookingPrefill{OpponentID: 3}))
}
