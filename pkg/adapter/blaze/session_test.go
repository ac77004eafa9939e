package blaze

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRegistry(t *testing.T) {
	r := NewSessionRegistry()

	a := r.Open("10.0.0.1:5000")
	b := r.Open("10.0.0.2:5000")
	assert.Equal(t, 2, r.Len())
	assert.NotEqual(t, a.ID, b.ID)

	_, err := uuid.Parse(a.ID)
	require.NoError(t, err)

	got, ok := r.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	t.Run("ListIsOrderedByConnectTime", func(t *testing.T) {
		b.ConnectedAt = a.ConnectedAt.Add(time.Second)
		list := r.List()
		require.Len(t, list, 2)
		assert.Equal(t, a.ID, list[0].ID)
		assert.Equal(t, b.ID, list[1].ID)
	})

	t.Run("CloseAddr", func(t *testing.T) {
		closed, ok := r.CloseAddr("10.0.0.1:5000")
		require.True(t, ok)
		assert.Same(t, a, closed)
		assert.Equal(t, 1, r.Len())

		_, ok = r.Get(a.ID)
		assert.False(t, ok)

		_, ok = r.CloseAddr("10.0.0.1:5000")
		assert.False(t, ok)
	})
}

func TestSessionCounters(t *testing.T) {
	s := newSession("127.0.0.1:1")
	assert.Nil(t, s.Info().LastPacketAt)

	s.recordIn(10)
	s.recordIn(5)
	s.recordOut(20)
	s.decodeErrors.Add(1)

	info := s.Info()
	assert.Equal(t, uint64(2), info.PacketsIn)
	assert.Equal(t, uint64(15), info.BytesIn)
	assert.Equal(t, uint64(1), info.PacketsOut)
	assert.Equal(t, uint64(20), info.BytesOut)
	assert.Equal(t, uint64(1), info.DecodeErrors)
	require.NotNil(t, info.LastPacketAt)
	assert.False(t, info.LastPacketAt.Before(s.ConnectedAt))
}
