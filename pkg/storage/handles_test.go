package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandleRegistryPreviewSupersedes(t *testing.T) {
	reg := NewHandleRegistry(time.Minute)

	first, released := reg.Acquire(Handle{Kind: HandlePreview, Owner: "c1", Key: "c1/a.pdf"})
	require.Empty(t, released)
	second, released := reg.Acquire(Handle{Kind: HandlePreview, Owner: "c1", Key: "c1/a.pdf"})
	require.Len(t, released, 1)
	require.Equal(t, first.ID, released[0].ID)

	_, ok := reg.Get(first.ID)
	require.False(t, ok)
	got, ok := reg.Get(second.ID)
	require.True(t, ok)
	require.Equal(t, "c1/a.pdf", got.Key)

	other, released := reg.Acquire(Handle{Kind: HandlePreview, Owner: "c2", Key: "c1/a.pdf"})
	require.Empty(t, released)
	require.NotEqual(t, second.ID, other.ID)
}

func TestHandleRegistryExpiryAndSweep(t *testing.T) {
	reg := NewHandleRegistry(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	staged, _ := reg.Acquire(Handle{Kind: HandleStaged, Owner: "c1", Key: "staging/c1/x"})
	now = now.Add(2 * time.Minute)

	_, ok := reg.Get(staged.ID)
	require.False(t, ok)
	require.Equal(t, 1, reg.Len())

	expired := reg.Sweep()
	require.Len(t, expired, 1)
	require.Equal(t, "staging/c1/x", expired[0].Key)
	require.Equal(t, 0, reg.Len())
}

func TestHandleRegistryReleaseKey(t *testing.T) {
	reg := NewHandleRegistry(time.Minute)
	a, _ := reg.Acquire(Handle{Kind: HandlePreview, Owner: "c1", Key: "c1/a.pdf"})
	reg.Acquire(Handle{Kind: HandlePreview, Owner: "c1", Key: "c1/b.pdf"})

	released := reg.ReleaseKey("c1/a.pdf")
	require.Len(t, released, 1)
	require.Equal(t, a.ID, released[0].ID)
	require.Equal(t, 1, reg.Len())

	_, ok := reg.Release("missing")
	require.False(t, ok)
}
