package asset

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardartoul/assetcache/pkg/keyderive"
)

var errBoom = errors.New("boom")

type memBacking struct {
	data       map[string]string
	readErr    error
	writeErr   error
	releaseErr error
	deleteErr  error
	reads      int
	releases   int
}

func newMemBacking() *memBacking {
	return &memBacking{data: make(map[string]string)}
}

func (m *memBacking) Read(key string) (string, error) {
	m.reads++
	if m.readErr != nil {
		return "", m.readErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", errors.Newf("key %s missing", key)
	}
	return v, nil
}

func (m *memBacking) Write(key string, payload string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data[key] = payload
	return nil
}

func (m *memBacking) Release(string) error {
	m.releases++
	return m.releaseErr
}

func (m *memBacking) Delete(key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.data[key]; !ok {
		return errors.Newf("key %s missing", key)
	}
	delete(m.data, key)
	return nil
}

type note struct {
	Base[string]
}

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newNote(t *testing.T, b *memBacking, c *fakeClock, days int) *note {
	t.Helper()
	n := &note{}
	require.NoError(t, n.Init("note", "https://x/a.txt", "hello", days, b, WithClock(c.Now)))
	return n
}

func TestInitSavesPayload(t *testing.T) {
	b := newMemBacking()
	c := newFakeClock()
	n := newNote(t, b, c, 5)

	assert.Equal(t, "note", n.Kind())
	assert.Equal(t, "https://x/a.txt", n.URL())
	assert.Equal(t, keyderive.Derive("https://x/a.txt"), n.Key())
	assert.Equal(t, c.now, n.RefreshedAt())
	assert.Equal(t, c.now.AddDate(0, 0, 5), n.ExpiresAt())
	assert.Equal(t, 5, n.LifetimeDays())
	assert.True(t, n.IsLoaded())
	assert.Equal(t, "hello", b.data[n.Key()])
}

func TestInitFailsWhenSaveFails(t *testing.T) {
	b := newMemBacking()
	b.writeErr = errBoom

	n := &note{}
	err := n.Init("note", "https://x/a.txt", "hello", 5, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConstruction))
	assert.True(t, errors.Is(err, ErrBacking))
	assert.True(t, errors.Is(err, errBoom))
	assert.False(t, n.IsLoaded())
}

func TestLoadUsesMemoryWhenLoaded(t *testing.T) {
	b := newMemBacking()
	n := newNote(t, b, newFakeClock(), 5)

	v, err := n.Load()
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
	assert.Equal(t, 0, b.reads)
}

func TestLoadReadsBackingAfterRelease(t *testing.T) {
	b := newMemBacking()
	n := newNote(t, b, newFakeClock(), 5)

	require.NoError(t, n.Release())
	assert.False(t, n.IsLoaded())
	assert.Equal(t, 1, b.releases)

	v, err := n.Load()
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
	assert.Equal(t, 1, b.reads)
	assert.True(t, n.IsLoaded())

	_, err = n.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, b.reads)
}

func TestLoadFailureLeavesAssetUnloaded(t *testing.T) {
	b := newMemBacking()
	n := newNote(t, b, newFakeClock(), 5)
	require.NoError(t, n.Release())

	b.readErr = errBoom
	_, err := n.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBacking))
	assert.Contains(t, err.Error(), n.Key())
	assert.False(t, n.IsLoaded())
}

func TestSaveFailureKeepsPreviousPayload(t *testing.T) {
	b := newMemBacking()
	n := newNote(t, b, newFakeClock(), 5)

	b.writeErr = errBoom
	require.Error(t, n.Save("changed"))

	v, err := n.Load()
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
	assert.Equal(t, "hello", b.data[n.Key()])
}

func TestReleaseIsIdempotent(t *testing.T) {
	b := newMemBacking()
	n := newNote(t, b, newFakeClock(), 5)

	require.NoError(t, n.Release())
	require.NoError(t, n.Release())
	assert.Equal(t, 1, b.releases)
}

func TestReleaseFailureKeepsPayload(t *testing.T) {
	b := newMemBacking()
	n := newNote(t, b, newFakeClock(), 5)

	b.releaseErr = errBoom
	require.Error(t, n.Release())
	assert.True(t, n.IsLoaded())
}

func TestRemoveNotifiesOnce(t *testing.T) {
	b := newMemBacking()
	n := newNote(t, b, newFakeClock(), 5)

	calls := 0
	n.SetRemovedHandler(func() { calls++ })

	require.NoError(t, n.Remove())
	assert.Equal(t, 1, calls)
	assert.False(t, n.IsLoaded())
	assert.Empty(t, b.data)

	err := n.Remove()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBacking))
	assert.Equal(t, 1, calls)
}

func TestRemoveFailureDoesNotNotify(t *testing.T) {
	b := newMemBacking()
	n := newNote(t, b, newFakeClock(), 5)

	calls := 0
	n.SetRemovedHandler(func() { calls++ })

	b.deleteErr = errBoom
	require.Error(t, n.Remove())
	assert.Equal(t, 0, calls)
	assert.True(t, n.IsLoaded())
}

func TestUnsubscribedHandlerDoesNotFire(t *testing.T) {
	b := newMemBacking()
	n := newNote(t, b, newFakeClock(), 5)

	calls := 0
	n.SetRemovedHandler(func() { calls++ })
	n.SetRemovedHandler(nil)

	require.NoError(t, n.Remove())
	assert.Equal(t, 0, calls)
}

func TestExpiration(t *testing.T) {
	t.Run("zero days expires at refresh", func(t *testing.T) {
		c := newFakeClock()
		n := newNote(t, newMemBacking(), c, 0)
		assert.True(t, n.IsExpired())
	})

	t.Run("expires when lifetime passes", func(t *testing.T) {
		c := newFakeClock()
		n := newNote(t, newMemBacking(), c, 5)
		c.Advance(5*24*time.Hour - time.Nanosecond)
		assert.False(t, n.IsExpired())
		c.Advance(time.Nanosecond)
		assert.True(t, n.IsExpired())
	})

	t.Run("negative lifetime never expires", func(t *testing.T) {
		c := newFakeClock()
		n := newNote(t, newMemBacking(), c, -1)
		assert.Equal(t, MaxTime, n.ExpiresAt())
		c.now = time.Date(9000, 1, 1, 0, 0, 0, 0, time.UTC)
		assert.False(t, n.IsExpired())
	})
}

func TestRefreshExpiration(t *testing.T) {
	c := newFakeClock()
	n := newNote(t, newMemBacking(), c, 1)

	c.Advance(2 * 24 * time.Hour)
	assert.True(t, n.IsExpired())

	n.RefreshExpiration()
	assert.False(t, n.IsExpired())
	assert.Equal(t, c.now, n.RefreshedAt())
	assert.Equal(t, c.now.AddDate(0, 0, 1), n.ExpiresAt())

	n.RefreshExpiration(10)
	assert.Equal(t, 10, n.LifetimeDays())
	assert.Equal(t, c.now.AddDate(0, 0, 10), n.ExpiresAt())

	first := n.Metadata()
	n.RefreshExpiration(10)
	assert.Equal(t, first, n.Metadata())

	n.RefreshExpiration(-3)
	assert.Equal(t, MaxTime, n.ExpiresAt())
}

func TestRestoreKeepsMetadataVerbatim(t *testing.T) {
	b := newMemBacking()
	meta := Metadata{
		Kind:         "note",
		URL:          "https://x/b.txt",
		Key:          keyderive.Derive("https://x/b.txt"),
		RefreshedAt:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt:    time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC),
		LifetimeDays: 2,
	}
	b.data[meta.Key] = "stored"

	n := &note{}
	require.NoError(t, n.Restore(meta, b))
	assert.Equal(t, meta, n.Metadata())
	assert.False(t, n.IsLoaded())

	v, err := n.Load()
	require.NoError(t, err)
	assert.Equal(t, "stored", v)
}

func TestRestoreRejectsIncompleteMetadata(t *testing.T) {
	n := &note{}
	err := n.Restore(Metadata{URL: "https://x"}, newMemBacking())
	assert.True(t, errors.Is(err, ErrInvalidDescriptor))
}

func TestMetadataRoundTrip(t *testing.T) {
	c := newFakeClock()
	n := newNote(t, newMemBacking(), c, -1)

	data, err := n.MarshalMetadata()
	require.NoError(t, err)

	meta, err := DecodeMetadata(string(data))
	require.NoError(t, err)
	assert.Equal(t, n.Metadata(), meta)
	assert.True(t, meta.ExpiresAt.Equal(MaxTime))
}

func TestExpirationForClampsHugeLifetimes(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, MaxTime, ExpirationFor(now, 1<<40))
	assert.Equal(t, now.AddDate(0, 0, 3), ExpirationFor(now, 3))
}
