package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/models"
)

func TestGetOrCreateSessionIDIsIdempotent(t *testing.T) {
	l := NewLocal(NewMemoryStore(), zap.NewNop())

	id1, err := l.GetOrCreateSessionID()
	require.NoError(t, err)
	id2, err := l.GetOrCreateSessionID()
	require.NoError(t, err)

	assert.NotEmpty(t, id1)
	assert.Equal(t, id1, id2)
}

func TestSaveDraftOverwritesWholesale(t *testing.T) {
	l := NewLocal(NewMemoryStore(), zap.NewNop())
	assert.True(t, l.LoadDraft().IsEmpty())
	assert.False(t, l.HasDraft())

	require.NoError(t, l.SaveDraft(Draft{DraftFields: models.DraftFields{BusinessName: "Acme", Website: "https://acme.test"}}))
	require.NoError(t, l.SaveDraft(Draft{DraftFields: models.DraftFields{BusinessName: "Acme 2"}}))

	d := l.LoadDraft()
	assert.Equal(t, "Acme 2", d.BusinessName)
	assert.Empty(t, d.Website)
}

func TestPendingFlag(t *testing.T) {
	l := NewLocal(NewMemoryStore(), zap.NewNop())
	id, err := l.GetOrCreateSessionID()
	require.NoError(t, err)

	require.NoError(t, l.MarkPending(id))
	assert.Equal(t, id, l.Pending())

	require.NoError(t, l.ClearPending())
	assert.Empty(t, l.Pending())
	assert.Equal(t, id, l.State().SessionID, "clearing the flag keeps the session")
}

func TestClearRemovesEverything(t *testing.T) {
	l := NewLocal(NewMemoryStore(), zap.NewNop())
	id, err := l.GetOrCreateSessionID()
	require.NoError(t, err)
	require.NoError(t, l.SaveDraft(Draft{DraftFields: models.DraftFields{BusinessName: "Acme"}}))
	require.NoError(t, l.MarkPending(id))

	require.NoError(t, l.Clear())
	assert.Equal(t, State{}, l.State())

	fresh, err := l.GetOrCreateSessionID()
	require.NoError(t, err)
	assert.NotEqual(t, id, fresh)
}

func TestCorruptRecordFallsBackToDefaults(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Write([]byte("{not json")))
	l := NewLocal(store, zap.NewNop())

	assert.Equal(t, State{}, l.State())
	assert.True(t, l.LoadDraft().IsEmpty())
}

func TestCorruptKeyIsTreatedAsAbsent(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Write([]byte(`{"sessionId":"sess-1","pendingSessionId":"sess-1","onboardingDraft":"oops"}`)))
	l := NewLocal(store, zap.NewNop())

	st := l.State()
	assert.Equal(t, "sess-1", st.SessionID)
	assert.Equal(t, "sess-1", st.Pending)
	assert.Nil(t, st.Draft)
	assert.False(t, l.HasDraft())
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	fs := NewFileStore(path)

	data, err := fs.Read()
	require.NoError(t, err)
	assert.Nil(t, data)

	l := NewLocal(fs, zap.NewNop())
	require.NoError(t, l.SaveDraft(Draft{DraftFields: models.DraftFields{BusinessName: "Acme"}}))

	reopened := NewLocal(NewFileStore(path), zap.NewNop())
	assert.Equal(t, "Acme", reopened.LoadDraft().BusinessName)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	require.NoError(t, reopened.Clear())
	require.NoError(t, reopened.Clear())
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
