package sessionsvc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/user"
)

func TestFileStore(t *testing.T) {
	conf := &core.Config{SessionFile: filepath.Join(t.TempDir(), "nested", "session.json")}
	store := NewFileStore(conf)
	ctx := context.Background()

	_, err := store.Load(ctx)
	assert.Equal(t, user.ErrNoSession, err)

	sess := user.Session{
		Teacher:     user.Teacher{Username: "prof", Name: "Prof"},
		AccessToken: "tok",
		IssuedAt:    time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, sess))

	info, err := os.Stat(conf.SessionFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.Equal(t, user.ErrNoSession, err)
}

func TestFileStore_Corrupted(t *testing.T) {
	conf := &core.Config{SessionFile: filepath.Join(t.TempDir(), "session.json")}
	require.NoError(t, os.WriteFile(conf.SessionFile, []byte("{not json"), 0o600))

	_, err := NewFileStore(conf).Load(context.Background())
	assert.Error(t, err)
	assert.NotEqual(t, user.ErrNoSession, err)
}
