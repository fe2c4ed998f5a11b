// Package sessionsvc persists the admin CLI session between runs.
package sessionsvc

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/user"
)

// FileStore keeps the session as JSON in a file readable by its owner only.
type FileStore struct {
	path string
}

var _ user.SessionStore = (*FileStore)(nil)

func NewFileStore(conf *core.Config) *FileStore {
	return &FileStore{path: conf.SessionFile}
}

func (fs *FileStore) Load(_ context.Context) (user.Session, error) {
	b, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return user.Session{}, user.ErrNoSession
		}
		return user.Session{}, errors.Wrapf(err, "reading %s", fs.path)
	}

	var sess user.Session
	if err = json.Unmarshal(b, &sess); err != nil {
		return user.Session{}, errors.Wrapf(err, "decoding %s", fs.path)
	}
	if sess.IsZero() {
		return user.Session{}, user.ErrNoSession
	}
	return sess, nil
}

func (fs *FileStore) Save(_ context.Context, sess user.Session) error {
	b, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err = os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(fs.path))
	}
	return errors.Wrapf(os.WriteFile(fs.path, b, 0o600), "writing %s", fs.path)
}

func (fs *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing %s", fs.path)
	}
	return nil
}
