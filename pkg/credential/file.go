package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/jam/pkg/logging"
)

const (
	// FileName is the token file inside the config directory.
	FileName = "token.json"

	lockName = ".token.lock"
)

// LockTimeout is the maximum time to wait for the token file lock. When it
// expires the operation proceeds without the lock so the CLI never hangs on a
// stale lock.
const LockTimeout = 100 * time.Millisecond

// FileStore keeps the credential in a JSON file.
type FileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore creates a store writing FileName below dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:    dir,
		logger: logging.NewLogger("credential"),
	}
}

// Name implements Store.
func (s *FileStore) Name() string { return "file" }

// Path returns the full path of the token file.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) (Credential, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", s.Path()).Msg("Token file unreadable, ignoring")
		}
		return Credential{}, nil
	}

	cred, err := decode(data)
	if err != nil {
		s.logger.Debug().Err(err).Str("path", s.Path()).Msg("Corrupt token file ignored")
		return Credential{}, nil
	}

	s.logger.Debug().Str("path", s.Path()).Time("expires_at", cred.ExpiresAt).Msg("Loaded credential")
	return cred, nil
}

// Save implements Store. The file is replaced atomically with mode 0600.
func (s *FileStore) Save(ctx context.Context, cred Credential) error {
	lock, err := s.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("lock token file: %w", err)
	}
	defer lock.release()

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := writeAtomic(s.dir, s.Path(), data); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}

	s.logger.Debug().Str("path", s.Path()).Msg("Saved credential")
	return nil
}

// Clear implements Store.
func (s *FileStore) Clear(ctx context.Context) error {
	lock, err := s.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("lock token file: %w", err)
	}
	defer lock.release()

	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

type fileLock struct {
	flock *flock.Flock
}

// acquireLock returns a nil lock without error when LockTimeout expires.
func (s *FileStore) acquireLock(ctx context.Context) (*fileLock, error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, err
	}

	fl := flock.New(filepath.Join(s.dir, lockName))

	lockCtx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, 10*time.Millisecond)
	if err != nil {
		if errors.Is(lockCtx.Err(), context.DeadlineExceeded) {
			s.logger.Debug().Msg("Token file lock busy, continuing without it")
			return nil, nil
		}
		return nil, err
	}
	if !locked {
		return nil, nil
	}
	return &fileLock{flock: fl}, nil
}

func (l *fileLock) release() {
	if l == nil || l.flock == nil {
		return
	}
	_ = l.flock.Unlock()
}

// writeAtomic writes data to a temp file in dir and renames it over dest.
func writeAtomic(dir, dest string, data []byte) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, "token-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(dest)
			return os.Rename(tmpPath, dest)
		}
		os.Remove(tmpPath)
		return err
	}
	return nil
}
