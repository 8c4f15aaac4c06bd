package blobs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/filex"
	"github.com/google/uuid"
)

// LocalStore keeps blobs as regular files under root. The root is created on
// first write.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) Write(ctx context.Context, rawBase64 string) (string, error) {
	data, err := decode(rawBase64)
	if err != nil {
		return "", err
	}

	dir, err := filex.EnsureDir(s.root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	path := filepath.Join(dir, uuid.NewString())
	if err := s.WriteAt(ctx, path, data); err != nil {
		return "", err
	}
	return path, nil
}

func (s *LocalStore) WriteAt(_ context.Context, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("%w: write blob: %v", common.ErrorInternal, err)
	}
	return nil
}

func (s *LocalStore) Read(_ context.Context, path string) ([]byte, error) {
	ok, err := filex.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat blob: %v", common.ErrorInternal, err)
	}
	if !ok {
		return nil, common.ErrorNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: read blob: %v", common.ErrorInternal, err)
	}
	return data, nil
}
