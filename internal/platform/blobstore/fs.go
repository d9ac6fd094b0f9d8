package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FSStore writes blobs as plain files under a root directory, so artifacts
// land where a user expects them.
type FSStore struct {
	root string
}

// NewFSStore returns a filesystem store rooted at root ("." when empty),
// creating the directory if needed.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", root, err)
	}
	return &FSStore{root: root}, nil
}

// Root returns the directory blobs are written to.
func (s *FSStore) Root() string { return s.root }

func (s *FSStore) pathFor(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(filepath.ToSlash(filepath.Clean(key)))), nil
}

// Put writes the content through a temp file and renames it into place.
func (s *FSStore) Put(_ context.Context, key, contentType string, r io.Reader) (Info, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return Info{}, err
	}
	data, sum, err := readLimited(r)
	if err != nil {
		return Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Info{}, fmt.Errorf("store %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return Info{}, fmt.Errorf("store %s: %w", key, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return Info{}, fmt.Errorf("store %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return Info{}, fmt.Errorf("store %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Info{}, fmt.Errorf("store %s: %w", key, err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("store %s: %w", key, err)
	}
	return Info{
		Key:          key,
		ContentType:  contentType,
		Size:         st.Size(),
		SHA256:       sum,
		LastModified: st.ModTime().UTC(),
	}, nil
}

// Get opens the file stored under key.
func (s *FSStore) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return Info{}, nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	if err != nil {
		return Info{}, nil, fmt.Errorf("open %s: %w", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return Info{}, nil, fmt.Errorf("stat %s: %w", key, err)
	}
	return Info{
		Key:          key,
		ContentType:  contentTypeFor(key),
		Size:         st.Size(),
		LastModified: st.ModTime().UTC(),
	}, f, nil
}

// List walks the root and returns files whose slash-separated key starts
// with prefix.
func (s *FSStore) List(_ context.Context, prefix string) ([]Info, error) {
	var infos []Info
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		st, err := d.Info()
		if err != nil {
			return err
		}
		infos = append(infos, Info{
			Key:          key,
			ContentType:  contentTypeFor(key),
			Size:         st.Size(),
			LastModified: st.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.root, err)
	}
	sortInfos(infos)
	return infos, nil
}

func contentTypeFor(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
