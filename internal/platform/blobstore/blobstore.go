// Package blobstore stores generated dataset artifacts. It defines the Store
// interface, an in-memory implementation used by the HTTP sandbox and tests,
// a filesystem driver for the CLI, and an S3-compatible driver.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrBlobNotFound   = errors.New("blob not found")
	ErrInvalidKey     = errors.New("invalid blob key")
	ErrUnknownDriver  = errors.New("unknown blob driver")
	ErrBucketRequired = errors.New("s3 bucket is required")
)

// MaxBlobSize is the maximum accepted artifact size in bytes (256 MB).
const MaxBlobSize = 256 * 1024 * 1024

// Driver names accepted by Open.
const (
	DriverFilesystem = "fs"
	DriverMemory     = "memory"
	DriverS3         = "s3"
)

// ---------------------------------------------------------------------------
// Domain types
// ---------------------------------------------------------------------------

// Info describes a stored artifact.
type Info struct {
	Key          string    `json:"key"`
	ContentType  string    `json:"content_type,omitempty"`
	Size         int64     `json:"size"`
	SHA256       string    `json:"sha256,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the contract for artifact storage backends. Put overwrites an
// existing key.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]Info, error)
}

// Config selects and configures a driver.
type Config struct {
	Driver string
	Root   string
	S3     S3Config
}

// Open constructs the Store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverFilesystem:
		return NewFSStore(cfg.Root)
	case DriverMemory:
		return NewInMemoryStore(), nil
	case DriverS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// checkKey rejects empty, absolute and traversing keys.
func checkKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	case strings.HasPrefix(key, "/"):
		return fmt.Errorf("%w: absolute key %q", ErrInvalidKey, key)
	case strings.Contains(key, ".."):
		return fmt.Errorf("%w: %q contains '..'", ErrInvalidKey, key)
	}
	return nil
}

// readLimited reads r fully and returns the content with its SHA-256.
func readLimited(r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBlobSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxBlobSize {
		return nil, "", fmt.Errorf("blob exceeds %d bytes", MaxBlobSize)
	}
	h := sha256.Sum256(data)
	return data, hex.EncodeToString(h[:]), nil
}

func sortInfos(infos []Info) {
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedBlob struct {
	info    Info
	content []byte
}

// InMemoryStore is a thread-safe, in-memory Store.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
}

// NewInMemoryStore returns a ready-to-use InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string]*storedBlob)}
}

// Put reads the content, hashes it and stores it under key.
func (s *InMemoryStore) Put(_ context.Context, key, contentType string, r io.Reader) (Info, error) {
	if err := checkKey(key); err != nil {
		return Info{}, err
	}
	data, sum, err := readLimited(r)
	if err != nil {
		return Info{}, err
	}
	info := Info{
		Key:          key,
		ContentType:  contentType,
		Size:         int64(len(data)),
		SHA256:       sum,
		LastModified: time.Now().UTC(),
	}

	s.mu.Lock()
	s.blobs[key] = &storedBlob{info: info, content: data}
	s.mu.Unlock()

	return info, nil
}

// Get returns the blob metadata and a reader over its content.
func (s *InMemoryStore) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	s.mu.RLock()
	blob, ok := s.blobs[key]
	s.mu.RUnlock()

	if !ok {
		return Info{}, nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	return blob.info, io.NopCloser(bytes.NewReader(blob.content)), nil
}

// List returns the blobs whose key starts with prefix, sorted by key.
func (s *InMemoryStore) List(_ context.Context, prefix string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var infos []Info
	for k, b := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			infos = append(infos, b.info)
		}
	}
	sortInfos(infos)
	return infos, nil
}

// Reset drops every stored blob.
func (s *InMemoryStore) Reset() {
	s.mu.Lock()
	s.blobs = make(map[string]*storedBlob)
	s.mu.Unlock()
}
