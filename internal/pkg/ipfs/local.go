package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by LocalStore.Fetch for unknown content
var ErrNotFound = errors.New("ipfs: not found")

// LocalStore is a filesystem content-addressed store used in development and tests.
// Objects are immutable and keyed by their CIDv1 (raw, sha2-256); the directory is served
// over HTTP under baseURL.
type LocalStore struct {
	root    string
	baseURL string
	logger  zerolog.Logger
}

// NewLocalStore creates the store directory if needed
func NewLocalStore(root, baseURL string, logger zerolog.Logger) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("ipfs: local root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ipfs: failed to create local store %s: %w", root, err)
	}
	if baseURL == "" {
		baseURL = "ipfs://"
	}
	if !strings.HasSuffix(baseURL, "://") {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &LocalStore{
		root:    root,
		baseURL: baseURL,
		logger:  logger.With().Str("component", "local_ipfs").Logger(),
	}, nil
}

// Root returns the directory backing the store
func (s *LocalStore) Root() string {
	return s.root
}

// Publish stores data; republishing identical bytes returns the same locator
func (s *LocalStore) Publish(_ context.Context, data []byte, _ string, name string) (string, error) {
	if len(data) == 0 {
		return "", publishError(ErrEmptyContent, "artifact upload rejected")
	}

	id, err := DigestCID(data)
	if err != nil {
		return "", publishError(err, "failed to derive content identifier")
	}

	path := filepath.Join(s.root, id.String())
	if existing, err := os.ReadFile(path); err == nil {
		if !bytes.Equal(existing, data) {
			return "", publishError(fmt.Errorf("stored object %s does not match its identifier", id), "local store corrupted")
		}
		return s.locator(id), nil
	} else if !os.IsNotExist(err) {
		return "", publishError(err, "failed to read stored content")
	}

	// Objects only appear under their identifier once fully written
	if err := writeAtomic(s.root, path, data); err != nil {
		return "", publishError(err, "failed to store content")
	}

	s.logger.Debug().Str("cid", id.String()).Str("name", name).Int("size", len(data)).Msg("Content stored")
	return s.locator(id), nil
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o444); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// PublishDocument stores the JSON encoding of doc
func (s *LocalStore) PublishDocument(ctx context.Context, doc interface{}, name string) (string, error) {
	if doc == nil {
		return "", publishError(ErrEmptyContent, "document upload rejected")
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", publishError(err, "failed to encode document")
	}
	return s.Publish(ctx, payload, "application/json", name)
}

// Fetch reads content back and verifies it against its identifier
func (s *LocalStore) Fetch(_ context.Context, locator string) ([]byte, error) {
	if !strings.HasPrefix(locator, s.baseURL) {
		return nil, fmt.Errorf("ipfs: locator %q does not belong to this store", locator)
	}
	id, err := cid.Decode(strings.TrimLeft(strings.TrimPrefix(locator, s.baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCID, err)
	}

	data, err := os.ReadFile(filepath.Join(s.root, id.String()))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	got, err := DigestCID(data)
	if err != nil {
		return nil, err
	}
	if !got.Equals(id) {
		return nil, fmt.Errorf("ipfs: content of %s does not match its identifier", id)
	}
	return data, nil
}

func (s *LocalStore) locator(id cid.Cid) string {
	if strings.HasSuffix(s.baseURL, "://") {
		return s.baseURL + id.String()
	}
	return s.baseURL + "/" + id.String()
}
