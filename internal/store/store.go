package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"storefront/internal/util"

	"go.uber.org/zap"
)

// ErrNotFound is returned by a Backend when the key is absent
var ErrNotFound = errors.New("key not found")

// Backend is a flat key/value store holding JSON blobs
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Persisted key names
const (
	KeyCart          = "cart"
	KeyWishlist      = "wishlist"
	KeyUser          = "user"
	KeyToken         = "token"
	KeyLastOrder     = "last-order"
	KeyAdminProducts = "admin-products"
	KeyAdminOrders   = "admin-orders"
)

// ClientKey scopes a key to one storefront client
func ClientKey(clientID, name string) string {
	return "client:" + clientID + ":" + name
}

// SharedKey is visible to every client
func SharedKey(name string) string {
	return "shared:" + name
}

// LoadStatus describes the outcome of a Load
type LoadStatus int

const (
	LoadFound LoadStatus = iota
	LoadMissing
	LoadCorrupt
	LoadUnavailable
)

func (s LoadStatus) String() string {
	switch s {
	case LoadFound:
		return "found"
	case LoadMissing:
		return "missing"
	case LoadCorrupt:
		return "corrupt"
	case LoadUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// LoadResult reports what Load did. Err is set for corrupt and unavailable.
type LoadResult struct {
	Status LoadStatus
	Err    error
}

// OK reports whether the value was present and decoded
func (r LoadResult) OK() bool {
	return r.Status == LoadFound
}

// Store serializes values into a Backend under a common prefix
type Store struct {
	backend Backend
	prefix  string
	logger  *zap.Logger
}

// NewStore wraps a backend
func NewStore(backend Backend, prefix string) *Store {
	return &Store{
		backend: backend,
		prefix:  strings.TrimSuffix(prefix, ":"),
		logger:  util.GetLogger(),
	}
}

func (s *Store) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// Load decodes the value at key into dst. On anything but LoadFound dst is
// left untouched, so callers pre-fill it with their empty default.
func (s *Store) Load(ctx context.Context, key string, dst interface{}) LoadResult {
	raw, err := s.backend.Get(ctx, s.key(key))
	if errors.Is(err, ErrNotFound) {
		util.StorageLoadsTotal.WithLabelValues(LoadMissing.String()).Inc()
		return LoadResult{Status: LoadMissing}
	}
	if err != nil {
		util.StorageLoadsTotal.WithLabelValues(LoadUnavailable.String()).Inc()
		s.logger.Error("Failed to read key", zap.String("key", key), zap.Error(err))
		return LoadResult{Status: LoadUnavailable, Err: fmt.Errorf("failed to read %s: %w", key, err)}
	}

	if err := decodeInto(raw, dst); err != nil {
		util.StorageLoadsTotal.WithLabelValues(LoadCorrupt.String()).Inc()
		s.logger.Warn("Discarding corrupt value", zap.String("key", key), zap.Error(err))
		return LoadResult{Status: LoadCorrupt, Err: fmt.Errorf("corrupt value at %s: %w", key, err)}
	}

	util.StorageLoadsTotal.WithLabelValues(LoadFound.String()).Inc()
	return LoadResult{Status: LoadFound}
}

// decodeInto decodes into a scratch value first so a partial decode never
// leaks into dst.
func decodeInto(raw []byte, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("destination must be a non-nil pointer")
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return errors.New("null value")
	}

	scratch := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(raw, scratch.Interface()); err != nil {
		return err
	}
	rv.Elem().Set(scratch.Elem())
	return nil
}

// Save serializes value and writes it unconditionally
func (s *Store) Save(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, s.key(key), raw); err != nil {
		util.PersistFailuresTotal.WithLabelValues(baseName(key)).Inc()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Remove deletes key; removing an absent key is not an error
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, s.key(key)); err != nil && !errors.Is(err, ErrNotFound) {
		util.PersistFailuresTotal.WithLabelValues(baseName(key)).Inc()
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close closes the backend
func (s *Store) Close() error {
	return s.backend.Close()
}

func baseName(key string) string {
	if i := strings.LastIndex(key, ":"); i >= 0 {
		return key[i+1:]
	}
	return key
}
