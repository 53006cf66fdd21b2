package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/orderdesk/apiserver/config"
	"github.com/orderdesk/apiserver/types"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ReceiptContentType is the content type receipts are stored with.
const ReceiptContentType = "application/json"

// Receipts change whenever their order does.
const receiptCacheControl = "no-cache"

// ReceiptKey is the object key an order's receipt is archived under.
func ReceiptKey(orderID int) string {
	return fmt.Sprintf("receipts/orders/%d.json", orderID)
}

// Object is a blob plus the attributes stored alongside it.
type Object struct {
	Key          string
	Body         []byte
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

// NewReceipt renders the JSON snapshot of order stored under ReceiptKey.
func NewReceipt(order types.Order) (Object, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return Object{}, fmt.Errorf("encode receipt: %w", err)
	}
	return Object{
		Key:          ReceiptKey(order.ID),
		Body:         body,
		ContentType:  ReceiptContentType,
		CacheControl: receiptCacheControl,
		Metadata: map[string]string{
			"order-id": strconv.Itoa(order.ID),
			"user-id":  strconv.Itoa(order.UserID),
		},
	}, nil
}

// ObjectStorage is implemented by each bucket backend.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, obj Object) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete must treat a missing key as success.
	Delete(ctx context.Context, key string) error
	Bucket() string
	Close() error
}

// Storage fronts one backend and rejects malformed keys before any network call.
type Storage struct {
	backend ObjectStorage
}

func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// Open builds the backend named by cfg.Backend and makes sure its bucket exists.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Backend {
	case config.StorageBackendMinio:
		backend, err = NewMinioBackend(cfg.Minio)
	case config.StorageBackendGCS:
		backend, err = NewGCSBackend(ctx, cfg.GCS)
	case config.StorageBackendS3:
		backend, err = NewS3Backend(ctx, cfg.S3)
	case "":
		return nil, errors.New("no storage backend configured")
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s storage: %w", cfg.Backend, err)
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewStorage(backend), nil
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("object key is required")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("object key %q must be relative", key)
	}
	return nil
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

func (s *Storage) Put(ctx context.Context, obj Object) error {
	if err := validateKey(obj.Key); err != nil {
		return err
	}
	return s.backend.Put(ctx, obj)
}

func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	return s.backend.Get(ctx, key)
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.backend.Delete(ctx, key)
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

func (s *Storage) Close() error {
	return s.backend.Close()
}
