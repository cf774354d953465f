// Package artifactstore persists finished audio artifacts in a NATS
// JetStream object store bucket.
package artifactstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Static errors.
var (
	// ErrKeyEmpty indicates an operation without an artifact key.
	ErrKeyEmpty = errors.New("artifact key cannot be empty")
	// ErrDataEmpty indicates a save of zero artifact bytes.
	ErrDataEmpty = errors.New("artifact data cannot be empty")
)

const artifactDescription = "Finished production audio artifact"

// Store implements the core.ArtifactStore interface on NATS JetStream.
type Store struct {
	bucket string
	store  nats.ObjectStore
}

// New creates the bucket if it does not exist, or binds to it if it does.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*Store, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Audio artifacts for the %s bucket.", bucketName),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf(
				"failed to create artifact bucket '%s': %w",
				bucketName,
				err,
			)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to bind to existing artifact bucket '%s': %w",
				bucketName,
				err,
			)
		}
	}

	return &Store{
		bucket: bucketName,
		store:  store,
	}, nil
}

// Save stores one finished audio artifact under key.
func (s *Store) Save(_ context.Context, key string, data []byte) error {
	if key == "" {
		return ErrKeyEmpty
	}

	if len(data) == 0 {
		return ErrDataEmpty
	}

	_, err := s.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: artifactDescription,
		Headers:     nil,
		Metadata:    map[string]string{"content-type": "audio/wav"},
		Opts:        nil,
	}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf(
			"failed to store artifact '%s' in bucket '%s': %w",
			key,
			s.bucket,
			err,
		)
	}

	return nil
}

// Load retrieves one finished audio artifact by key.
func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}

	object, err := s.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get artifact '%s' from bucket '%s': %w",
			key,
			s.bucket,
			err,
		)
	}

	data, readErr := io.ReadAll(object)
	closeErr := object.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read artifact '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close artifact '%s': %w", key, closeErr)
	}

	return data, nil
}
