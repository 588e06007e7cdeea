package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamStore keeps blobs in a NATS JetStream object store bucket.
type JetStreamStore struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	store  jetstream.ObjectStore
	bucket string
}

func NewJetStreamStore(natsURL, bucket string) (*JetStreamStore, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamStore{conn: conn, js: js, bucket: bucket}, nil
}

// Init opens the bucket, creating it on first use.
func (s *JetStreamStore) Init(ctx context.Context) error {
	store, err := s.js.ObjectStore(ctx, s.bucket)
	if err == nil {
		s.store = store
		return nil
	}

	store, err = s.js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      s.bucket,
		Description: "Task attachments",
	})
	if err != nil {
		return fmt.Errorf("failed to create object store bucket: %w", err)
	}
	s.store = store
	return nil
}

func (s *JetStreamStore) Write(ctx context.Context, name string, data []byte, contentType string) error {
	meta := jetstream.ObjectMeta{
		Name:    name,
		Headers: nats.Header{"Content-Type": []string{contentType}},
	}
	if _, err := s.store.Put(ctx, meta, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to store object: %w", err)
	}
	return nil
}

func (s *JetStreamStore) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := s.store.GetBytes(ctx, name)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return data, nil
}

func (s *JetStreamStore) Delete(ctx context.Context, name string) error {
	err := s.store.Delete(ctx, name)
	if err != nil && !errors.Is(err, jetstream.ErrObjectNotFound) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *JetStreamStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
