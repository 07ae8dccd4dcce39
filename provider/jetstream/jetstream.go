// Package jetstream is a remote Store over a NATS JetStream key-value bucket.
// Each cache gets its own bucket; keys are base64url encoded because bucket
// keys have a restricted alphabet.
package jetstream

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/unkn0wn-root/gridcache/internal/util"
	pr "github.com/unkn0wn-root/gridcache/provider"
)

var ErrNilConn = errors.New("jetstream provider: nil connection")

// kvStreamPrefix is how JetStream names the stream backing a bucket.
const kvStreamPrefix = "KV_"

type Store struct {
	conn      *nats.Conn
	js        jetstream.JetStream
	kv        jetstream.KeyValue
	name      string
	bucket    string
	closeConn bool
}

var _ pr.Store = (*Store)(nil)

type Config struct {
	Conn         *nats.Conn
	BucketPrefix string
	// Expiration becomes the bucket TTL; 0 = never expire.
	Expiration time.Duration
	Replicas   int
	CloseConn  bool // set true only if this store exclusively owns the connection
}

// Open binds the cache to its bucket, creating the bucket when missing.
func Open(ctx context.Context, name string, cfg Config) (*Store, error) {
	if cfg.Conn == nil {
		return nil, ErrNilConn
	}
	js, err := jetstream.New(cfg.Conn)
	if err != nil {
		return nil, err
	}
	bucket := util.BucketName(cfg.BucketPrefix, name)
	kv, err := bind(ctx, js, jetstream.KeyValueConfig{
		Bucket:   bucket,
		TTL:      max(cfg.Expiration, 0),
		Replicas: max(cfg.Replicas, 1),
	})
	if err != nil {
		return nil, err
	}
	return &Store{
		conn:      cfg.Conn,
		js:        js,
		kv:        kv,
		name:      name,
		bucket:    bucket,
		closeConn: cfg.CloseConn,
	}, nil
}

// bind gets the bucket, creating it if absent. A concurrent creator winning
// the race is not an error.
func bind(ctx context.Context, js jetstream.JetStream, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, cfg.Bucket)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, err
	}
	kv, err = js.CreateKeyValue(ctx, cfg)
	if errors.Is(err, jetstream.ErrBucketExists) {
		return js.KeyValue(ctx, cfg.Bucket)
	}
	return kv, err
}

func (s *Store) Name() string { return s.name }

// Bucket returns the name of the backing bucket.
func (s *Store) Bucket() string { return s.bucket }

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, err := s.kv.Get(ctx, util.EncodeBucketKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return e.Value(), true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) (bool, error) {
	if _, err := s.kv.Put(ctx, util.EncodeBucketKey(key), value); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, util.EncodeBucketKey(key))
}

// Clear purges the stream behind the bucket, dropping values and delete
// markers alike.
func (s *Store) Clear(ctx context.Context) error {
	stream, err := s.js.Stream(ctx, kvStreamPrefix+s.bucket)
	if err != nil {
		return err
	}
	return stream.Purge(ctx)
}

func (s *Store) Size(ctx context.Context) (int, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lister.Stop() }()

	var keys []string
	for k := range lister.Keys() {
		dec, err := util.DecodeBucketKey(k)
		if err != nil {
			// not written by this package
			continue
		}
		keys = append(keys, dec)
	}
	return keys, ctx.Err()
}

// Close drains the connection only when this store owns it.
func (s *Store) Close(context.Context) error {
	if s.closeConn && !s.conn.IsClosed() {
		return s.conn.Drain()
	}
	return nil
}
