// Package valkey is a remote Store over valkey-go. It shares the key layout
// of the redis package, so both can point at the same server.
package valkey

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/unkn0wn-root/gridcache/internal/util"
	pr "github.com/unkn0wn-root/gridcache/provider"
)

var ErrNilClient = errors.New("valkey provider: nil client")

const (
	scanCount  = 512
	roleMaster = "master"
)

type Store struct {
	client      valkey.Client
	name        string
	prefix      string
	ttl         time.Duration
	closeClient bool
}

var _ pr.Store = (*Store)(nil)

type Config struct {
	Client valkey.Client
	Prefix string
	// Expiration is applied to every Put; 0 = never expire. Sub-second
	// values round up to one second.
	Expiration  time.Duration
	CloseClient bool // set true only if this store exclusively owns the client
}

func New(name string, cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Store{
		client:      cfg.Client,
		name:        name,
		prefix:      cfg.Prefix,
		ttl:         max(cfg.Expiration, 0),
		closeClient: cfg.CloseClient,
	}, nil
}

func (s *Store) Name() string { return s.name }

func (s *Store) key(k string) string { return util.StorageKey(s.prefix, s.name, k) }

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(s.key(key)).Build())
	if err := resp.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	b, err := resp.AsBytes()
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) (bool, error) {
	set := s.client.B().Set().Key(s.key(key)).Value(valkey.BinaryString(value))
	var cmd valkey.Completed
	if s.ttl > 0 {
		// EX takes whole seconds
		seconds := int64(s.ttl.Seconds())
		if seconds == 0 {
			seconds = 1
		}
		cmd = set.ExSeconds(seconds).Build()
	} else {
		cmd = set.Build()
	}
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.key(key)).Build()).Error()
}

func (s *Store) Clear(ctx context.Context) error {
	return s.scan(ctx, func(keys []string) error {
		cmds := make(valkey.Commands, 0, len(keys))
		for _, k := range keys {
			cmds = append(cmds, s.client.B().Del().Key(k).Build())
		}
		// sent through the client so each DEL is routed by slot
		for _, resp := range s.client.DoMulti(ctx, cmds...) {
			if err := resp.Error(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Size(ctx context.Context) (int, error) {
	n := 0
	err := s.scan(ctx, func(keys []string) error {
		n += len(keys)
		return nil
	})
	return n, err
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var out []string
	strip := util.StoragePrefix(s.prefix, s.name)
	err := s.scan(ctx, func(keys []string) error {
		for _, k := range keys {
			out = append(out, strings.TrimPrefix(k, strip))
		}
		return nil
	})
	return out, err
}

// scan walks every key of this cache on every primary.
func (s *Store) scan(ctx context.Context, fn func(keys []string) error) error {
	nodes, err := s.primaries(ctx)
	if err != nil {
		return err
	}
	match := util.ScanPattern(s.prefix, s.name)
	for _, node := range nodes {
		var cursor uint64
		for {
			entry, err := node.Do(ctx, node.B().Scan().Cursor(cursor).Match(match).Count(scanCount).Build()).AsScanEntry()
			if err != nil {
				return err
			}
			if len(entry.Elements) > 0 {
				if err := fn(entry.Elements); err != nil {
					return err
				}
			}
			if entry.Cursor == 0 {
				break
			}
			cursor = entry.Cursor
		}
	}
	return nil
}

// primaries returns the nodes that own keyspace. Cluster clients and
// standalone clients with replicas also hold replica connections, which
// repeat the primaries' keys and refuse writes.
func (s *Store) primaries(ctx context.Context) ([]valkey.Client, error) {
	nodes := s.client.Nodes()
	out := make([]valkey.Client, 0, len(nodes))
	for _, node := range nodes {
		role, err := node.Do(ctx, node.B().Role().Build()).ToArray()
		if err != nil {
			return nil, err
		}
		if len(role) == 0 {
			continue
		}
		if r, _ := role[0].ToString(); r == roleMaster {
			out = append(out, node)
		}
	}
	return out, nil
}

// Close releases the client only when this store owns it.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		s.client.Close()
	}
	return nil
}
