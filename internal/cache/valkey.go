package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// DefaultPageTTL bounds pages stored without an explicit TTL.
const DefaultPageTTL = 10 * time.Minute

// ValkeyStore keeps ranked-page payloads in a Valkey-compatible server.
// Keys are namespaced by a generation counter so Invalidate is a single INCR.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "places"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// NewValkeyClient accepts either a bare host:port or a redis:// style URL and
// pings the server before returning.
func NewValkeyClient(ctx context.Context, addr string) (valkey.Client, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse valkey url: %w", err)
		}
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}
	return client, nil
}

// Generation reads the shared generation counter; a missing counter is 0.
func (s *ValkeyStore) Generation(ctx context.Context) (int64, error) {
	gen, err := s.client.Do(ctx, s.client.B().Get().Key(s.generationKey()).Build()).AsInt64()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return 0, nil
		}
		return 0, err
	}
	return gen, nil
}

func (s *ValkeyStore) Get(ctx context.Context, gen int64, key string) ([]byte, bool, error) {
	b, err := s.client.Do(ctx, s.client.B().Get().Key(s.pageKey(gen, key)).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// Set writes under gen. Every key expires, so pages of old generations are
// reclaimed; ttl <= 0 means DefaultPageTTL.
func (s *ValkeyStore) Set(ctx context.Context, gen int64, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	cmd := s.client.B().Set().Key(s.pageKey(gen, key)).Value(valkey.BinaryString(value)).Ex(ttl).Build()
	return s.client.Do(ctx, cmd).Error()
}

// Invalidate orphans every cached page; orphans age out through their TTL.
func (s *ValkeyStore) Invalidate(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Incr().Key(s.generationKey()).Build()).Error()
}

func (s *ValkeyStore) generationKey() string {
	return fmt.Sprintf("%s:gen", s.prefix)
}

func (s *ValkeyStore) pageKey(gen int64, key string) string {
	return fmt.Sprintf("%s:page:%d:%s", s.prefix, gen, key)
}
