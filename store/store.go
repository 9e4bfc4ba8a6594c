// Package store keeps BOSS documents in any byte Provider.
//
// Entries are framed with a magic/version header and validated on read;
// entries that fail validation or decoding are deleted on the spot
// (self-heal) and reported as misses.
//
// Keys:
//
//	single:<ns>:<key>  - one document
//	bulk:<ns>:<hash>   - a set of documents sharing one reference cache
//	                     (hash over the sorted member keys)
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/unkn0wn-root/boss"
	"github.com/unkn0wn-root/boss/codec"
	"github.com/unkn0wn-root/boss/internal/entry"
	"github.com/unkn0wn-root/boss/provider"
)

const defaultTTL = 10 * time.Minute

// SetCostFunc returns the provider cost of an entry. n is the number of
// documents it holds.
type SetCostFunc func(storageKey string, raw []byte, isBulk bool, n int) int64

type Options struct {
	Namespace string            // required
	Provider  provider.Provider // required

	Logger boss.Logger // if nil, boss.NopLogger
	Hooks  Hooks       // if nil, NopHooks

	// DefaultTTL applies when a write passes ttl == 0. 0 => 10m.
	DefaultTTL time.Duration
	// Compress stores single documents inside a compression envelope.
	Compress bool
	// MaxEntrySize bounds encoded documents in both directions. 0 disables.
	MaxEntrySize int
	// Codec tunes the BOSS encoder and decoder.
	Codec boss.Options
	// ComputeSetCost defaults to a constant 1.
	ComputeSetCost SetCostFunc
}

// Store is safe for concurrent use as long as its Provider is.
type Store struct {
	ns         string
	provider   provider.Provider
	codec      codec.Value
	bossOpts   boss.Options
	maxEntry   int
	log        boss.Logger
	hooks      Hooks
	defaultTTL time.Duration
	cost       SetCostFunc
}

func New(opts Options) (*Store, error) {
	if opts.Provider == nil {
		return nil, errors.New("store: provider is required")
	}
	if opts.Namespace == "" {
		return nil, errors.New("store: namespace is required")
	}
	s := &Store{
		ns:       opts.Namespace,
		provider: opts.Provider,
		bossOpts: opts.Codec,
		maxEntry: opts.MaxEntrySize,
		codec: codec.Limit[boss.Value]{
			Inner:     codec.Boss{Compressed: opts.Compress, Options: opts.Codec},
			MaxEncode: opts.MaxEntrySize,
			MaxDecode: opts.MaxEntrySize,
		},
	}

	// defaults
	s.log = coalesce[boss.Logger](opts.Logger, boss.NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.defaultTTL = coalesce(opts.DefaultTTL, defaultTTL)
	if opts.ComputeSetCost != nil {
		s.cost = opts.ComputeSetCost
	} else {
		s.cost = func(string, []byte, bool, int) int64 { return 1 }
	}
	return s, nil
}

// Get returns the document stored under key. Corrupt or undecodable
// entries are deleted and reported as a miss.
func (s *Store) Get(ctx context.Context, key string) (boss.Value, bool, error) {
	k := s.singleKey(key)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil || !ok {
		return nil, false, err
	}
	e, err := entry.Decode(raw)
	if err != nil || e.Kind != entry.KindSingle {
		s.heal(ctx, k, "corrupt")
		return nil, false, nil
	}
	v, err := s.codec.Decode(e.Payload)
	if err != nil {
		s.heal(ctx, k, "decode")
		return nil, false, nil
	}
	return v, true, nil
}

// Put stores v under key. ttl == 0 means the store default.
func (s *Store) Put(ctx context.Context, key string, v boss.Value, ttl time.Duration) error {
	payload, err := s.codec.Encode(v)
	if err != nil {
		return err
	}
	return s.set(ctx, s.singleKey(key), entry.Encode(entry.KindSingle, 1, payload), false, 1, ttl)
}

func (s *Store) Del(ctx context.Context, key string) error {
	return s.provider.Del(ctx, s.singleKey(key))
}

// PutBulk stores items as one entry. Members share one reference cache, so
// a value repeated across members is stored once.
func (s *Store) PutBulk(ctx context.Context, items map[string]boss.Value, ttl time.Duration) error {
	if len(items) == 0 {
		return nil
	}
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	enc := boss.NewEncoder(nil, s.bossOpts)
	for _, k := range keys {
		enc.Add(boss.Text(k)).Add(items[k])
	}
	if err := enc.Err(); err != nil {
		return err
	}
	payload := enc.Bytes()
	if s.maxEntry > 0 && len(payload) > s.maxEntry {
		return fmt.Errorf("%w: bulk of %d members is %d bytes", codec.ErrPayloadTooLarge, len(keys), len(payload))
	}
	raw := entry.Encode(entry.KindBulk, 2*len(keys), payload)
	return s.set(ctx, s.bulkKey(keys), raw, true, len(keys), ttl)
}

// GetBulk returns the documents for keys. A bulk entry written by PutBulk
// for the same key set is used when it is intact; otherwise every key is
// read on its own. missing lists the keys that were not found.
func (s *Store) GetBulk(ctx context.Context, keys []string) (out map[string]boss.Value, missing []string, err error) {
	out = make(map[string]boss.Value, len(keys))
	if len(keys) == 0 {
		return out, nil, nil
	}

	bk := s.bulkKey(sortedSet(keys))
	if raw, ok, err := s.provider.Get(ctx, bk); err == nil && ok {
		members, reason := s.decodeBulk(raw)
		if reason == "" {
			for _, k := range keys {
				if _, ok := members[k]; !ok {
					reason = "incomplete"
					break
				}
			}
		}
		if reason == "" {
			for _, k := range keys {
				out[k] = members[k]
			}
			return out, nil, nil
		}
		s.log.Debug("bulk rejected", boss.Fields{"key": bk, "reason": reason})
		s.hooks.BulkRejected(s.ns, len(keys), reason)
		_ = s.provider.Del(ctx, bk)
	}

	// fallback: singles
	for _, k := range keys {
		v, ok, err := s.Get(ctx, k)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			out[k] = v
		} else {
			missing = append(missing, k)
		}
	}
	return out, missing, nil
}

// DelBulk removes the bulk entry for the key set. Singles are left alone.
func (s *Store) DelBulk(ctx context.Context, keys []string) error {
	return s.provider.Del(ctx, s.bulkKey(sortedSet(keys)))
}

func (s *Store) Close(ctx context.Context) error {
	return s.provider.Close(ctx)
}

func (s *Store) decodeBulk(raw []byte) (map[string]boss.Value, string) {
	e, err := entry.Decode(raw)
	if err != nil || e.Kind != entry.KindBulk || e.Roots%2 != 0 {
		return nil, "corrupt"
	}
	if s.maxEntry > 0 && len(e.Payload) > s.maxEntry {
		return nil, "decode"
	}
	members := make(map[string]boss.Value, e.Roots/2)
	dec := boss.NewDecoder(bytes.NewReader(e.Payload), s.bossOpts)
	for i := 0; i < e.Roots/2; i++ {
		k, err := dec.Get()
		if err != nil {
			return nil, "decode"
		}
		key, ok := k.(boss.Text)
		if !ok {
			return nil, "decode"
		}
		v, err := dec.Get()
		if err != nil {
			return nil, "decode"
		}
		members[string(key)] = v
	}
	if !dec.AtEnd() {
		return nil, "decode"
	}
	return members, ""
}

func (s *Store) set(ctx context.Context, k string, raw []byte, isBulk bool, n int, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	ok, err := s.provider.Set(ctx, k, raw, s.cost(k, raw, isBulk, n), ttl)
	if err != nil {
		return fmt.Errorf("store: set %q: %w", k, err)
	}
	if !ok {
		s.log.Debug("set rejected by provider (pressure)", boss.Fields{"key": k, "bulk": isBulk})
		s.hooks.ProviderSetRejected(k, isBulk)
	}
	return nil
}

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func (s *Store) heal(ctx context.Context, k, reason string) {
	_ = s.provider.Del(ctx, k)
	s.log.Debug("self-heal: deleted entry", boss.Fields{"key": k, "reason": reason})
	s.hooks.SelfHeal(k, reason)
}
