package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/boss"
	"github.com/unkn0wn-root/boss/codec"
	"github.com/unkn0wn-root/boss/internal/entry"
	pr "github.com/unkn0wn-root/boss/provider"
	"github.com/unkn0wn-root/boss/provider/ristretto"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type memProvider struct {
	mu     sync.Mutex
	m      map[string]memEntry
	reject bool // Set returns ok=false
	sets   int
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sets++
	if p.reject {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: value, exp: exp}
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, key)
	return nil
}

func (p *memProvider) Close(_ context.Context) error { return nil }

func (p *memProvider) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.m[key]
	return ok
}

func (p *memProvider) put(key string, raw []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[key] = memEntry{v: raw}
}

type recHooks struct {
	NopHooks
	mu       sync.Mutex
	heals    []string
	bulks    []string
	rejected int
}

func (h *recHooks) SelfHeal(_ string, reason string) {
	h.mu.Lock()
	h.heals = append(h.heals, reason)
	h.mu.Unlock()
}

func (h *recHooks) BulkRejected(_ string, _ int, reason string) {
	h.mu.Lock()
	h.bulks = append(h.bulks, reason)
	h.mu.Unlock()
}

func (h *recHooks) ProviderSetRejected(string, bool) {
	h.mu.Lock()
	h.rejected++
	h.mu.Unlock()
}

func newTestStore(t *testing.T, mp pr.Provider, optsOpt func(*Options)) (*Store, *recHooks) {
	t.Helper()
	hooks := &recHooks{}
	opts := Options{Namespace: "test", Provider: mp, Hooks: hooks}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, hooks
}

func doc(name string) *boss.Dict {
	return boss.NewDict(
		boss.Entry{Key: boss.Text("name"), Value: boss.Text(name)},
		boss.Entry{Key: boss.Text("tags"), Value: boss.NewList(boss.Text("shared"), boss.Text("tag"))},
	)
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Options{Namespace: "x"}); err == nil {
		t.Fatalf("expected error without provider")
	}
	if _, err := New(Options{Provider: newMemProvider()}); err == nil {
		t.Fatalf("expected error without namespace")
	}
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	for _, compress := range []bool{false, true} {
		mp := newMemProvider()
		s, _ := newTestStore(t, mp, func(o *Options) { o.Compress = compress })

		if _, ok, err := s.Get(ctx, "u1"); err != nil || ok {
			t.Fatalf("Get on empty store = %v, %v", ok, err)
		}
		if err := s.Put(ctx, "u1", doc("ada"), 0); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if !mp.has("single:test:u1") {
			t.Fatalf("entry not stored under the single key")
		}
		v, ok, err := s.Get(ctx, "u1")
		if err != nil || !ok {
			t.Fatalf("Get = %v, %v", ok, err)
		}
		if !boss.Equal(v, doc("ada")) {
			t.Fatalf("Get = %v", v)
		}
		if err := s.Del(ctx, "u1"); err != nil {
			t.Fatal(err)
		}
		if _, ok, _ := s.Get(ctx, "u1"); ok {
			t.Fatalf("hit after Del")
		}
	}
}

func TestSelfHealCorrupt(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s, hooks := newTestStore(t, mp, nil)

	mp.put("single:test:bad", []byte("not an entry"))
	if _, ok, err := s.Get(ctx, "bad"); ok || err != nil {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if mp.has("single:test:bad") {
		t.Fatalf("corrupt entry was not deleted")
	}

	// valid frame, broken payload: a list announcing two items but holding one
	mp.put("single:test:trunc", entry.Encode(entry.KindSingle, 1, []byte{0x16, 0x08}))
	if _, ok, _ := s.Get(ctx, "trunc"); ok {
		t.Fatalf("hit on a truncated document")
	}
	if mp.has("single:test:trunc") {
		t.Fatalf("undecodable entry was not deleted")
	}
	if strings.Join(hooks.heals, ",") != "corrupt,decode" {
		t.Fatalf("heals = %v", hooks.heals)
	}
}

func TestMaxEntrySize(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s, _ := newTestStore(t, mp, func(o *Options) { o.MaxEntrySize = 16 })

	long := boss.Text(strings.Repeat("x", 64))
	if err := s.Put(ctx, "big", long, 0); !errors.Is(err, codec.ErrPayloadTooLarge) {
		t.Fatalf("Put err = %v", err)
	}
	if err := s.PutBulk(ctx, map[string]boss.Value{"a": long}, 0); !errors.Is(err, codec.ErrPayloadTooLarge) {
		t.Fatalf("PutBulk err = %v", err)
	}

	// an oversized entry written by someone else is dropped on read
	raw, _ := boss.Encode(long)
	mp.put("single:test:big", entry.Encode(entry.KindSingle, 1, raw))
	if _, ok, _ := s.Get(ctx, "big"); ok || mp.has("single:test:big") {
		t.Fatalf("oversized entry survived")
	}
}

func TestProviderRejection(t *testing.T) {
	mp := newMemProvider()
	mp.reject = true
	s, hooks := newTestStore(t, mp, nil)
	if err := s.Put(context.Background(), "k", boss.NewInt(1), 0); err != nil {
		t.Fatalf("rejection is not an error: %v", err)
	}
	if hooks.rejected != 1 {
		t.Fatalf("rejected = %d", hooks.rejected)
	}
}

func TestBulkRoundTrip(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s, _ := newTestStore(t, mp, nil)

	items := map[string]boss.Value{"a": doc("ada"), "b": doc("bob"), "c": boss.NewInt(3)}
	if err := s.PutBulk(ctx, items, time.Minute); err != nil {
		t.Fatalf("PutBulk: %v", err)
	}

	// the key set matches regardless of order and repeats
	got, missing, err := s.GetBulk(ctx, []string{"c", "a", "b", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 0 || len(got) != 3 {
		t.Fatalf("got %v, missing %v", got, missing)
	}
	for k, v := range items {
		if !boss.Equal(got[k], v) {
			t.Fatalf("%s = %v, want %v", k, got[k], v)
		}
	}

	// members share one cache: the "tags" list of b is a back-reference
	a, b := got["a"].(*boss.Dict), got["b"].(*boss.Dict)
	ta, _ := a.Get(boss.Text("tags"))
	tb, _ := b.Get(boss.Text("tags"))
	if ta.(*boss.List) != tb.(*boss.List) {
		t.Fatalf("shared list decoded twice")
	}

	if err := s.DelBulk(ctx, []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	_, missing, _ = s.GetBulk(ctx, []string{"a", "b", "c"})
	if len(missing) != 3 {
		t.Fatalf("missing = %v", missing)
	}
}

func TestBulkFallsBackToSingles(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s, hooks := newTestStore(t, mp, nil)

	if err := s.Put(ctx, "a", boss.Text("single a"), 0); err != nil {
		t.Fatal(err)
	}
	got, missing, err := s.GetBulk(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if !boss.Equal(got["a"], boss.Text("single a")) || len(missing) != 1 || missing[0] != "b" {
		t.Fatalf("got %v, missing %v", got, missing)
	}

	// a corrupt bulk entry is dropped and reported
	bk := s.bulkKey(sortedSet([]string{"a", "b"}))
	mp.put(bk, entry.Encode(entry.KindBulk, 3, []byte{0x08}))
	if _, _, err := s.GetBulk(ctx, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if mp.has(bk) {
		t.Fatalf("corrupt bulk was not deleted")
	}

	// well-formed frame whose members do not cover the request
	raw, _ := boss.EncodeMany(boss.Text("a"), boss.NewInt(1), boss.Text("z"), boss.NewInt(2))
	mp.put(bk, entry.Encode(entry.KindBulk, 4, raw))
	got, _, _ = s.GetBulk(ctx, []string{"a", "b"})
	if !boss.Equal(got["a"], boss.Text("single a")) {
		t.Fatalf("incomplete bulk was used: %v", got)
	}
	if strings.Join(hooks.bulks, ",") != "corrupt,incomplete" {
		t.Fatalf("bulk rejections = %v", hooks.bulks)
	}
}

func TestGetBulkEmpty(t *testing.T) {
	s, _ := newTestStore(t, newMemProvider(), nil)
	got, missing, err := s.GetBulk(context.Background(), nil)
	if err != nil || len(got) != 0 || missing != nil {
		t.Fatalf("got %v, %v, %v", got, missing, err)
	}
}

func TestStoreOnRistretto(t *testing.T) {
	ctx := context.Background()
	cfg := ristretto.DefaultConfig(1 << 10)
	cfg.Synchronous = true
	rp, err := ristretto.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := newTestStore(t, rp, func(o *Options) { o.Compress = true })
	defer s.Close(ctx)

	items := map[string]boss.Value{"x": doc("x"), "y": doc("y")}
	if err := s.PutBulk(ctx, items, 0); err != nil {
		t.Fatal(err)
	}
	got, missing, err := s.GetBulk(ctx, []string{"x", "y"})
	if err != nil || len(missing) != 0 {
		t.Fatalf("GetBulk = %v, %v, %v", got, missing, err)
	}
	if !boss.Equal(got["y"], doc("y")) {
		t.Fatalf("y = %v", got["y"])
	}
}
