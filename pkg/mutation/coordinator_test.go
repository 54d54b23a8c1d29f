package mutation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/luyandamncube/openclaw-mission-control/pkg/cache"
)

func agentsKey() cache.QueryKey {
	return cache.QueryKey{
		Resource: "/api/v1/agents",
		Params:   url.Values{"limit": []string{"50"}, "offset": []string{"0"}},
	}
}

func pageEntry(data string) *cache.Entry {
	return &cache.Entry{
		StatusCode: 200,
		Data:       []byte(data),
		ETag:       `"v1"`,
		Expires:    time.Now().Add(5 * time.Minute),
		CachedAt:   time.Now(),
	}
}

func newCoordinator(t *testing.T, manager Cache, mutate ...func(*Config[testItem, string])) *Coordinator[testItem, string] {
	t.Helper()
	cfg := Config[testItem, string]{
		Cache:    manager,
		Key:      agentsKey(),
		ItemID:   testItemID,
		TargetID: func(id string) string { return id },
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	coord, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return coord
}

func TestNew_Validation(t *testing.T) {
	manager := cache.NewManager(cache.NewMemoryBackend())
	id := func(s string) string { return s }

	tests := []struct {
		name string
		cfg  Config[testItem, string]
	}{
		{name: "missing cache", cfg: Config[testItem, string]{ItemID: testItemID, TargetID: id}},
		{name: "missing item id", cfg: Config[testItem, string]{Cache: manager, TargetID: id}},
		{name: "missing target id", cfg: Config[testItem, string]{Cache: manager, ItemID: testItemID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("New should fail")
			}
		})
	}
}

func TestCoordinator_Keys_DefaultsToListKey(t *testing.T) {
	coord := newCoordinator(t, cache.NewManager(cache.NewMemoryBackend()))
	keys := coord.Keys()
	if len(keys) != 1 || !keys[0].Equal(agentsKey()) {
		t.Errorf("Keys() = %v, want [%s]", keys, agentsKey())
	}
}

func TestCoordinator_Begin_RemovesItem(t *testing.T) {
	manager := cache.NewManager(cache.NewMemoryBackend())
	ctx := context.Background()
	original := `{"items":[{"id":"a"},{"id":"b"}],"total":2}`
	_ = manager.Write(ctx, agentsKey(), pageEntry(original))

	coord := newCoordinator(t, manager)
	mc, err := coord.Begin(ctx, "a")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if !mc.Optimistic {
		t.Error("Optimistic = false, want true")
	}
	if mc.Previous == nil || string(mc.Previous.Data) != original {
		t.Fatalf("Previous = %v, want snapshot of %s", mc.Previous, original)
	}

	got, _ := manager.Read(ctx, agentsKey())
	if string(got.Data) != `{"items":[{"id":"b"}],"total":1}` {
		t.Errorf("cached = %s", got.Data)
	}
	if got.ETag != `"v1"` {
		t.Errorf("ETag = %s, metadata should be kept", got.ETag)
	}
}

func TestCoordinator_Begin_LeavesCacheAlone(t *testing.T) {
	tests := []struct {
		name  string
		entry *cache.Entry
	}{
		{name: "nothing cached"},
		{name: "unknown id", entry: pageEntry(`{"items":[{"id":"b"}],"total":1}`)},
		{name: "not a page", entry: pageEntry(`{"agents":[{"id":"a"}]}`)},
		{name: "error status", entry: &cache.Entry{
			StatusCode: 404,
			Data:       []byte(`{"items":[{"id":"a"}],"total":1}`),
			Expires:    time.Now().Add(time.Minute),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := cache.NewManager(cache.NewMemoryBackend())
			ctx := context.Background()
			if tt.entry != nil {
				_ = manager.Write(ctx, agentsKey(), tt.entry)
			}

			mc, err := newCoordinator(t, manager).Begin(ctx, "a")
			if err != nil {
				t.Fatalf("Begin failed: %v", err)
			}
			if mc.Optimistic {
				t.Error("Optimistic = true, want false")
			}

			got, err := manager.Read(ctx, agentsKey())
			if tt.entry == nil {
				if !errors.Is(err, cache.ErrCacheMiss) {
					t.Errorf("Read = %v, want ErrCacheMiss", err)
				}
				if mc.Previous != nil {
					t.Errorf("Previous = %v, want nil", mc.Previous)
				}
				return
			}
			if string(got.Data) != string(tt.entry.Data) {
				t.Errorf("cached = %s, want %s", got.Data, tt.entry.Data)
			}
		})
	}
}

func TestCoordinator_Begin_CancelsInFlightFetch(t *testing.T) {
	manager := cache.NewManager(cache.NewMemoryBackend())
	ctx := context.Background()
	_ = manager.Write(ctx, agentsKey(), pageEntry(`{"items":[{"id":"a"},{"id":"b"}],"total":2}`))
	_ = manager.Invalidate(ctx, agentsKey())

	started := make(chan struct{})
	result := make(chan *cache.Entry, 1)
	go func() {
		entry, _ := manager.Fetch(ctx, agentsKey(), func(ctx context.Context, _ *cache.Entry) (*cache.Entry, error) {
			close(started)
			<-ctx.Done()
			// A late response that still contains the deleted item.
			return pageEntry(`{"items":[{"id":"a"},{"id":"b"}],"total":2}`), nil
		})
		result <- entry
	}()
	<-started

	if _, err := newCoordinator(t, manager).Begin(ctx, "a"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	if manager.InFlight(agentsKey()) {
		t.Error("fetch still in flight after Begin")
	}
	<-result

	got, _ := manager.Read(ctx, agentsKey())
	if string(got.Data) != `{"items":[{"id":"b"}],"total":1}` {
		t.Errorf("late fetch overwrote optimistic state: %s", got.Data)
	}
}

func TestCoordinator_Rollback_RestoresSnapshot(t *testing.T) {
	manager := cache.NewManager(cache.NewMemoryBackend())
	ctx := context.Background()
	original := pageEntry(`{"items":[{"id":"a","name":"x"},{"id":"b"}],"total":2,"limit":50}`)
	_ = manager.Write(ctx, agentsKey(), original)

	coord := newCoordinator(t, manager)
	mc, err := coord.Begin(ctx, "a")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := coord.Rollback(ctx, mc); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	got, _ := manager.Read(ctx, agentsKey())
	if string(got.Data) != string(original.Data) {
		t.Errorf("Data = %s, want %s", got.Data, original.Data)
	}
	if got.ETag != original.ETag || got.StatusCode != original.StatusCode {
		t.Errorf("metadata not restored: %+v", got)
	}

	// A second rollback must not clobber later writes.
	_ = manager.Write(ctx, agentsKey(), pageEntry(`{"items":[],"total":0}`))
	if err := coord.Rollback(ctx, mc); err != nil {
		t.Fatalf("second Rollback failed: %v", err)
	}
	got, _ = manager.Read(ctx, agentsKey())
	if string(got.Data) != `{"items":[],"total":0}` {
		t.Errorf("second rollback rewrote the cache: %s", got.Data)
	}
}

func TestCoordinator_Rollback_NothingCached(t *testing.T) {
	manager := cache.NewManager(cache.NewMemoryBackend())
	coord := newCoordinator(t, manager)

	if err := coord.Rollback(context.Background(), &Context{}); err != nil {
		t.Errorf("Rollback failed: %v", err)
	}
	if err := coord.Rollback(context.Background(), nil); err != nil {
		t.Errorf("Rollback(nil) failed: %v", err)
	}
	if _, err := manager.Read(context.Background(), agentsKey()); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Read = %v, want ErrCacheMiss", err)
	}
}

func TestCoordinator_Settle_InvalidatesEachKeyOnce(t *testing.T) {
	recorder := &recordingCache{Cache: cache.NewManager(cache.NewMemoryBackend())}
	boards := cache.QueryKey{Resource: "/api/v1/boards"}

	coord := newCoordinator(t, recorder, func(cfg *Config[testItem, string]) {
		cfg.InvalidateKeys = []cache.QueryKey{agentsKey(), boards}
	})
	if err := coord.Settle(context.Background()); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	if len(recorder.invalidated) != 2 {
		t.Fatalf("invalidated = %v, want 2 keys", recorder.invalidated)
	}
	if recorder.invalidated[0] != agentsKey().String() || recorder.invalidated[1] != boards.String() {
		t.Errorf("invalidated = %v", recorder.invalidated)
	}
}

func TestCoordinator_Settle_JoinsErrors(t *testing.T) {
	wantErr := errors.New("backend down")
	recorder := &recordingCache{
		Cache:         cache.NewManager(cache.NewMemoryBackend()),
		invalidateErr: wantErr,
	}
	coord := newCoordinator(t, recorder, func(cfg *Config[testItem, string]) {
		cfg.InvalidateKeys = []cache.QueryKey{agentsKey(), {Resource: "/api/v1/boards"}}
	})

	err := coord.Settle(context.Background())
	if !errors.Is(err, wantErr) {
		t.Errorf("Settle error = %v, want %v", err, wantErr)
	}
	if len(recorder.invalidated) != 2 {
		t.Errorf("every key should be attempted, got %v", recorder.invalidated)
	}
}

func TestCoordinator_Run(t *testing.T) {
	original := `{"items":[{"id":"a"},{"id":"b"}],"total":2}`
	sendErr := errors.New("server said no")

	tests := []struct {
		name        string
		mutateErr   error
		wantData    string
		wantSuccess bool
	}{
		{
			name:        "success keeps optimistic removal",
			wantData:    `{"items":[{"id":"b"}],"total":1}`,
			wantSuccess: true,
		},
		{
			name:      "failure rolls back",
			mutateErr: sendErr,
			wantData:  original,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := cache.NewManager(cache.NewMemoryBackend())
			recorder := &recordingCache{Cache: manager}
			ctx := context.Background()
			_ = manager.Write(ctx, agentsKey(), pageEntry(original))

			succeeded := 0
			coord := newCoordinator(t, recorder, func(cfg *Config[testItem, string]) {
				cfg.OnSuccess = func() { succeeded++ }
			})

			var seenDuringSend string
			err := coord.Run(ctx, "a", func(ctx context.Context, id string) error {
				entry, _ := manager.Read(ctx, agentsKey())
				seenDuringSend = string(entry.Data)
				return tt.mutateErr
			})
			if !errors.Is(err, tt.mutateErr) {
				t.Errorf("Run error = %v, want %v", err, tt.mutateErr)
			}

			if seenDuringSend != `{"items":[{"id":"b"}],"total":1}` {
				t.Errorf("cache during send = %s, want optimistic state", seenDuringSend)
			}

			got, _ := manager.Read(ctx, agentsKey())
			if string(got.Data) != tt.wantData {
				t.Errorf("Data = %s, want %s", got.Data, tt.wantData)
			}
			if !got.Stale {
				t.Error("entry should be stale after settle")
			}
			if (succeeded == 1) != tt.wantSuccess || succeeded > 1 {
				t.Errorf("OnSuccess ran %d times", succeeded)
			}
			if len(recorder.invalidated) != 1 {
				t.Errorf("invalidated %d times, want 1", len(recorder.invalidated))
			}
		})
	}
}

func TestCoordinator_Run_BeginFailureSkipsSend(t *testing.T) {
	recorder := &recordingCache{
		Cache:     cache.NewManager(cache.NewMemoryBackend()),
		cancelErr: context.Canceled,
	}
	coord := newCoordinator(t, recorder)

	sent := false
	err := coord.Run(context.Background(), "a", func(context.Context, string) error {
		sent = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if sent {
		t.Error("request sent although Begin failed")
	}
	if len(recorder.invalidated) != 1 {
		t.Errorf("settle should still run once, invalidated %v", recorder.invalidated)
	}
}

func TestCoordinator_Run_UnreadableEntryStillSends(t *testing.T) {
	var buf bytes.Buffer
	saved := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = saved })

	recorder := &recordingCache{Cache: cache.NewManager(unreadableBackend{cache.NewMemoryBackend()})}
	coord := newCoordinator(t, recorder)

	mc, err := coord.Begin(context.Background(), "a")
	if err != nil {
		t.Fatalf("Begin error = %v, want nil", err)
	}
	if mc.Optimistic || mc.Previous != nil {
		t.Errorf("Begin context = %+v, want nothing to roll back", mc)
	}

	sent := false
	err = coord.Run(context.Background(), "a", func(context.Context, string) error {
		sent = true
		return nil
	})
	if err != nil {
		t.Errorf("Run error = %v, want nil", err)
	}
	if !sent {
		t.Error("delete was not sent")
	}
	if len(recorder.invalidated) != 1 {
		t.Errorf("invalidated %v, want the list key once", recorder.invalidated)
	}
	if !strings.Contains(buf.String(), `"component":"mutation"`) {
		t.Errorf("log lines missing component field: %s", buf.String())
	}
}

// unreadableBackend fails every Update the way RedisBackend reports an entry
// it cannot decode.
type unreadableBackend struct {
	cache.Backend
}

func (unreadableBackend) Update(context.Context, cache.QueryKey, cache.UpdateFunc) (*cache.Entry, error) {
	return nil, fmt.Errorf("redis update: %w: bad json", cache.ErrInvalidEntry)
}

func TestCoordinator_Run_InvalidateFailureDoesNotFailMutation(t *testing.T) {
	recorder := &recordingCache{
		Cache:         cache.NewManager(cache.NewMemoryBackend()),
		invalidateErr: errors.New("backend down"),
	}
	coord := newCoordinator(t, recorder)

	if err := coord.Run(context.Background(), "a", func(context.Context, string) error { return nil }); err != nil {
		t.Errorf("Run error = %v, want nil", err)
	}
}

// recordingCache wraps a Cache and records invalidations.
type recordingCache struct {
	Cache

	cancelErr     error
	invalidateErr error
	invalidated   []string
}

func (r *recordingCache) Cancel(ctx context.Context, key cache.QueryKey) error {
	if r.cancelErr != nil {
		return r.cancelErr
	}
	return r.Cache.Cancel(ctx, key)
}

func (r *recordingCache) Invalidate(ctx context.Context, key cache.QueryKey) error {
	r.invalidated = append(r.invalidated, key.String())
	if r.invalidateErr != nil {
		return r.invalidateErr
	}
	return r.Cache.Invalidate(ctx, key)
}
