package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/feltworks/rangesync/internal/application/ports"
	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/player"
	"github.com/feltworks/rangesync/internal/domain/ranges"
	"github.com/feltworks/rangesync/internal/infrastructure/testutil"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", Timeout: 2 * time.Second, MaxRetries: 2}), srv
}

func TestPlayerAdapter_RoundTrip(t *testing.T) {
	stored := make(map[string]*player.Player)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/u1/players", func(w http.ResponseWriter, r *http.Request) {
		var p player.Player
		_ = json.NewDecoder(r.Body).Decode(&p)
		stored[p.ID] = &p
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /users/u1/players/{id}", func(w http.ResponseWriter, r *http.Request) {
		p, ok := stored[r.PathValue("id")]
		if !ok {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(p)
	})
	mux.HandleFunc("GET /users/u1/players", func(w http.ResponseWriter, _ *http.Request) {
		out := make([]*player.Player, 0, len(stored))
		for _, p := range stored {
			out = append(out, p)
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	client, _ := testClient(t, mux)
	adapter := NewPlayerAdapter(client)
	ctx := context.Background()

	p := player.New("p1", "Villain", "u1")
	if err := adapter.Create(ctx, "u1", p); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := adapter.GetByID(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Villain" {
		t.Errorf("unexpected player: %+v", got)
	}
	list, err := adapter.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 player, got %d", len(list))
	}
}

func TestClient_NotFoundMapsToDomainError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"no such player"}`, http.StatusNotFound)
	}))
	adapter := NewPlayerAdapter(client)

	_, err := adapter.GetByID(context.Background(), "u1", "gone")
	if !domainErrors.IsNotFound(err) {
		t.Errorf("expected not-found classification, got %v", err)
	}
	if !domainErrors.Is(err, domainErrors.ErrRemoteNotFound) {
		t.Errorf("expected ErrRemoteNotFound in chain, got %v", err)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(player.New("p1", "Villain", "u1"))
	}))
	adapter := NewPlayerAdapter(client)

	got, err := adapter.GetByID(context.Background(), "u1", "p1")
	if err != nil {
		t.Fatalf("expected retry to recover: %v", err)
	}
	if got.ID != "p1" {
		t.Errorf("unexpected player: %+v", got)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestClient_SendsAuthHeader(t *testing.T) {
	var gotAuth string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]*player.Player{})
	}))

	if _, err := NewPlayerAdapter(client).List(context.Background(), "u1"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
}

func TestRangeAdapter_GetReturnsVersion(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(rangeDocument{
			Ranges:       ranges.RangeSet{"early_open-raise": testutil.ManualRange("AA")},
			RangeVersion: 7,
		})
	}))
	adapter := NewRangeAdapter(client)

	set, version, err := adapter.Get(context.Background(), "u1", "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if version != 7 {
		t.Errorf("expected version 7, got %d", version)
	}
	if set.Get("early_open-raise").Get("AA") != ranges.StateManualSelected {
		t.Error("range content missing")
	}
}

func TestProbe_CachesWithinTTL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	probe := NewProbe(srv.URL, 5*time.Second)
	now := time.Now()
	probe.now = func() time.Time { return now }

	ctx := context.Background()
	if !probe.Online(ctx) {
		t.Fatal("expected online")
	}
	if !probe.Online(ctx) {
		t.Fatal("expected cached online")
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 probe request, got %d", hits.Load())
	}

	now = now.Add(6 * time.Second)
	probe.Online(ctx)
	if hits.Load() != 2 {
		t.Errorf("expected re-probe after TTL, got %d requests", hits.Load())
	}
}

func TestProbe_UnreachableIsOffline(t *testing.T) {
	probe := NewProbe("http://127.0.0.1:1", time.Second)
	if probe.Online(context.Background()) {
		t.Error("expected offline for unreachable endpoint")
	}
}

func TestFixedWindowLimiter(t *testing.T) {
	limiter := NewFixedWindowLimiter(time.Minute, map[ports.RateLimitAction]int{
		ports.ActionLinkCreate: 2,
	})
	now := time.Now()
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	if err := limiter.CheckRateLimit(ctx, "u1", ports.ActionLinkCreate); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := limiter.CheckRateLimit(ctx, "u1", ports.ActionLinkCreate); err != nil {
		t.Fatalf("second call: %v", err)
	}
	err := limiter.CheckRateLimit(ctx, "u1", ports.ActionLinkCreate)
	if !domainErrors.Is(err, domainErrors.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}

	// Other users and unlimited actions are unaffected.
	if err := limiter.CheckRateLimit(ctx, "u2", ports.ActionLinkCreate); err != nil {
		t.Errorf("other user limited: %v", err)
	}
	if err := limiter.CheckRateLimit(ctx, "u1", ports.ActionLinkSync); err != nil {
		t.Errorf("unlimited action limited: %v", err)
	}

	// The window resets.
	now = now.Add(2 * time.Minute)
	if err := limiter.CheckRateLimit(ctx, "u1", ports.ActionLinkCreate); err != nil {
		t.Errorf("post-window call limited: %v", err)
	}
}

func TestPollingSnapshotSource(t *testing.T) {
	var count atomic.Int32
	count.Store(1)
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"count": int(count.Load())})
	}))

	source := NewPollingSnapshotSource(client, 10*time.Millisecond)
	ch, cancel, err := source.Subscribe(context.Background(), "u1", ports.BadgePendingLinks)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	first := <-ch
	if first.Count != 1 {
		t.Errorf("expected initial count 1, got %d", first.Count)
	}

	count.Store(3)
	select {
	case update := <-ch:
		if update.Count != 3 {
			t.Errorf("expected count 3, got %d", update.Count)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update after count change")
	}

	cancel()
	select {
	case _, open := <-ch:
		if open {
			// A buffered update may still be in flight; the next
			// receive must observe the close.
			if _, open := <-ch; open {
				t.Error("channel not closed after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel never closed after cancel")
	}
}
