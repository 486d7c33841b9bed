package player

import (
	"context"
	"io"
	"testing"

	"github.com/feltworks/rangesync/internal/adapters/cache"
	"github.com/feltworks/rangesync/internal/application/ports"
	appsync "github.com/feltworks/rangesync/internal/application/sync"
	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/outbox"
	"github.com/feltworks/rangesync/internal/domain/player"
	"github.com/feltworks/rangesync/internal/domain/ranges"
	"github.com/feltworks/rangesync/internal/infrastructure/logging"
	"github.com/feltworks/rangesync/internal/infrastructure/testutil"
)

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Format: logging.FormatText, Output: io.Discard})
}

type memPlayerStore struct {
	players map[string]*player.Player
}

func (m *memPlayerStore) Get(_ context.Context, id string) (*player.Player, error) {
	p, ok := m.players[id]
	if !ok {
		return nil, domainErrors.NewError(domainErrors.CodeNotFound, "player "+id, domainErrors.ErrPlayerNotFound)
	}
	return p.Clone(), nil
}

func (m *memPlayerStore) GetAll(_ context.Context) ([]*player.Player, error) {
	out := make([]*player.Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *memPlayerStore) Put(_ context.Context, p *player.Player) error {
	m.players[p.ID] = p.Clone()
	return nil
}

func (m *memPlayerStore) Delete(_ context.Context, id string) error {
	delete(m.players, id)
	return nil
}

type memRangeSetStore struct {
	sets map[string]ranges.RangeSet
}

func (m *memRangeSetStore) Get(_ context.Context, playerID string) (ranges.RangeSet, error) {
	return m.sets[playerID].Clone(), nil
}

func (m *memRangeSetStore) Put(_ context.Context, playerID string, set ranges.RangeSet) error {
	m.sets[playerID] = set.Normalized()
	return nil
}

func (m *memRangeSetStore) Delete(_ context.Context, playerID string) error {
	delete(m.sets, playerID)
	return nil
}

type memOutboxStore struct {
	items []*outbox.PendingItem
}

func (m *memOutboxStore) Append(_ context.Context, item *outbox.PendingItem) error {
	m.items = append(m.items, item)
	return nil
}

func (m *memOutboxStore) ReplacePayload(_ context.Context, item *outbox.PendingItem) error {
	for i, it := range m.items {
		if it.ID == item.ID {
			m.items[i] = item
			return nil
		}
	}
	return domainErrors.NewError(domainErrors.CodeNotFound, "outbox item "+item.ID, nil)
}

func (m *memOutboxStore) List(_ context.Context) ([]*outbox.PendingItem, error) {
	return append([]*outbox.PendingItem(nil), m.items...), nil
}

func (m *memOutboxStore) LatestForTarget(_ context.Context, c outbox.Collection, targetID string) (*outbox.PendingItem, error) {
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].Collection == c && m.items[i].TargetID == targetID {
			return m.items[i], nil
		}
	}
	return nil, nil
}

func (m *memOutboxStore) Remove(_ context.Context, id string) error {
	for i, it := range m.items {
		if it.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memOutboxStore) RemoveByTarget(_ context.Context, c outbox.Collection, targetID string) error {
	kept := m.items[:0]
	for _, it := range m.items {
		if it.Collection != c || it.TargetID != targetID {
			kept = append(kept, it)
		}
	}
	m.items = kept
	return nil
}

func (m *memOutboxStore) PendingTargets(_ context.Context) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, it := range m.items {
		out[string(it.Collection)+"/"+it.TargetID] = true
	}
	return out, nil
}

// count returns queued items for one collection.
func (m *memOutboxStore) count(c outbox.Collection) int {
	n := 0
	for _, it := range m.items {
		if it.Collection == c {
			n++
		}
	}
	return n
}

type staticIdentity struct {
	user     ports.User
	signedIn bool
}

func (s staticIdentity) CurrentUser() (ports.User, bool) {
	return s.user, s.signedIn
}

type fixture struct {
	store  *memPlayerStore
	sets   *memRangeSetStore
	queue  *memOutboxStore
	cache  *cache.PlayerCache
	svc    *Service
	logger *logging.Logger
}

func newFixture() *fixture {
	f := &fixture{
		store: &memPlayerStore{players: make(map[string]*player.Player)},
		sets:  &memRangeSetStore{sets: make(map[string]ranges.RangeSet)},
		queue: &memOutboxStore{},
		cache: cache.NewPlayerCache(),
	}
	f.logger = quietLogger()
	ob := appsync.NewOutbox(f.queue, f.logger)
	f.svc = NewService(f.store, f.sets, ob, f.cache, staticIdentity{user: ports.User{ID: "user-1"}, signedIn: true}, f.logger)
	return f
}

func TestCreate_QueuesRemoteCreate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, err := f.svc.Create(ctx, "Villain")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.CreatedBy != "user-1" {
		t.Errorf("expected CreatedBy user-1, got %q", p.CreatedBy)
	}
	if len(f.queue.items) != 1 || f.queue.items[0].Operation != outbox.OperationCreate {
		t.Fatalf("expected one queued create, got %+v", f.queue.items)
	}
	if f.cache.Get(p.ID) == nil {
		t.Error("expected created player in cache")
	}
}

func TestCreate_RejectsEmptyName(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Create(context.Background(), ""); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestGet_ReadsThroughCache(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, err := f.svc.Create(ctx, "Villain")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f.cache.Reset()
	got, err := f.svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Villain" {
		t.Errorf("unexpected player: %+v", got)
	}
	if f.cache.Get(p.ID) == nil {
		t.Error("expected miss to populate cache")
	}

	// A second Get must not hit the store.
	delete(f.store.players, p.ID)
	if _, err := f.svc.Get(ctx, p.ID); err != nil {
		t.Errorf("expected cache hit, got %v", err)
	}
}

func TestSetRange_BumpsVersionAndQueuesBothUpdates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, _ := f.svc.Create(ctx, "Villain")
	key := ranges.Key(ranges.PositionEarly, ranges.ActionOpenRaise)
	if err := f.svc.SetRange(ctx, p.ID, key, testutil.ManualRange("AA", "KK")); err != nil {
		t.Fatalf("SetRange: %v", err)
	}

	stored, _ := f.store.Get(ctx, p.ID)
	if stored.RangeVersion != 1 {
		t.Errorf("expected range version 1, got %d", stored.RangeVersion)
	}
	set, _ := f.sets.Get(ctx, p.ID)
	if len(set.Get(key)) != 2 {
		t.Errorf("range not persisted: %v", set)
	}
	if f.queue.count(outbox.CollectionRanges) != 1 {
		t.Errorf("expected queued range update, got %d", f.queue.count(outbox.CollectionRanges))
	}
	if f.queue.count(outbox.CollectionPlayers) == 0 {
		t.Error("expected queued player update")
	}
}

func TestSetRange_RejectsMalformedKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, _ := f.svc.Create(ctx, "Villain")
	if err := f.svc.SetRange(ctx, p.ID, "nounderscore", testutil.ManualRange("AA")); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSaveMetadata_DoesNotBumpRangeVersion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, _ := f.svc.Create(ctx, "Villain")
	p.Color = "red"
	if err := f.svc.SaveMetadata(ctx, p); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}

	stored, _ := f.store.Get(ctx, p.ID)
	if stored.RangeVersion != 0 {
		t.Errorf("metadata edit bumped range version to %d", stored.RangeVersion)
	}
	if stored.Color != "red" {
		t.Errorf("color not persisted: %+v", stored)
	}
}

func TestApplyRangeImport_SingleVersionBump(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, _ := f.svc.Create(ctx, "Villain")
	imported := ranges.RangeSet{
		"early_open-raise": testutil.ManualRange("AA"),
		"blinds_defend":    testutil.ManualRange("KQs", "QJs"),
	}
	if err := f.svc.ApplyRangeImport(ctx, p.ID, imported); err != nil {
		t.Fatalf("ApplyRangeImport: %v", err)
	}

	stored, _ := f.store.Get(ctx, p.ID)
	if stored.RangeVersion != 1 {
		t.Errorf("expected one version bump for the whole import, got %d", stored.RangeVersion)
	}
	set, _ := f.sets.Get(ctx, p.ID)
	if len(set) != 2 {
		t.Errorf("import not persisted: %v", set)
	}
}

func TestApplyRangeImport_EmptyIsNoop(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, _ := f.svc.Create(ctx, "Villain")
	before := len(f.queue.items)
	if err := f.svc.ApplyRangeImport(ctx, p.ID, nil); err != nil {
		t.Fatalf("ApplyRangeImport: %v", err)
	}
	if len(f.queue.items) != before {
		t.Error("empty import must not queue anything")
	}
}

func TestDelete_CascadesAndInvalidatesCache(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, _ := f.svc.Create(ctx, "Villain")
	if err := f.svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if f.cache.Get(p.ID) != nil {
		t.Error("expected cache invalidation")
	}
	if f.queue.count(outbox.CollectionRanges) == 0 {
		t.Error("expected queued range delete")
	}
	deletes := 0
	for _, it := range f.queue.items {
		if it.Operation == outbox.OperationDelete {
			deletes++
		}
	}
	if deletes != 2 {
		t.Errorf("expected range and player deletes queued, got %d", deletes)
	}
}

func TestAddNote_BoundedList(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, _ := f.svc.Create(ctx, "Villain")
	for i := 0; i < player.MaxNoteEntries+5; i++ {
		if err := f.svc.AddNote(ctx, p.ID, "note"); err != nil {
			t.Fatalf("AddNote: %v", err)
		}
	}

	stored, _ := f.store.Get(ctx, p.ID)
	if len(stored.NoteEntries) != player.MaxNoteEntries {
		t.Errorf("expected bounded notes list, got %d", len(stored.NoteEntries))
	}
}
