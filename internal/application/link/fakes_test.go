package link

import (
	"context"
	"io"
	stdsync "sync"

	"github.com/feltworks/rangesync/internal/application/ports"
	playerapp "github.com/feltworks/rangesync/internal/application/player"
	appsync "github.com/feltworks/rangesync/internal/application/sync"
	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/link"
	"github.com/feltworks/rangesync/internal/domain/outbox"
	"github.com/feltworks/rangesync/internal/domain/player"
	"github.com/feltworks/rangesync/internal/domain/ranges"
	"github.com/feltworks/rangesync/internal/infrastructure/logging"
)

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Format: logging.FormatText, Output: io.Discard})
}

// --- shared remote fakes (the "cloud" both test users see) ---

type memLinkRemote struct {
	mu    stdsync.Mutex
	links map[string]*link.PlayerLink
}

func (m *memLinkRemote) Create(_ context.Context, l *link.PlayerLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.links[l.ID] = &cp
	return nil
}

func (m *memLinkRemote) Update(_ context.Context, l *link.PlayerLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[l.ID]; !ok {
		return domainErrors.NewError(domainErrors.CodeNotFound, "link not found", domainErrors.ErrLinkNotFound)
	}
	cp := *l
	m.links[l.ID] = &cp
	return nil
}

func (m *memLinkRemote) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, id)
	return nil
}

func (m *memLinkRemote) GetByID(_ context.Context, id string) (*link.PlayerLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[id]
	if !ok {
		return nil, domainErrors.NewError(domainErrors.CodeNotFound, "link not found", domainErrors.ErrLinkNotFound)
	}
	cp := *l
	return &cp, nil
}

func (m *memLinkRemote) ListForUser(_ context.Context, userID string) ([]*link.PlayerLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*link.PlayerLink, 0)
	for _, l := range m.links {
		if l.Involves(userID) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memPlayerRemote struct {
	mu      stdsync.Mutex
	players map[string]map[string]*player.Player
	calls   int
}

func (m *memPlayerRemote) put(userID string, p *player.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.players[userID] == nil {
		m.players[userID] = make(map[string]*player.Player)
	}
	m.players[userID][p.ID] = p.Clone()
}

func (m *memPlayerRemote) Create(_ context.Context, userID string, p *player.Player) error {
	m.put(userID, p)
	return nil
}

func (m *memPlayerRemote) Update(_ context.Context, userID string, p *player.Player) error {
	m.put(userID, p)
	return nil
}

func (m *memPlayerRemote) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players[userID], id)
	return nil
}

func (m *memPlayerRemote) GetByID(_ context.Context, userID, id string) (*player.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	p, ok := m.players[userID][id]
	if !ok {
		return nil, domainErrors.NewError(domainErrors.CodeNotFound, "remote player not found", domainErrors.ErrRemoteNotFound)
	}
	return p.Clone(), nil
}

func (m *memPlayerRemote) List(_ context.Context, userID string) ([]*player.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*player.Player, 0)
	for _, p := range m.players[userID] {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *memPlayerRemote) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type memRangeRemote struct {
	mu       stdsync.Mutex
	sets     map[string]ranges.RangeSet
	versions map[string]int64
}

func rangeKey(userID, playerID string) string { return userID + "/" + playerID }

func (m *memRangeRemote) seed(userID, playerID string, set ranges.RangeSet, version int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[rangeKey(userID, playerID)] = set.Clone()
	m.versions[rangeKey(userID, playerID)] = version
}

func (m *memRangeRemote) Put(_ context.Context, userID, playerID string, set ranges.RangeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[rangeKey(userID, playerID)] = set.Clone()
	return nil
}

func (m *memRangeRemote) Get(_ context.Context, userID, playerID string) (ranges.RangeSet, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[rangeKey(userID, playerID)]
	if !ok {
		return nil, 0, domainErrors.NewError(domainErrors.CodeNotFound, "remote range set not found", domainErrors.ErrRemoteNotFound)
	}
	return set.Clone(), m.versions[rangeKey(userID, playerID)], nil
}

func (m *memRangeRemote) Delete(_ context.Context, userID, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, rangeKey(userID, playerID))
	return nil
}

type memShareRemote struct {
	mu     stdsync.Mutex
	shares map[string]*link.RangeShare
}

func (m *memShareRemote) Upsert(_ context.Context, s *link.RangeShare) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.shares {
		if existing.ShareKey() == s.ShareKey() {
			delete(m.shares, id)
		}
	}
	cp := *s
	m.shares[s.ID] = &cp
	return nil
}

func (m *memShareRemote) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.shares, id)
	return nil
}

func (m *memShareRemote) ListForRecipient(_ context.Context, userID string) ([]*link.RangeShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*link.RangeShare, 0)
	for _, s := range m.shares {
		if s.ToUserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- per-device local fakes ---

type memPlayerStore struct {
	mu      stdsync.Mutex
	players map[string]*player.Player
}

func (m *memPlayerStore) Get(_ context.Context, id string) (*player.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, domainErrors.NewError(domainErrors.CodeNotFound, "player not found", domainErrors.ErrPlayerNotFound)
	}
	return p.Clone(), nil
}

func (m *memPlayerStore) GetAll(_ context.Context) ([]*player.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*player.Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *memPlayerStore) Put(_ context.Context, p *player.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[p.ID] = p.Clone()
	return nil
}

func (m *memPlayerStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, id)
	return nil
}

type memRangeSetStore struct {
	mu   stdsync.Mutex
	sets map[string]ranges.RangeSet
}

func (m *memRangeSetStore) Get(_ context.Context, playerID string) (ranges.RangeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[playerID]
	if !ok {
		return ranges.RangeSet{}, nil
	}
	return set.Clone(), nil
}

func (m *memRangeSetStore) Put(_ context.Context, playerID string, set ranges.RangeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[playerID] = set.Normalized()
	return nil
}

func (m *memRangeSetStore) Delete(_ context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, playerID)
	return nil
}

type memOutboxStore struct {
	mu    stdsync.Mutex
	seq   int64
	items []*outbox.PendingItem
}

func (m *memOutboxStore) Append(_ context.Context, item *outbox.PendingItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	item.Seq = m.seq
	m.items = append(m.items, item)
	return nil
}

func (m *memOutboxStore) ReplacePayload(_ context.Context, item *outbox.PendingItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.ID == item.ID {
			it.Data = item.Data
			it.Timestamp = item.Timestamp
			return nil
		}
	}
	return domainErrors.NewError(domainErrors.CodeNotFound, "outbox item not found", nil)
}

func (m *memOutboxStore) List(_ context.Context) ([]*outbox.PendingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*outbox.PendingItem, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *memOutboxStore) LatestForTarget(_ context.Context, c outbox.Collection, targetID string) (*outbox.PendingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].Collection == c && m.items[i].TargetID == targetID {
			return m.items[i], nil
		}
	}
	return nil, nil
}

func (m *memOutboxStore) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items {
		if it.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memOutboxStore) RemoveByTarget(_ context.Context, c outbox.Collection, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[:0]
	for _, it := range m.items {
		if it.Collection == c && it.TargetID == targetID {
			continue
		}
		kept = append(kept, it)
	}
	m.items = kept
	return nil
}

func (m *memOutboxStore) PendingTargets(_ context.Context) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.items))
	for _, it := range m.items {
		out[string(it.Collection)+"/"+it.TargetID] = true
	}
	return out, nil
}

func (m *memOutboxStore) entries() []*outbox.PendingItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*outbox.PendingItem, len(m.items))
	copy(out, m.items)
	return out
}

// --- identity, friends, limiter, check cache ---

type staticIdentity struct {
	user     ports.User
	signedIn bool
}

func (s staticIdentity) CurrentUser() (ports.User, bool) { return s.user, s.signedIn }

type fakeFriends struct {
	mu    stdsync.Mutex
	pairs map[string]bool
}

func (f *fakeFriends) befriend(a, b string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairs[a+"|"+b] = true
	f.pairs[b+"|"+a] = true
}

func (f *fakeFriends) IsFriend(_ context.Context, a, b string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pairs[a+"|"+b], nil
}

type fakeLimiter struct {
	mu   stdsync.Mutex
	deny map[ports.RateLimitAction]error
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, _ string, action ports.RateLimitAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deny[action]
}

type memCheckCache struct {
	mu      stdsync.Mutex
	entries map[string]CheckResult
}

func (m *memCheckCache) Get(linkID string) (CheckResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.entries[linkID]
	return res, ok
}

func (m *memCheckCache) Put(linkID string, res CheckResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[linkID] = res
}

func (m *memCheckCache) Invalidate(linkID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, linkID)
}

func (m *memCheckCache) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]CheckResult)
}

// --- world and device assembly ---

// world is the shared remote state two test users operate against.
type world struct {
	links   *memLinkRemote
	playerR *memPlayerRemote
	rangeR  *memRangeRemote
	shareR  *memShareRemote
	friends *fakeFriends
	limiter *fakeLimiter
}

func newWorld() *world {
	return &world{
		links:   &memLinkRemote{links: make(map[string]*link.PlayerLink)},
		playerR: &memPlayerRemote{players: make(map[string]map[string]*player.Player)},
		rangeR:  &memRangeRemote{sets: make(map[string]ranges.RangeSet), versions: make(map[string]int64)},
		shareR:  &memShareRemote{shares: make(map[string]*link.RangeShare)},
		friends: &fakeFriends{pairs: make(map[string]bool)},
		limiter: &fakeLimiter{deny: make(map[ports.RateLimitAction]error)},
	}
}

// device is one user's local state plus a link service bound to them.
type device struct {
	userID      string
	playerStore *memPlayerStore
	rangeStore  *memRangeSetStore
	outboxStore *memOutboxStore
	outbox      *appsync.Outbox
	players     *playerapp.Service
	checks      *memCheckCache
	svc         *Service
}

func (w *world) device(userID string) *device {
	logger := quietLogger()
	d := &device{
		userID:      userID,
		playerStore: &memPlayerStore{players: make(map[string]*player.Player)},
		rangeStore:  &memRangeSetStore{sets: make(map[string]ranges.RangeSet)},
		outboxStore: &memOutboxStore{},
		checks:      &memCheckCache{entries: make(map[string]CheckResult)},
	}
	identity := staticIdentity{user: ports.User{ID: userID}, signedIn: true}
	d.outbox = appsync.NewOutbox(d.outboxStore, logger)
	d.players = playerapp.NewService(d.playerStore, d.rangeStore, d.outbox, nil, identity, logger)
	d.svc = NewService(Deps{
		Links:        w.links,
		PlayerRemote: w.playerR,
		RangeRemote:  w.rangeR,
		Shares:       w.shareR,
		Players:      d.players,
		RangeSets:    d.rangeStore,
		Outbox:       d.outbox,
		Identity:     identity,
		Friends:      w.friends,
		Limiter:      w.limiter,
		Checks:       d.checks,
		MaxLinks:     3,
		Logger:       logger,
	})
	return d
}

// addPlayer creates a player on the device and mirrors it to the
// remote, as a completed push would.
func (d *device) addPlayer(w *world, name string) *player.Player {
	p, err := d.players.Create(context.Background(), name)
	if err != nil {
		panic(err)
	}
	w.playerR.put(d.userID, p)
	return p
}

var (
	_ ports.LinkRemote    = (*memLinkRemote)(nil)
	_ ports.PlayerRemote  = (*memPlayerRemote)(nil)
	_ ports.RangeRemote   = (*memRangeRemote)(nil)
	_ ports.ShareRemote   = (*memShareRemote)(nil)
	_ ports.PlayerStore   = (*memPlayerStore)(nil)
	_ ports.RangeSetStore = (*memRangeSetStore)(nil)
	_ ports.OutboxStore   = (*memOutboxStore)(nil)
	_ ports.FriendChecker = (*fakeFriends)(nil)
	_ ports.RateLimiter   = (*fakeLimiter)(nil)
	_ CheckCache          = (*memCheckCache)(nil)
)
