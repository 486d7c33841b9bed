package sync

import (
	"context"
	"io"
	stdsync "sync"

	"github.com/feltworks/rangesync/internal/application/ports"
	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/link"
	"github.com/feltworks/rangesync/internal/domain/outbox"
	"github.com/feltworks/rangesync/internal/domain/player"
	"github.com/feltworks/rangesync/internal/domain/ranges"
	"github.com/feltworks/rangesync/internal/domain/session"
	"github.com/feltworks/rangesync/internal/infrastructure/logging"
)

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Format: logging.FormatText, Output: io.Discard})
}

// --- in-memory stores ---

type memOutbox struct {
	mu    stdsync.Mutex
	seq   int64
	items []*outbox.PendingItem
}

func newMemOutbox() *memOutbox { return &memOutbox{} }

func (m *memOutbox) Append(_ context.Context, item *outbox.PendingItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	item.Seq = m.seq
	m.items = append(m.items, item)
	return nil
}

func (m *memOutbox) ReplacePayload(_ context.Context, item *outbox.PendingItem) error {
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

func (m *memOutbox) List(_ context.Context) ([]*outbox.PendingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*outbox.PendingItem, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *memOutbox) LatestForTarget(_ context.Context, c outbox.Collection, targetID string) (*outbox.PendingItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].Collection == c && m.items[i].TargetID == targetID {
			return m.items[i], nil
		}
	}
	return nil, nil
}

func (m *memOutbox) Remove(_ context.Context, id string) error {
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

func (m *memOutbox) RemoveByTarget(_ context.Context, c outbox.Collection, targetID string) error {
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

func (m *memOutbox) PendingTargets(_ context.Context) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.items))
	for _, it := range m.items {
		out[string(it.Collection)+"/"+it.TargetID] = true
	}
	return out, nil
}

func (m *memOutbox) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memPlayers struct {
	mu      stdsync.Mutex
	players map[string]*player.Player
}

func newMemPlayers() *memPlayers { return &memPlayers{players: make(map[string]*player.Player)} }

func (m *memPlayers) Get(_ context.Context, id string) (*player.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, domainErrors.NewError(domainErrors.CodeNotFound, "player not found", domainErrors.ErrPlayerNotFound)
	}
	return p.Clone(), nil
}

func (m *memPlayers) GetAll(_ context.Context) ([]*player.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*player.Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *memPlayers) Put(_ context.Context, p *player.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[p.ID] = p.Clone()
	return nil
}

func (m *memPlayers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, id)
	return nil
}

type memRangeSets struct {
	mu   stdsync.Mutex
	sets map[string]ranges.RangeSet
}

func newMemRangeSets() *memRangeSets { return &memRangeSets{sets: make(map[string]ranges.RangeSet)} }

func (m *memRangeSets) Get(_ context.Context, playerID string) (ranges.RangeSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[playerID]
	if !ok {
		return ranges.RangeSet{}, nil
	}
	return set.Clone(), nil
}

func (m *memRangeSets) Put(_ context.Context, playerID string, set ranges.RangeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[playerID] = set.Normalized()
	return nil
}

func (m *memRangeSets) Delete(_ context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, playerID)
	return nil
}

type memSessions struct {
	mu       stdsync.Mutex
	sessions map[string]*session.Session
}

func newMemSessions() *memSessions { return &memSessions{sessions: make(map[string]*session.Session)} }

func (m *memSessions) Get(_ context.Context, id string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domainErrors.NewError(domainErrors.CodeNotFound, "session not found", domainErrors.ErrSessionNotFound)
	}
	return s.Clone(), nil
}

func (m *memSessions) GetAll(_ context.Context) ([]*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*session.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	return out, nil
}

func (m *memSessions) Put(_ context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// --- fake remotes ---

type fakePlayerRemote struct {
	mu      stdsync.Mutex
	players map[string]*player.Player
	errFor  map[string]error
	calls   int
}

func newFakePlayerRemote() *fakePlayerRemote {
	return &fakePlayerRemote{players: make(map[string]*player.Player), errFor: make(map[string]error)}
}

func (f *fakePlayerRemote) check(id string) error {
	f.calls++
	return f.errFor[id]
}

func (f *fakePlayerRemote) Create(_ context.Context, _ string, p *player.Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(p.ID); err != nil {
		return err
	}
	f.players[p.ID] = p.Clone()
	return nil
}

func (f *fakePlayerRemote) Update(_ context.Context, _ string, p *player.Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(p.ID); err != nil {
		return err
	}
	f.players[p.ID] = p.Clone()
	return nil
}

func (f *fakePlayerRemote) Delete(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(id); err != nil {
		return err
	}
	delete(f.players, id)
	return nil
}

func (f *fakePlayerRemote) GetByID(_ context.Context, _ string, id string) (*player.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(id); err != nil {
		return nil, err
	}
	p, ok := f.players[id]
	if !ok {
		return nil, domainErrors.NewError(domainErrors.CodeNotFound, "remote player not found", domainErrors.ErrRemoteNotFound)
	}
	return p.Clone(), nil
}

func (f *fakePlayerRemote) List(_ context.Context, _ string) ([]*player.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*player.Player, 0, len(f.players))
	for _, p := range f.players {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (f *fakePlayerRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRangeRemote struct {
	mu       stdsync.Mutex
	sets     map[string]ranges.RangeSet
	versions map[string]int64
	getCalls int
}

func newFakeRangeRemote() *fakeRangeRemote {
	return &fakeRangeRemote{sets: make(map[string]ranges.RangeSet), versions: make(map[string]int64)}
}

func (f *fakeRangeRemote) Put(_ context.Context, _ string, playerID string, set ranges.RangeSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets[playerID] = set.Clone()
	return nil
}

func (f *fakeRangeRemote) Get(_ context.Context, _ string, playerID string) (ranges.RangeSet, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	set, ok := f.sets[playerID]
	if !ok {
		return nil, 0, domainErrors.NewError(domainErrors.CodeNotFound, "remote range set not found", domainErrors.ErrRemoteNotFound)
	}
	return set.Clone(), f.versions[playerID], nil
}

func (f *fakeRangeRemote) Delete(_ context.Context, _ string, playerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sets, playerID)
	return nil
}

type fakeSessionRemote struct {
	mu       stdsync.Mutex
	sessions map[string]*session.Session
	errFor   map[string]error
}

func newFakeSessionRemote() *fakeSessionRemote {
	return &fakeSessionRemote{sessions: make(map[string]*session.Session), errFor: make(map[string]error)}
}

func (f *fakeSessionRemote) Create(_ context.Context, _ string, s *session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor[s.ID]; err != nil {
		return err
	}
	f.sessions[s.ID] = s.Clone()
	return nil
}

func (f *fakeSessionRemote) Update(_ context.Context, _ string, s *session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor[s.ID]; err != nil {
		return err
	}
	f.sessions[s.ID] = s.Clone()
	return nil
}

func (f *fakeSessionRemote) Delete(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor[id]; err != nil {
		return err
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionRemote) List(_ context.Context, _ string) ([]*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*session.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, s.Clone())
	}
	return out, nil
}

func (f *fakeSessionRemote) stored(id string) *session.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id].Clone()
}

type fakeLinkRemote struct {
	mu    stdsync.Mutex
	links map[string]*link.PlayerLink
}

func newFakeLinkRemote() *fakeLinkRemote { return &fakeLinkRemote{links: make(map[string]*link.PlayerLink)} }

func (f *fakeLinkRemote) Create(_ context.Context, l *link.PlayerLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *l
	f.links[l.ID] = &cp
	return nil
}

func (f *fakeLinkRemote) Update(_ context.Context, l *link.PlayerLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.links[l.ID]; !ok {
		return domainErrors.NewError(domainErrors.CodeNotFound, "remote link not found", domainErrors.ErrLinkNotFound)
	}
	cp := *l
	f.links[l.ID] = &cp
	return nil
}

func (f *fakeLinkRemote) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.links, id)
	return nil
}

func (f *fakeLinkRemote) GetByID(_ context.Context, id string) (*link.PlayerLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[id]
	if !ok {
		return nil, domainErrors.NewError(domainErrors.CodeNotFound, "remote link not found", domainErrors.ErrLinkNotFound)
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLinkRemote) ListForUser(_ context.Context, userID string) ([]*link.PlayerLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*link.PlayerLink, 0)
	for _, l := range f.links {
		if l.Involves(userID) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeShareRemote struct {
	mu     stdsync.Mutex
	shares map[string]*link.RangeShare
}

func newFakeShareRemote() *fakeShareRemote { return &fakeShareRemote{shares: make(map[string]*link.RangeShare)} }

func (f *fakeShareRemote) Upsert(_ context.Context, s *link.RangeShare) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, existing := range f.shares {
		if existing.ShareKey() == s.ShareKey() {
			delete(f.shares, id)
		}
	}
	cp := *s
	f.shares[s.ID] = &cp
	return nil
}

func (f *fakeShareRemote) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.shares, id)
	return nil
}

func (f *fakeShareRemote) ListForRecipient(_ context.Context, userID string) ([]*link.RangeShare, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*link.RangeShare, 0)
	for _, s := range f.shares {
		if s.ToUserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- identity and connectivity ---

type staticIdentity struct {
	user     ports.User
	signedIn bool
}

func (s staticIdentity) CurrentUser() (ports.User, bool) {
	return s.user, s.signedIn
}

type fakeProbe struct {
	mu     stdsync.Mutex
	online bool
}

func (f *fakeProbe) Online(_ context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeProbe) set(online bool) {
	f.mu.Lock()
	f.online = online
	f.mu.Unlock()
}

// --- assembly helper ---

type harness struct {
	outboxStore *memOutbox
	outbox      *Outbox
	players     *memPlayers
	rangeSets   *memRangeSets
	sessions    *memSessions
	playerR     *fakePlayerRemote
	rangeR      *fakeRangeRemote
	sessionR    *fakeSessionRemote
	linkR       *fakeLinkRemote
	shareR      *fakeShareRemote
	probe       *fakeProbe
	sync        *Synchronizer
}

func newHarness() *harness {
	h := &harness{
		outboxStore: newMemOutbox(),
		players:     newMemPlayers(),
		rangeSets:   newMemRangeSets(),
		sessions:    newMemSessions(),
		playerR:     newFakePlayerRemote(),
		rangeR:      newFakeRangeRemote(),
		sessionR:    newFakeSessionRemote(),
		linkR:       newFakeLinkRemote(),
		shareR:      newFakeShareRemote(),
		probe:       &fakeProbe{online: true},
	}
	logger := quietLogger()
	h.outbox = NewOutbox(h.outboxStore, logger)
	h.sync = NewSynchronizer(
		h.outboxStore,
		h.players,
		h.rangeSets,
		h.sessions,
		Remotes{
			Players:  h.playerR,
			Ranges:   h.rangeR,
			Sessions: h.sessionR,
			Links:    h.linkR,
			Shares:   h.shareR,
		},
		h.probe,
		staticIdentity{user: ports.User{ID: "user-1", DisplayName: "Hero"}, signedIn: true},
		nil,
		logger,
		nil,
	)
	return h
}

// interface conformance for the fakes
var (
	_ ports.OutboxStore   = (*memOutbox)(nil)
	_ ports.PlayerStore   = (*memPlayers)(nil)
	_ ports.RangeSetStore = (*memRangeSets)(nil)
	_ ports.SessionStore  = (*memSessions)(nil)
	_ ports.PlayerRemote  = (*fakePlayerRemote)(nil)
	_ ports.RangeRemote   = (*fakeRangeRemote)(nil)
	_ ports.SessionRemote = (*fakeSessionRemote)(nil)
	_ ports.LinkRemote    = (*fakeLinkRemote)(nil)
	_ ports.ShareRemote   = (*fakeShareRemote)(nil)
	_ ports.Connectivity  = (*fakeProbe)(nil)
	_ ports.Identity      = staticIdentity{}
)
