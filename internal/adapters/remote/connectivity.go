package remote

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/feltworks/rangesync/internal/application/ports"
)

// DefaultProbeTTL is how long a connectivity answer stays cached. The
// probe runs before every push pass, so without the cache it would
// hammer the endpoint.
const DefaultProbeTTL = 5 * time.Second

// Probe answers connectivity checks with a HEAD request against the
// remote store's health endpoint, caching the result for a short TTL.
type Probe struct {
	httpClient *http.Client
	url        string
	ttl        time.Duration

	mu        sync.Mutex
	lastCheck time.Time
	lastValue bool
	now       func() time.Time
}

// NewProbe creates a probe against baseURL's /healthz endpoint. A
// non-positive ttl falls back to DefaultProbeTTL.
func NewProbe(baseURL string, ttl time.Duration) *Probe {
	if ttl <= 0 {
		ttl = DefaultProbeTTL
	}
	return &Probe{
		httpClient: &http.Client{Timeout: 3 * time.Second},
		url:        baseURL + "/healthz",
		ttl:        ttl,
		now:        time.Now,
	}
}

// Online reports whether the remote store is reachable. The answer is
// advisory: a cached true may be stale for up to the TTL.
func (p *Probe) Online(ctx context.Context) bool {
	p.mu.Lock()
	if !p.lastCheck.IsZero() && p.now().Sub(p.lastCheck) < p.ttl {
		v := p.lastValue
		p.mu.Unlock()
		return v
	}
	p.mu.Unlock()

	online := p.check(ctx)

	p.mu.Lock()
	p.lastCheck = p.now()
	p.lastValue = online
	p.mu.Unlock()
	return online
}

func (p *Probe) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

var _ ports.Connectivity = (*Probe)(nil)
