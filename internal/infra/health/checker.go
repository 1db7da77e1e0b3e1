package health

import (
	"net/http"
	"sync"
	"time"
)

const probeInterval = 5 * time.Second

// Checker reports whether the PayPal API host is reachable. Results are
// cached so a busy /health endpoint does not hammer the processor.
type Checker struct {
	baseURL   string
	client    *http.Client
	mu        sync.Mutex
	reachable bool
	lastCheck time.Time
}

func NewChecker(baseURL string) *Checker {
	return &Checker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 2 * time.Second},
	}
}

// Reachable probes the processor host, at most once per interval. Any
// HTTP response counts as reachable; only transport failures and 5xx
// mark the processor down.
func (c *Checker) Reachable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if !c.lastCheck.IsZero() && now.Sub(c.lastCheck) < probeInterval {
		return c.reachable
	}

	resp, err := c.client.Get(c.baseURL)
	if err != nil || resp.StatusCode >= 500 {
		c.reachable = false
	} else {
		c.reachable = true
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	c.lastCheck = now

	return c.reachable
}
