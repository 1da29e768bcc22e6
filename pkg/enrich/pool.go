package enrich

import "sync/atomic"

// Pool rotates a set of API credentials round-robin. Safe for concurrent use.
type Pool struct {
	keys   []string
	cursor atomic.Uint64
}

// NewPool creates a credential pool. An empty key set yields a pool whose
// Next returns "", which the provider rejects with 401; configuration
// validation catches that earlier.
func NewPool(keys []string) *Pool {
	return &Pool{keys: keys}
}

// Next returns the next credential in rotation.
func (p *Pool) Next() string {
	if len(p.keys) == 0 {
		return ""
	}
	n := p.cursor.Add(1)
	return p.keys[(n-1)%uint64(len(p.keys))]
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	return len(p.keys)
}
