package place

import "sync"

// Pool hands out one device context per place, creating contexts
// lazily. It is safe for concurrent use.
type Pool struct {
	mu       sync.Mutex
	contexts map[Place]*DeviceContext
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{contexts: make(map[Place]*DeviceContext)}
}

// Get returns the device context for the place, starting one on first
// use.
func (pool *Pool) Get(p Place) *DeviceContext {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	ctx, ok := pool.contexts[p]
	if !ok {
		ctx = NewDeviceContext(p)
		pool.contexts[p] = ctx
	}

	return ctx
}

// Close stops every device context in the pool.
func (pool *Pool) Close() {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	for _, ctx := range pool.contexts {
		ctx.Close()
	}

	pool.contexts = make(map[Place]*DeviceContext)
}
