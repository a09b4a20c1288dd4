// Package zone implements the zone server: it owns a contiguous game port
// range, spawns game server processes on request from the master, pushes each
// one its room configuration, and releases ports when rooms are destroyed.
package zone

import (
	"errors"
	"sync"
)

// ErrNoPortsAvailable is returned by Acquire when every port in the range is
// held by a live room.
var ErrNoPortsAvailable = errors.New("no game ports available")

// PortPool hands out ports from the contiguous range
// (basePort, basePort+max]. Ports are reused as soon as they are released.
type PortPool struct {
	mu       sync.Mutex
	basePort int
	max      int
	inUse    map[int]bool
}

func NewPortPool(basePort, max int) *PortPool {
	return &PortPool{basePort: basePort, max: max, inUse: make(map[int]bool)}
}

// Acquire reserves the lowest free port in the range.
func (p *PortPool) Acquire() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for port := p.basePort + 1; port <= p.basePort+p.max; port++ {
		if !p.inUse[port] {
			p.inUse[port] = true
			return port, nil
		}
	}
	return 0, ErrNoPortsAvailable
}

// Release returns a port to the pool. Releasing a port that was never
// acquired is a no-op.
func (p *PortPool) Release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inUse, port)
}

// InUse reports the number of reserved ports.
func (p *PortPool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inUse)
}
