// Package sequence orders concurrent request results so that a response
// started earlier never overwrites state produced by a later one.
package sequence

import "sync"

// Ticket identifies one in-flight request.
type Ticket uint64

// Guard hands out increasing tickets and applies results in ticket order.
// The zero value is ready to use.
type Guard struct {
	mu        sync.Mutex
	next      Ticket
	committed Ticket
}

// Begin issues a ticket for a request that is about to start.
func (g *Guard) Begin() Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.next
}

// Commit runs apply only if no later ticket has committed already and
// reports whether it ran. apply executes under the guard lock.
func (g *Guard) Commit(t Ticket, apply func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t <= g.committed {
		return false
	}
	g.committed = t
	if apply != nil {
		apply()
	}
	return true
}

// Latest reports the most recently committed ticket.
func (g *Guard) Latest() Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.committed
}
