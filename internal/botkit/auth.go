package botkit

// Gate decides whether an inbound event's origin may interact with the
// bot. Restricted is the default; an unrestricted gate accepts every
// origin. The allowed set is fixed at construction.
type Gate struct {
	restricted bool
	allowed    map[int64]struct{}
}

// NewGate builds a gate over the given chat ids.
func NewGate(restricted bool, chatIDs []int64) *Gate {
	allowed := make(map[int64]struct{}, len(chatIDs))
	for _, id := range chatIDs {
		allowed[id] = struct{}{}
	}
	return &Gate{restricted: restricted, allowed: allowed}
}

// Check reports whether the origin is permitted.
func (g *Gate) Check(origin int64) bool {
	if !g.restricted {
		return true
	}
	_, ok := g.allowed[origin]
	return ok
}
