package dispatch

// Tag records the selection a request was issued for.
type Tag struct {
	Guild   string
	Channel string
}

type entry struct {
	seq uint64
	tag Tag
}

// Pending correlates kind-addressed replies with the requests that caused them.
// Replies of one kind arrive in the order their requests were sent on a single
// connection, so each kind keeps a FIFO of tags. A sequence number orders
// entries across kinds.
type Pending struct {
	queues map[string][]entry
	seq    uint64
}

// NewPending returns an empty tracker.
func NewPending() *Pending {
	return &Pending{queues: make(map[string][]entry)}
}

// Push records a tag for a request whose reply will arrive as kind.
func (p *Pending) Push(kind string, tag Tag) {
	p.seq++
	p.queues[kind] = append(p.queues[kind], entry{seq: p.seq, tag: tag})
}

// Pop resolves the oldest outstanding tag for kind.
func (p *Pending) Pop(kind string) (Tag, bool) {
	q := p.queues[kind]
	if len(q) == 0 {
		return Tag{}, false
	}
	tag := q[0].tag
	if len(q) == 1 {
		delete(p.queues, kind)
	} else {
		p.queues[kind] = q[1:]
	}
	return tag, true
}

// PopOldest resolves the oldest outstanding tag among kinds, whatever its kind.
func (p *Pending) PopOldest(kinds ...string) (string, Tag, bool) {
	var (
		oldest string
		seq    uint64
	)
	for _, kind := range kinds {
		q := p.queues[kind]
		if len(q) == 0 {
			continue
		}
		if oldest == "" || q[0].seq < seq {
			oldest, seq = kind, q[0].seq
		}
	}
	if oldest == "" {
		return "", Tag{}, false
	}
	tag, _ := p.Pop(oldest)
	return oldest, tag, true
}

// Len returns the number of outstanding requests for kind.
func (p *Pending) Len(kind string) int {
	return len(p.queues[kind])
}

// Reset drops every outstanding tag. Replies never cross connections.
func (p *Pending) Reset() {
	clear(p.queues)
}
