package zerocopy

// Callback fires once a zero-copy entry is fully framed and drained.
type Callback func(data interface{}, err error)

// entry is a waitlist item: one logical user send whose buffer(s) were
// handed to the kernel without copying.
type entry struct {
	group     uint64
	data      interface{}
	callback  Callback
	outstand  []Range
	framed    bool
}

func (e *entry) subtract(r Range) {
	var next []Range
	for _, o := range e.outstand {
		res, overflow := Difference(o, r)
		if !res.Empty() {
			next = append(next, res)
		}
		if !overflow.Empty() {
			next = append(next, overflow)
		}
	}
	e.outstand = next
}

func (e *entry) done() bool {
	return e.framed && len(e.outstand) == 0
}

// Notification is a single kernel zero-copy completion report.
type Notification struct {
	Group uint64
	From  uint32
	Thru  uint32
}

// Queue correlates outstanding zero-copy counters with user callbacks, per
// §4.2. It is not safe for concurrent use; callers serialize access (the
// socket's strand, in StreamSocket).
type Queue struct {
	gen     CounterGenerator
	pending []*entry // in FIFO enqueue order
	done    []*entry
}

// New constructs an empty zero-copy Queue.
func New() *Queue {
	return &Queue{}
}

// Push allocates one counter and starts a new waitlist entry for group.
func (q *Queue) Push(group uint64, data interface{}, cb Callback) uint64 {
	c := q.gen.Next()
	e := &entry{
		group:    group,
		data:     data,
		callback: cb,
		outstand: []Range{{Min: c, Max: c + 1}},
	}
	q.pending = append(q.pending, e)
	return c
}

// PushExtend extends the most recently pushed entry for group by one more
// counter: the kernel consumed another buffer belonging to the same send.
func (q *Queue) PushExtend(group uint64) (uint64, bool) {
	e := q.latest(group)
	if e == nil {
		return 0, false
	}
	c := q.gen.Next()
	e.outstand = append(e.outstand, Range{Min: c, Max: c + 1})
	return c, true
}

// Frame marks the latest entry for group as having no further kernel calls
// extending its range.
func (q *Queue) Frame(group uint64) bool {
	e := q.latest(group)
	if e == nil {
		return false
	}
	e.framed = true
	q.reapDone()
	return true
}

func (q *Queue) latest(group uint64) *entry {
	for i := len(q.pending) - 1; i >= 0; i-- {
		if q.pending[i].group == group {
			return q.pending[i]
		}
	}
	return nil
}

// Update translates a kernel notification into a 64-bit range and subtracts
// it from every waitlist entry. Entries that become framed+empty move to the
// done list, preserving FIFO order (§8 invariant 3).
func (q *Queue) Update(n Notification) {
	r := q.gen.Convert(n.From, n.Thru)

	remaining := q.pending[:0:0]
	for _, e := range q.pending {
		e.subtract(r)
		if e.done() {
			q.done = append(q.done, e)
		} else {
			remaining = append(remaining, e)
		}
	}
	q.pending = remaining
}

func (q *Queue) reapDone() {
	remaining := q.pending[:0:0]
	for _, e := range q.pending {
		if e.done() {
			q.done = append(q.done, e)
		} else {
			remaining = append(remaining, e)
		}
	}
	q.pending = remaining
}

// Pop removes and returns the oldest done entry's data and callback.
func (q *Queue) Pop() (data interface{}, cb Callback, ok bool) {
	if len(q.done) == 0 {
		return nil, nil, false
	}
	e := q.done[0]
	q.done = q.done[1:]
	return e.data, e.callback, true
}

// HasDone reports whether at least one entry is ready to Pop.
func (q *Queue) HasDone() bool {
	return len(q.done) > 0
}

// PendingCount reports the number of in-flight (not yet framed+empty) entries.
func (q *Queue) PendingCount() int {
	return len(q.pending)
}

// Generation exposes the wrap generation for observability (§ SPEC_FULL supplement).
func (q *Queue) Generation() uint64 {
	return q.gen.Generation()
}
