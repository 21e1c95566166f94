package scheduler

// slot is a reusable execution context backing a task's rooted state. Slots
// are allocated once at startup and reused for the scheduler's lifetime; the
// zero slot is reserved for one-time setup and blocking work.
type slot struct {
	id       int
	capacity int
}

// pool hands out slot indices through a free-list used front-first, so a
// recently released slot is the next one loaned out. Acquire never blocks;
// when the list is empty the caller queues the task instead.
type pool struct {
	slots []*slot
	free  []int
}

// newPool allocates n loanable slots plus the reserved slot 0.
func newPool(n int) *pool {
	p := &pool{slots: make([]*slot, n+1)}
	for i := range p.slots {
		p.slots[i] = &slot{id: i}
	}
	p.free = make([]int, 0, n)
	for i := 1; i <= n; i++ {
		p.free = append(p.free, i)
	}
	return p
}

func (p *pool) acquire() (int, bool) {
	if len(p.free) == 0 {
		return 0, false
	}
	idx := p.free[0]
	p.free = p.free[1:]
	return idx, true
}

func (p *pool) release(idx int) {
	p.free = append([]int{idx}, p.free...)
}

func (p *pool) freeCount() int {
	return len(p.free)
}
