package boss

// writeCache maps already written values to their slot index. Slot 0 is
// Null and is never stored; the first cached value gets index 1.
type writeCache struct {
	byHash map[uint64][]int
	slots  []cached // slots[i] holds index i+1
	h      hasher
	frozen bool // stream mode: lookups only ever match Null
}

type cached struct {
	v    Value
	hash uint64
}

func newWriteCache() *writeCache {
	return &writeCache{
		byHash: make(map[uint64][]int),
		h:      hasher{memo: make(map[any]uint64)},
	}
}

// len is the index the next registered value will receive.
func (c *writeCache) len() int { return len(c.slots) + 1 }

// lookup returns the slot of a value equal to v, or registers v under the
// next index and reports false. In stream mode nothing is registered.
func (c *writeCache) lookup(v Value) (int, bool) {
	if c.frozen {
		return 0, false
	}
	sum := c.h.sum(v)
	for _, i := range c.byHash[sum] {
		if Equal(c.slots[i-1].v, v) {
			return i, true
		}
	}
	idx := c.len()
	c.slots = append(c.slots, cached{v: v, hash: sum})
	c.byHash[sum] = append(c.byHash[sum], idx)
	return idx, false
}

// truncate forgets every slot from index n on.
func (c *writeCache) truncate(n int) {
	for len(c.slots) >= n && len(c.slots) > 0 {
		last := c.slots[len(c.slots)-1]
		idx := len(c.slots)
		ids := c.byHash[last.hash]
		for j := len(ids) - 1; j >= 0; j-- {
			if ids[j] == idx {
				ids = append(ids[:j], ids[j+1:]...)
				break
			}
		}
		if len(ids) == 0 {
			delete(c.byHash, last.hash)
		} else {
			c.byHash[last.hash] = ids
		}
		c.slots = c.slots[:len(c.slots)-1]
	}
}

// forget drops hash memos; values may change between top-level writes.
func (c *writeCache) forget() { clear(c.h.memo) }

func (c *writeCache) reset(frozen bool) {
	clear(c.byHash)
	c.slots = c.slots[:0]
	c.forget()
	c.frozen = frozen
}

// readCache is the decoder mirror of writeCache.
type readCache struct {
	slots  []Value
	frozen bool
}

func newReadCache() *readCache { return &readCache{slots: []Value{Null{}}} }

func (c *readCache) add(v Value) {
	if !c.frozen {
		c.slots = append(c.slots, v)
	}
}

func (c *readCache) get(i uint64) (Value, bool) {
	if i >= uint64(len(c.slots)) {
		return nil, false
	}
	return c.slots[i], true
}

func (c *readCache) reset(frozen bool) {
	clear(c.slots[1:])
	c.slots = c.slots[:1]
	c.frozen = frozen
}
