// Package freq maintains an order-preserving frequency ranking over the live
// tokens of a sliding window. The items slice stays sorted by count
// descending at all times; because a mutation changes a count by exactly one,
// at most one rank boundary is crossed per call and a single swap restores
// the order.
package freq

// Item is a ranked (key, count) pair.
type Item struct {
	Key   string
	Count int
}

// Counter tracks counts for a set of keys and keeps them sorted by count
// descending. Keys are held as borrowed strings; the caller keeps the backing
// text alive for the counter's lifetime.
type Counter struct {
	items []Item
	index map[string]int
	total int
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{index: make(map[string]int)}
}

// TotalCount returns the sum of all counts.
func (c *Counter) TotalCount() int {
	return c.total
}

// NumItems returns the number of keys with a positive count.
func (c *Counter) NumItems() int {
	return len(c.items)
}

func (c *Counter) swap(i1, i2 int) {
	if i1 == i2 {
		return
	}
	c.items[i1], c.items[i2] = c.items[i2], c.items[i1]
	c.index[c.items[i1].Key] = i1
	c.index[c.items[i2].Key] = i2
}

// Add increments key's count. An unseen key is appended at the tail with
// count 1; it never jumps ahead of already-seen keys. An existing key moves
// left past at most one run of smaller counts, by a single swap.
func (c *Counter) Add(key string) {
	c.total++

	i1, ok := c.index[key]
	if !ok {
		c.index[key] = len(c.items)
		c.items = append(c.items, Item{Key: key, Count: 1})
		return
	}

	c.items[i1].Count++
	count := c.items[i1].Count

	for i2 := i1 - 1; i2 >= 0; i2-- {
		if c.items[i2].Count < count {
			if i2 > 0 {
				continue
			}
			c.swap(i1, 0)
			break
		}
		c.swap(i1, i2+1)
		break
	}
}

// Remove decrements key's count, deleting the key when it reaches zero
// (swap-with-tail, pop). A surviving key moves right symmetrically to Add.
// Removing a key that is not present is a no-op.
func (c *Counter) Remove(key string) {
	i1, ok := c.index[key]
	if !ok {
		return
	}
	c.total--

	c.items[i1].Count--
	count := c.items[i1].Count

	if count == 0 {
		last := len(c.items) - 1
		c.items[i1] = c.items[last]
		c.index[c.items[i1].Key] = i1
		c.items = c.items[:last]
		delete(c.index, key)
		return
	}

	for i2 := i1 + 1; i2 < len(c.items); i2++ {
		if c.items[i2].Count > count {
			if i2 < len(c.items)-1 {
				continue
			}
			c.swap(i1, i2)
			break
		}
		c.swap(i1, i2-1)
		break
	}
}

// MostFrequent returns the item at the given 1-indexed rank, or false when
// fewer distinct keys exist.
func (c *Counter) MostFrequent(rank int) (Item, bool) {
	if rank < 1 || rank > len(c.items) {
		return Item{}, false
	}
	return c.items[rank-1], true
}
