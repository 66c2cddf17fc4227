package chain

// BigramText is a region-free bigram: two plain strings.
type BigramText struct {
	First, Second string
}

// SeqNext is a region-free transition record. Next is nil when the bigram was
// the last possible pair in its document.
type SeqNext struct {
	Seq  int32   `json:"seq"`
	Next *string `json:"next"`
}

// Snapshot is an independent copy of the index with no reference to either
// region: it stays valid after the Chain is compacted, reset, or dropped.
type Snapshot map[BigramText]map[BigramText][]SeqNext

// Extract drains the index into a Snapshot. The Chain itself is unchanged
// and keeps ownership of its regions.
func (c *Chain) Extract() Snapshot {
	g := c.gens[c.active]

	snap := make(Snapshot, len(c.chain))
	for key, topics := range c.chain {
		outKey := BigramText{
			First:  key.First.Text(g.tokens),
			Second: key.Second.Text(g.tokens),
		}

		outTopics := make(map[BigramText][]SeqNext, len(topics))
		for topic, list := range topics {
			outTopic := BigramText{
				First:  topic.First.Text(g.tokens),
				Second: topic.Second.Text(g.tokens),
			}

			records := make([]SeqNext, 0, list.count)
			idx := list.head
			for n := int32(0); n < list.count; n++ {
				node := g.records[idx]
				rec := SeqNext{Seq: node.tr.Seq}
				if node.tr.HasNext {
					next := node.tr.Next.Text(g.tokens)
					rec.Next = &next
				}
				records = append(records, rec)
				idx = node.next
			}
			outTopics[outTopic] = records
		}
		snap[outKey] = outTopics
	}
	return snap
}
