// Package chain implements the bounded-memory transition index: for every
// adjacent token pair it records, per locally dominant topic bigram, the
// chronological sequence of following tokens. Memory is organized as two
// regions used in strict alternation; when the active one grows past the
// configured size the index is compacted into the other, dropping low-density
// entries and reclaiming the old region in bulk.
package chain

import (
	"fmt"

	"github.com/cognitext/chaingram/pkg/chaingram/freq"
	"github.com/cognitext/chaingram/pkg/chaingram/region"
	"github.com/cognitext/chaingram/pkg/chaingram/token"
)

// minTopicLen is the shortest token (exclusive) that participates in topic
// counting. Shorter tokens still form bigrams and transitions.
const minTopicLen = 2

const regionChunkSize = 1 << 20

// recordNodeBytes approximates the in-memory footprint of one transition
// record, for size-triggered compaction accounting.
const recordNodeBytes = 28

// Bigram is an ordered pair of tokens. With interned boxed payloads, bitwise
// equality of Bigrams is content equality, so it serves directly as a map key.
type Bigram struct {
	First, Second token.Token
}

// Transition is one recorded occurrence: the position inside the current
// same-topic run plus the token that followed the bigram. HasNext is false
// for the last possible pair of a document.
type Transition struct {
	Seq     int32
	Next    token.Token
	HasNext bool
}

type recordNode struct {
	tr   Transition
	next int32 // index of the next record in the same topic list, -1 at tail
}

// recordList threads the records of one (bigram, topic) pair through the
// generation's record arena in occurrence order.
type recordList struct {
	head, tail int32
	count      int32
}

// generation is one region pair member: a byte region for boxed token
// payloads plus a typed arena for transition records. Both are reclaimed
// together on reset.
type generation struct {
	tokens  *region.Region
	records []recordNode
}

func newGeneration(budget int) *generation {
	return &generation{tokens: region.New(regionChunkSize, budget)}
}

func (g *generation) allocatedBytes() int {
	return g.tokens.AllocatedBytes() + len(g.records)*recordNodeBytes
}

func (g *generation) appendRecord(tr Transition) int32 {
	g.records = append(g.records, recordNode{tr: tr, next: -1})
	return int32(len(g.records) - 1)
}

func (g *generation) reset() {
	g.tokens.Reset()
	g.records = g.records[:0]
}

// Chain is the transition index. A Chain is not safe for concurrent
// mutation; run one Chain per goroutine and transfer ownership to hand off.
type Chain struct {
	halfParaLen    int
	pruneSize      int
	pruneThreshold int

	chain map[Bigram]map[Bigram]recordList

	gens   [2]*generation
	active int
}

// New creates a Chain. halfParaLen is the window half-width in tokens,
// pruneSize the active-region byte count that triggers compaction, and
// pruneThreshold the minimum number of distinct topics an entry needs to
// survive compaction.
func New(halfParaLen, pruneSize, pruneThreshold int) *Chain {
	// Budget each region at double the prune trigger: compaction fires at
	// pruneSize, so the headroom is only consumed by pathological single
	// documents, which then surface a typed allocation failure.
	budget := 0
	if pruneSize > 0 {
		budget = 2 * pruneSize
	}
	return &Chain{
		halfParaLen:    halfParaLen,
		pruneSize:      pruneSize,
		pruneThreshold: pruneThreshold,
		chain:          make(map[Bigram]map[Bigram]recordList, pruneSize/1000),
		gens:           [2]*generation{newGeneration(budget), newGeneration(budget)},
	}
}

// EntryCount returns the number of distinct bigrams in the index.
func (c *Chain) EntryCount() int {
	return len(c.chain)
}

// AllocatedBytes reports bytes used in the active region, including record
// storage. Callers may use it to force Compact earlier than the configured
// trigger.
func (c *Chain) AllocatedBytes() int {
	return c.gens[c.active].allocatedBytes()
}

// Update sweeps one document and records a transition per position.
// Documents shorter than the window half-width are skipped. The sweep aborts
// early (keeping what was recorded so far) when the window no longer holds
// enough distinct context to name a topic. An allocation failure propagates
// as a typed error; records appended before the failure are kept.
func (c *Chain) Update(words []string) error {
	if len(words) < c.halfParaLen {
		return nil
	}

	g := c.gens[c.active]

	var seqNum int32
	var prevFirst, prevSecond string

	counter := freq.NewCounter()

	for i := 0; i+1 < len(words); i++ {
		start := i - c.halfParaLen
		if start < 0 {
			start = 0
		}
		end := i + c.halfParaLen
		if end > len(words) {
			end = len(words)
		}

		if i == 0 {
			for _, w := range words[start:end] {
				if len(w) > minTopicLen {
					counter.Add(w)
				}
			}
		} else {
			if start > 0 {
				if w := words[start]; len(w) > minTopicLen {
					counter.Remove(w)
				}
			}

			// Admit the token newly covered on the right while the window is
			// still growing, plus a one-time inclusion of the final token the
			// moment the right edge reaches the end of the document. The two
			// conditions are not interchangeable with a plain "grew" test.
			if end < len(words) || i+c.halfParaLen == len(words) {
				if w := words[end-1]; len(w) > minTopicLen {
					counter.Add(w)
				}
			}
		}

		if counter.TotalCount() < 3 || counter.NumItems() < 2 {
			break
		}

		top1, _ := counter.MostFrequent(1)
		top2, _ := counter.MostFrequent(2)

		if top1.Key != prevFirst || top2.Key != prevSecond {
			seqNum = 0
			prevFirst, prevSecond = top1.Key, top2.Key
		}

		if err := c.record(g, words, i, top1.Key, top2.Key, seqNum); err != nil {
			return err
		}
		seqNum++
	}

	if c.AllocatedBytes() > c.pruneSize {
		return c.Compact()
	}
	return nil
}

func (c *Chain) record(g *generation, words []string, i int, topicFirst, topicSecond string, seqNum int32) error {
	first, err := token.Make(words[i], g.tokens)
	if err != nil {
		return fmt.Errorf("bigram first: %w", err)
	}
	second, err := token.Make(words[i+1], g.tokens)
	if err != nil {
		return fmt.Errorf("bigram second: %w", err)
	}
	tFirst, err := token.Make(topicFirst, g.tokens)
	if err != nil {
		return fmt.Errorf("topic first: %w", err)
	}
	tSecond, err := token.Make(topicSecond, g.tokens)
	if err != nil {
		return fmt.Errorf("topic second: %w", err)
	}

	tr := Transition{Seq: seqNum}
	if i+2 < len(words) {
		next, err := token.Make(words[i+2], g.tokens)
		if err != nil {
			return fmt.Errorf("next token: %w", err)
		}
		tr.Next = next
		tr.HasNext = true
	}

	key := Bigram{First: first, Second: second}
	topics := c.chain[key]
	if topics == nil {
		topics = make(map[Bigram]recordList)
		c.chain[key] = topics
	}

	topic := Bigram{First: tFirst, Second: tSecond}
	list := topics[topic]
	idx := g.appendRecord(tr)
	if list.count == 0 {
		list.head = idx
	} else {
		g.records[list.tail].next = idx
	}
	list.tail = idx
	list.count++
	topics[topic] = list
	return nil
}

// Compact rebuilds the index into the inactive region, keeping only bigrams
// whose topic map has at least the configured number of distinct topics, then
// bulk-resets the old region. The active selector flips only after the
// rebuild fully succeeds; on failure the destination is reset and the index
// is left untouched.
func (c *Chain) Compact() error {
	old := c.gens[c.active]
	dstID := (c.active + 1) % len(c.gens)
	dst := c.gens[dstID]

	// Pre-size to roughly 1.4x the surviving entries to limit rehash churn
	// while the copy runs.
	newChain := make(map[Bigram]map[Bigram]recordList, len(c.chain)*14/10)

	for key, topics := range c.chain {
		if len(topics) < c.pruneThreshold {
			continue
		}

		newKey, err := c.cloneBigram(key, old, dst)
		if err != nil {
			dst.reset()
			return fmt.Errorf("compact bigram: %w", err)
		}

		newTopics := make(map[Bigram]recordList, len(topics))
		for topic, list := range topics {
			newTopic, err := c.cloneBigram(topic, old, dst)
			if err != nil {
				dst.reset()
				return fmt.Errorf("compact topic: %w", err)
			}

			var newList recordList
			idx := list.head
			for n := int32(0); n < list.count; n++ {
				node := old.records[idx]
				tr := node.tr
				if tr.HasNext {
					next, err := tr.Next.CloneInto(old.tokens, dst.tokens)
					if err != nil {
						dst.reset()
						return fmt.Errorf("compact transition: %w", err)
					}
					tr.Next = next
				}

				newIdx := dst.appendRecord(tr)
				if newList.count == 0 {
					newList.head = newIdx
				} else {
					dst.records[newList.tail].next = newIdx
				}
				newList.tail = newIdx
				newList.count++
				idx = node.next
			}
			newTopics[newTopic] = newList
		}
		newChain[newKey] = newTopics
	}

	c.chain = newChain
	c.active = dstID
	old.reset()
	return nil
}

func (c *Chain) cloneBigram(b Bigram, src, dst *generation) (Bigram, error) {
	first, err := b.First.CloneInto(src.tokens, dst.tokens)
	if err != nil {
		return Bigram{}, err
	}
	second, err := b.Second.CloneInto(src.tokens, dst.tokens)
	if err != nil {
		return Bigram{}, err
	}
	return Bigram{First: first, Second: second}, nil
}
