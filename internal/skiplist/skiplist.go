// Package skiplist implements a concurrent skiplist keyed by opaque byte
// slices, allocated out of an arena.Arena. It supports a single writer
// concurrent with many readers: a reader that observes a node via an
// acquire load is guaranteed to see that node's key and value fully
// published, even without holding any lock.
package skiplist

import (
	"bytes"
	"math/rand"
	"sync/atomic"

	"github.com/AmrMurad1/ldbtable/internal/arena"
)

const (
	maxHeight = 12
	branching = 4 // P = 1/4
)

// Comparator orders two keys; it must be a total order consistent with
// bytes.Compare unless the caller has a domain-specific reason not to be
// (e.g. the internal-key comparator in internal/dbformat).
type Comparator func(a, b []byte) int

// BytewiseComparator orders keys by bytes.Compare.
func BytewiseComparator(a, b []byte) int { return bytes.Compare(a, b) }

type node struct {
	key  []byte
	next []atomic.Pointer[node]
}

// newNode allocates a node struct on the Go heap. Unlike the C++ original,
// which carves the node and its flexible next[] array out of a single
// arena allocation, Go gives no portable way to placement-construct a
// struct containing atomic.Pointer fields inside raw arena bytes — so only
// the node's key bytes are required to come from the arena (see List.Arena),
// and the node header itself is ordinary garbage-collected memory.
func newNode(key []byte, height int) *node {
	return &node{key: key, next: make([]atomic.Pointer[node], height)}
}

func (n *node) getNext(i int) *node {
	return n.next[i].Load()
}

func (n *node) setNext(i int, x *node) {
	n.next[i].Store(x)
}

// List is a concurrent skiplist. The zero value is not usable; use New.
type List struct {
	cmp   Comparator
	arena *arena.Arena

	head *node

	maxHeightVal atomic.Int32 // current max height in use, 1-based

	rnd *rand.Rand
}

// New returns an empty List storing keys compared with cmp, allocating
// nodes from a.
func New(cmp Comparator, a *arena.Arena) *List {
	l := &List{
		cmp:   cmp,
		arena: a,
		head:  newNode(nil, maxHeight),
		rnd:   rand.New(rand.NewSource(0xdeadbeef)),
	}
	l.maxHeightVal.Store(1)
	return l
}

// Arena returns the arena backing this list's key storage, so callers can
// allocate key bytes with a lifetime matching the list before calling
// Insert.
func (l *List) Arena() *arena.Arena { return l.arena }

func (l *List) randomHeight() int {
	h := 1
	for h < maxHeight && l.rnd.Intn(branching) == 0 {
		h++
	}
	return h
}

func (l *List) getMaxHeight() int {
	return int(l.maxHeightVal.Load())
}

// keyIsAfterNode reports whether key is strictly greater than n's key. A
// nil n is treated as past every key, so the result is false.
func (l *List) keyIsAfterNode(key []byte, n *node) bool {
	return n != nil && l.cmp(n.key, key) < 0
}

// findGreaterOrEqual returns the first node whose key is >= key, and
// (optionally) fills prev[i] with the last node at level i whose key is <
// key.
func (l *List) findGreaterOrEqual(key []byte, prev []*node) *node {
	x := l.head
	level := l.getMaxHeight() - 1
	for {
		next := x.getNext(level)
		if l.keyIsAfterNode(key, next) {
			x = next
		} else {
			if prev != nil {
				prev[level] = x
			}
			if level == 0 {
				return next
			}
			level--
		}
	}
}

// findLessThan returns the last node whose key is strictly less than key.
func (l *List) findLessThan(key []byte) *node {
	x := l.head
	level := l.getMaxHeight() - 1
	for {
		next := x.getNext(level)
		if next == nil || l.cmp(next.key, key) >= 0 {
			if level == 0 {
				return x
			}
			level--
		} else {
			x = next
		}
	}
}

// findLast returns the last node in the list, or head if the list is
// empty.
func (l *List) findLast() *node {
	x := l.head
	level := l.getMaxHeight() - 1
	for {
		next := x.getNext(level)
		if next == nil {
			if level == 0 {
				return x
			}
			level--
		} else {
			x = next
		}
	}
}

// Insert adds key to the list. key must not already be present (the
// memtable layer is responsible for de-duplication via sequence numbers,
// exactly as the original's internal-key encoding makes every insert
// unique).
func (l *List) Insert(key []byte) {
	var prev [maxHeight]*node
	x := l.findGreaterOrEqual(key, prev[:])
	_ = x

	height := l.randomHeight()
	if height > l.getMaxHeight() {
		for i := l.getMaxHeight(); i < height; i++ {
			prev[i] = l.head
		}
		l.maxHeightVal.Store(int32(height))
	}

	n := newNode(key, height)
	for i := 0; i < height; i++ {
		n.setNext(i, prev[i].getNext(i))
		prev[i].setNext(i, n)
	}
}

// Contains reports whether key is present in the list.
func (l *List) Contains(key []byte) bool {
	n := l.findGreaterOrEqual(key, nil)
	return n != nil && l.cmp(n.key, key) == 0
}

// Iterator provides read-only, lock-free traversal of a List. An
// Iterator is not safe for concurrent use by multiple goroutines, but
// multiple Iterators may traverse the same List concurrently with writes.
type Iterator struct {
	list *List
	node *node
}

// NewIterator returns an unpositioned Iterator over l.
func NewIterator(l *List) *Iterator {
	return &Iterator{list: l}
}

// Valid reports whether the iterator is positioned at a valid node.
func (it *Iterator) Valid() bool { return it.node != nil }

// Key returns the key at the iterator's current position. Valid must be
// true.
func (it *Iterator) Key() []byte { return it.node.key }

// Next advances to the next entry. Valid must be true.
func (it *Iterator) Next() { it.node = it.node.getNext(0) }

// Prev moves to the previous entry. Valid must be true.
func (it *Iterator) Prev() {
	it.node = it.list.findLessThan(it.node.key)
	if it.node == it.list.head {
		it.node = nil
	}
}

// Seek positions the iterator at the first entry with a key >= target.
func (it *Iterator) Seek(target []byte) {
	it.node = it.list.findGreaterOrEqual(target, nil)
}

// SeekToFirst positions the iterator at the first entry in the list.
func (it *Iterator) SeekToFirst() {
	it.node = it.list.head.getNext(0)
}

// SeekToLast positions the iterator at the last entry in the list.
func (it *Iterator) SeekToLast() {
	n := it.list.findLast()
	if n == it.list.head {
		it.node = nil
	} else {
		it.node = n
	}
}
