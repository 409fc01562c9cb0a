// Package filter implements the SSTable filter block (a per-2KiB-of-data
// bloom filter) and its pluggable FilterPolicy, adapted from the teacher
// repo's sstable/filter/filter.go (murmur3-seeded bitset) into the
// original's filter-block framing: one filter per kFilterBase (2KiB) of
// data-block offset range, referenced by a trailing offset array so a
// reader can find the right filter for any block without parsing all of
// them.
package filter

import (
	"github.com/AmrMurad1/ldbtable/internal/codec"
	"github.com/AmrMurad1/ldbtable/internal/lsmerrors"
	"github.com/spaolacci/murmur3"
)

// baseLg is log2 of the filter base (2KiB): one filter covers this many
// bytes of data-block offset range.
const baseLg = 11

const filterBase = 1 << baseLg

// Policy builds and probes a filter over a set of keys.
type Policy interface {
	// Name identifies the policy; stored in the metaindex block as
	// "filter." + Name so a reader can refuse an unrecognized policy.
	Name() string
	// CreateFilter returns a filter byte string covering all of keys.
	CreateFilter(keys [][]byte) []byte
	// KeyMayMatch reports whether key might be a member of filter. False
	// negatives are never allowed; false positives are expected.
	KeyMayMatch(key []byte, filter []byte) bool
}

// BloomFilterPolicy is a standard bloom filter sized from an
// expected bits-per-key budget.
type BloomFilterPolicy struct {
	bitsPerKey int
	k          int // number of hash functions
}

// NewBloomFilterPolicy returns a policy targeting bitsPerKey bits of
// filter storage per added key.
func NewBloomFilterPolicy(bitsPerKey int) *BloomFilterPolicy {
	k := int(float64(bitsPerKey) * 0.69) // ln(2)
	if k < 1 {
		k = 1
	}
	if k > 30 {
		k = 30
	}
	return &BloomFilterPolicy{bitsPerKey: bitsPerKey, k: k}
}

// Name implements Policy.
func (p *BloomFilterPolicy) Name() string { return "leveldb.BuiltinBloomFilter2" }

// CreateFilter implements Policy.
func (p *BloomFilterPolicy) CreateFilter(keys [][]byte) []byte {
	bits := len(keys) * p.bitsPerKey
	if bits < 64 {
		bits = 64
	}
	bytesLen := (bits + 7) / 8
	bits = bytesLen * 8

	dst := make([]byte, bytesLen+1)
	dst[bytesLen] = byte(p.k)

	for _, key := range keys {
		h := bloomHash(key)
		delta := (h >> 17) | (h << 15) // rotate right 17
		for j := 0; j < p.k; j++ {
			bitPos := h % uint32(bits)
			dst[bitPos/8] |= 1 << (bitPos % 8)
			h += delta
		}
	}
	return dst
}

// KeyMayMatch implements Policy.
func (p *BloomFilterPolicy) KeyMayMatch(key []byte, filter []byte) bool {
	if len(filter) < 1 {
		return false
	}
	bytesLen := len(filter) - 1
	bits := bytesLen * 8
	k := int(filter[bytesLen])
	if k > 30 {
		// Reserved for potential future encodings; treat as a match so
		// as to never produce a false negative.
		return true
	}

	h := bloomHash(key)
	delta := (h >> 17) | (h << 15)
	for j := 0; j < k; j++ {
		bitPos := h % uint32(bits)
		if filter[bitPos/8]&(1<<(bitPos%8)) == 0 {
			return false
		}
		h += delta
	}
	return true
}

func bloomHash(key []byte) uint32 {
	h := murmur3.New32WithSeed(0xbc9f1d34)
	_, _ = h.Write(key)
	return h.Sum32()
}

// Builder accumulates per-data-block keys and emits one filter per
// filterBase bytes of data-block offset range covered.
type Builder struct {
	policy Policy

	keys         [][]byte
	filters      [][]byte // one entry per filter generated so far
	filterOffset []uint32
}

// NewBuilder returns a Builder using policy.
func NewBuilder(policy Policy) *Builder {
	return &Builder{policy: policy}
}

// StartBlock is called with the offset (within the data-block region)
// the next data block will be written at, generating any filters needed
// to catch up to that offset's filter index.
func (b *Builder) StartBlock(blockOffset uint64) {
	filterIndex := blockOffset / filterBase
	for uint64(len(b.filterOffset)) < filterIndex {
		b.generateFilter()
	}
}

// AddKey registers key as belonging to the data block currently being
// built.
func (b *Builder) AddKey(key []byte) {
	b.keys = append(b.keys, append([]byte(nil), key...))
}

func (b *Builder) generateFilter() {
	b.filterOffset = append(b.filterOffset, uint32(totalLen(b.filters)))
	if len(b.keys) == 0 {
		b.filters = append(b.filters, nil)
		return
	}
	b.filters = append(b.filters, b.policy.CreateFilter(b.keys))
	b.keys = nil
}

func totalLen(filters [][]byte) int {
	n := 0
	for _, f := range filters {
		n += len(f)
	}
	return n
}

// Finish flushes any pending filter and returns the complete filter
// block: concatenated filters, a fixed32 offset array, a fixed32 pointer
// to that array, then the one-byte base log.
func (b *Builder) Finish() []byte {
	if len(b.keys) > 0 {
		b.generateFilter()
	}

	var out []byte
	for _, f := range b.filters {
		out = append(out, f...)
	}
	arrayOffset := len(out)
	for _, off := range b.filterOffset {
		out = codec.PutFixed32(out, off)
	}
	out = codec.PutFixed32(out, uint32(arrayOffset))
	out = append(out, byte(baseLg))
	return out
}

// Reader parses an encoded filter block for point lookups.
type Reader struct {
	policy    Policy
	data      []byte // filters region only
	offsets   []byte // raw fixed32 offset array
	numFilter int
	baseLg    int
}

// NewReader parses data (as produced by Builder.Finish) for use with
// policy.
func NewReader(policy Policy, data []byte) (*Reader, error) {
	if len(data) < 5 {
		return nil, lsmerrors.ErrCorruption
	}
	baseLgVal := int(data[len(data)-1])
	arrayOffset := codec.DecodeFixed32(data[len(data)-5:])
	if int(arrayOffset) > len(data)-5 {
		return nil, lsmerrors.ErrCorruption
	}
	offsets := data[arrayOffset : len(data)-5]
	numFilter := len(offsets) / 4
	return &Reader{
		policy:    policy,
		data:      data[:arrayOffset],
		offsets:   offsets,
		numFilter: numFilter,
		baseLg:    baseLgVal,
	}, nil
}

// KeyMayMatch reports whether key might be present in the data block
// starting at blockOffset. An out-of-range filter index, or a reversed
// start/limit pair from a corrupted offset array, is treated as a
// possible match rather than a definite miss — this mirrors the
// original's conservative handling of a malformed offset table, since a
// false negative here would silently lose data while a false positive
// only costs an extra block read.
func (r *Reader) KeyMayMatch(blockOffset uint64, key []byte) bool {
	index := blockOffset >> uint(r.baseLg)
	if int(index) >= r.numFilter {
		return true
	}
	start := codec.DecodeFixed32(r.offsets[index*4:])
	var limit uint32
	if int(index+1)*4+4 <= len(r.offsets) {
		limit = codec.DecodeFixed32(r.offsets[(index+1)*4:])
	} else {
		limit = uint32(len(r.data))
	}
	if start > limit || int(limit) > len(r.data) {
		return true
	}
	if start == limit {
		return false
	}
	return r.policy.KeyMayMatch(key, r.data[start:limit])
}
