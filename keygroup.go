package flink

import (
	"fmt"

	"github.com/spaolacci/murmur3"
)

// KeyGroupRange is a contiguous, inclusive range of key-group indices.
// A range with End < Start is empty.
type KeyGroupRange struct {
	Start int
	End   int
}

// Count returns the number of key groups in the range.
func (r KeyGroupRange) Count() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether the key group lies within the range.
func (r KeyGroupRange) Contains(keyGroup int) bool {
	return keyGroup >= r.Start && keyGroup <= r.End
}

// Intersect returns the overlap of two ranges, which may be empty.
func (r KeyGroupRange) Intersect(o KeyGroupRange) KeyGroupRange {
	out := KeyGroupRange{Start: r.Start, End: r.End}
	if o.Start > out.Start {
		out.Start = o.Start
	}
	if o.End < out.End {
		out.End = o.End
	}
	return out
}

func (r KeyGroupRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}

// AssignToKeyGroup maps an encoded key to its key group within
// [0, totalKeyGroups). The assignment depends only on the key bytes
// and is stable across processes and restarts.
func AssignToKeyGroup(key []byte, totalKeyGroups int) int {
	return int(murmur3.Sum32(key) % uint32(totalKeyGroups))
}

// RangeForOperator computes the key-group range owned by one parallel
// operator instance. The ranges of all instances partition
// [0, totalKeyGroups) without gaps or overlap, so raising or lowering
// the parallelism reassigns whole key groups instead of rehashing keys.
func RangeForOperator(operatorIndex, parallelism, totalKeyGroups int) KeyGroupRange {
	return KeyGroupRange{
		Start: (operatorIndex*totalKeyGroups + parallelism - 1) / parallelism,
		End:   ((operatorIndex+1)*totalKeyGroups - 1) / parallelism,
	}
}

// KeyGroupRangeOffsets pairs a key-group range with one artifact byte
// offset per key group, in ascending key-group order.
type KeyGroupRangeOffsets struct {
	krange  KeyGroupRange
	offsets []int64
}

// NewKeyGroupRangeOffsets allocates a zeroed offset index for a range.
func NewKeyGroupRangeOffsets(r KeyGroupRange) *KeyGroupRangeOffsets {
	return &KeyGroupRangeOffsets{
		krange:  r,
		offsets: make([]int64, r.Count()),
	}
}

// KeyGroupRange returns the range covered by the index.
func (o *KeyGroupRangeOffsets) KeyGroupRange() KeyGroupRange {
	return o.krange
}

// Offset returns the recorded offset of a key group. The second return
// is false when the key group lies outside the covered range.
func (o *KeyGroupRangeOffsets) Offset(keyGroup int) (int64, bool) {
	if !o.krange.Contains(keyGroup) {
		return 0, false
	}
	return o.offsets[keyGroup-o.krange.Start], true
}

// SetOffset records the offset of a key group within the covered range.
func (o *KeyGroupRangeOffsets) SetOffset(keyGroup int, offset int64) error {
	if !o.krange.Contains(keyGroup) {
		return fmt.Errorf("%w: key group %d is outside the covered range %s", ErrKeyGroupNotOwned, keyGroup, o.krange)
	}
	o.offsets[keyGroup-o.krange.Start] = offset
	return nil
}
