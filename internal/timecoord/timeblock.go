package timecoord

import "math"

// timeBlockEntry is one (time, index) barrier pair.
type timeBlockEntry struct {
	time  float64
	index int32
}

// blockList maintains outstanding time barriers. timeBlock() is the
// minimum time component, or +infinity when empty.
type blockList struct {
	entries []timeBlockEntry
}

// insert adds a new barrier.
func (b *blockList) insert(time float64, index int32) {
	b.entries = append(b.entries, timeBlockEntry{time: time, index: index})
}

// remove drops the barrier with the given index. Reports whether the
// removed entry held the current minimum, so the caller knows to
// re-scan dependent state.
func (b *blockList) remove(index int32) (removedMin bool) {
	currentMin := b.min()
	for i, e := range b.entries {
		if e.index == index {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return e.time == currentMin
		}
	}
	return false
}

// min returns the minimum time component across all barriers, or
// +infinity when empty.
func (b *blockList) min() float64 {
	min := math.MaxFloat64
	for _, e := range b.entries {
		if e.time < min {
			min = e.time
		}
	}
	return min
}
