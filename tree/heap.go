package tree

import "container/heap"

// HeapItem is the head of one sorted run during a k-way merge.
type HeapItem struct {
	Value  uint64
	Source int
	Offset int
	Index  int
}

type MinHeap []*HeapItem

func (mh MinHeap) Len() int {
	return len(mh)
}

func (mh MinHeap) Less(i, j int) bool {
	if mh[i].Value == mh[j].Value {
		return mh[i].Source < mh[j].Source
	} else {
		return mh[i].Value < mh[j].Value
	}
}

func (mh MinHeap) Swap(i, j int) {
	mh[i], mh[j] = mh[j], mh[i]
	mh[i].Index = i
	mh[j].Index = j
}

func (mh *MinHeap) Push(x interface{}) {
	n := len(*mh)
	item := x.(*HeapItem)
	item.Index = n
	*mh = append(*mh, item)
}

func (mh *MinHeap) Pop() interface{} {
	old := *mh
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.Index = -1
	*mh = old[0 : n-1]
	return item
}

func (mh *MinHeap) Top() *HeapItem {
	arr := *mh
	return arr[0]
}

// Advance replaces the top item's value in place and restores heap order.
func (mh *MinHeap) Advance(value uint64, offset int) {
	top := mh.Top()
	top.Value = value
	top.Offset = offset
	heap.Fix(mh, top.Index)
}

func NewMinHeap(initSize int) *MinHeap {
	mh := make(MinHeap, 0, initSize)
	heap.Init(&mh)
	return &mh
}

// Merge walks several ascending runs in global ascending order, calling visit
// for every value until it returns false.
func Merge(runs [][]uint64, visit func(uint64) bool) {
	mh := NewMinHeap(len(runs))
	for source, run := range runs {
		if len(run) == 0 {
			continue
		}
		heap.Push(mh, &HeapItem{Value: run[0], Source: source, Offset: 0})
	}
	for mh.Len() > 0 {
		top := mh.Top()
		if !visit(top.Value) {
			return
		}
		run := runs[top.Source]
		next := top.Offset + 1
		if next < len(run) {
			mh.Advance(run[next], next)
		} else {
			heap.Pop(mh)
		}
	}
}
