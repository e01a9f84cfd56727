package state

import (
	"container/heap"
	"encoding/json"

	"github.com/keeperhq/tgov/types"
)

// WorkQueue orders waiting work units by capacity, largest first, falling
// back to arrival sequence so equal-capacity units are served FIFO.
type WorkQueue []*types.WorkUnit

func (wq WorkQueue) Len() int { return len(wq) }

func (wq WorkQueue) Less(i, j int) bool {
	if wq[i].Capacity == wq[j].Capacity {
		return wq[i].Seq < wq[j].Seq
	}
	return wq[i].Capacity > wq[j].Capacity
}

func (wq WorkQueue) Swap(i, j int) {
	wq[i], wq[j] = wq[j], wq[i]
}

func (wq *WorkQueue) Push(x any) {
	item := x.(*types.WorkUnit)
	*wq = append(*wq, item)
}

func (wq *WorkQueue) Pop() any {
	old := *wq
	n := len(old)
	item := old[n-1]
	*wq = old[0 : n-1]
	return item
}

// workQueue assembles the live queue from persisted units plus this block's
// pending additions, skipping units already assigned in this block.
func (s *State) workQueue() (*WorkQueue, error) {
	wq := &WorkQueue{}
	heap.Init(wq)

	start := []byte("w")
	end := PrefixEndBytes(start)
	iter, err := s.db.Iterator(start, end, false)
	if err != nil {
		return nil, err
	}
	for ; iter.Valid(); iter.Next() {
		var unit types.WorkUnit
		if err := json.Unmarshal(iter.Value(), &unit); err != nil {
			return nil, err
		}
		if s.doneWorkUnits[unit.Seq] {
			continue
		}
		if _, ok := s.newWorkUnits[unit.Seq]; ok {
			continue
		}
		u := unit
		heap.Push(wq, &u)
	}
	for seq, unit := range s.newWorkUnits {
		if s.doneWorkUnits[seq] {
			continue
		}
		u := *unit
		heap.Push(wq, &u)
	}
	return wq, nil
}

// WaitingWorkUnits lists the queue in service order, for the query surface.
func (s *State) WaitingWorkUnits() ([]*types.WorkUnit, error) {
	wq, err := s.workQueue()
	if err != nil {
		return nil, err
	}
	units := make([]*types.WorkUnit, 0, wq.Len())
	for wq.Len() > 0 {
		units = append(units, heap.Pop(wq).(*types.WorkUnit))
	}
	return units, nil
}

// MatchWork drains the head of the queue for as long as the pool covers its
// capacity. Strict queue order: if the head does not fit, nothing behind it
// is considered. No voting, no quorum; this is plain capacity matching.
func (s *State) MatchWork() (events []*types.EventWorkAssigned, err error) {
	wq, err := s.workQueue()
	if err != nil {
		return nil, err
	}
	for wq.Len() > 0 {
		head := (*wq)[0]
		if head.Capacity > s.header.Pool {
			break
		}
		heap.Pop(wq)
		s.header.Pool -= head.Capacity
		s.doneWorkUnits[head.Seq] = true
		s.logger.Debug("work unit assigned",
			"unit", head.Seq, "owner", head.Owner,
			"capacity", head.Capacity, "pool", s.header.Pool)
		events = append(events, &types.EventWorkAssigned{
			Unit:     head.Seq,
			Owner:    head.Owner,
			Capacity: head.Capacity,
			Pool:     s.header.Pool,
			Height:   s.header.Height,
		})
	}
	return events, nil
}

// PoolBalance is the undistributed deposit total.
func (s *State) PoolBalance() uint64 {
	return s.header.Pool
}
