package main

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// admission gates how many connections are handled at once.
type admission struct {
	sem      *semaphore.Weighted
	capacity int64
	held     atomic.Int64
}

func newAdmission(capacity int) *admission {
	return &admission{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// TryAdmit takes one permit without blocking. The returned release func hands
// the permit back; only its first call has any effect.
func (a *admission) TryAdmit() (release func(), ok bool) {
	if !a.sem.TryAcquire(1) {
		return nil, false
	}
	a.held.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			a.held.Add(-1)
			a.sem.Release(1)
		})
	}, true
}

func (a *admission) Held() int      { return int(a.held.Load()) }
func (a *admission) Available() int { return int(a.capacity - a.held.Load()) }
func (a *admission) Capacity() int  { return int(a.capacity) }
