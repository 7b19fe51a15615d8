package main

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmissionCapacity(t *testing.T) {
	a := newAdmission(3)

	var releases []func()
	for i := 0; i < 3; i++ {
		release, ok := a.TryAdmit()
		require.True(t, ok, "permit %d should be available", i)
		releases = append(releases, release)
	}

	_, ok := a.TryAdmit()
	assert.False(t, ok, "pool should be exhausted")
	assert.Equal(t, 3, a.Held())
	assert.Zero(t, a.Available())

	releases[1]()
	assert.Equal(t, 1, a.Available())

	release, ok := a.TryAdmit()
	require.True(t, ok)
	release()
	releases[0]()
	releases[2]()

	assert.Zero(t, a.Held())
	assert.Equal(t, a.Capacity(), a.Available())
}

func TestAdmissionReleaseIsOnce(t *testing.T) {
	a := newAdmission(1)

	release, ok := a.TryAdmit()
	require.True(t, ok)

	release()
	assert.NotPanics(t, release)
	assert.Equal(t, 1, a.Available())

	second, ok := a.TryAdmit()
	require.True(t, ok)
	release() // stale release must not free the new holder's permit
	assert.Zero(t, a.Available())
	second()
}

func TestAdmissionConcurrent(t *testing.T) {
	const capacity = 8
	a := newAdmission(capacity)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		current int
		peak    int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, ok := a.TryAdmit()
			if !ok {
				return
			}
			defer release()

			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			mu.Lock()
			current--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, capacity)
	assert.Zero(t, a.Held())
	assert.Equal(t, capacity, a.Available())
}
