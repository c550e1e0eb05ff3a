package usage

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterStore_GetUnknownCompany(t *testing.T) {
	s := NewCounterStore(NewManualClock(base))

	c := s.Get(uuid.New())
	assert.Equal(t, Counter{}, c)
	assert.Equal(t, 1, s.Len())
}

func TestCounterStore_RecordConsumption(t *testing.T) {
	clock := NewManualClock(base)
	s := NewCounterStore(clock)
	id := uuid.New()

	c := s.RecordConsumption(id, 120)
	assert.Equal(t, int64(1), c.RequestsThisHour)
	assert.Equal(t, int64(1), c.RequestsToday)
	assert.Equal(t, int64(120), c.TokensToday)
	assert.Equal(t, int64(1), c.TotalRequests)
	assert.Equal(t, int64(120), c.TotalTokensUsed)
	assert.Equal(t, base, c.LastRequestTime)

	clock.Advance(2 * time.Hour)
	c = s.RecordConsumption(id, 30)
	assert.Equal(t, int64(1), c.RequestsThisHour, "hour window rolled over")
	assert.Equal(t, int64(2), c.RequestsToday)
	assert.Equal(t, int64(150), c.TokensToday)
	assert.Equal(t, int64(2), c.TotalRequests)

	clock.Advance(24 * time.Hour)
	c = s.RecordConsumption(id, 5)
	assert.Equal(t, int64(1), c.RequestsToday, "day window rolled over")
	assert.Equal(t, int64(5), c.TokensToday)
	assert.Equal(t, int64(3), c.TotalRequests)
	assert.Equal(t, int64(155), c.TotalTokensUsed)
}

func TestCounterStore_ConsumeDeniedLeavesCounter(t *testing.T) {
	s := NewCounterStore(NewManualClock(base))
	id := uuid.New()
	s.RecordConsumption(id, 10)
	before := s.Get(id)

	_, ok := s.Consume(id, 10, func(Counter) bool { return false })
	assert.False(t, ok)
	assert.Equal(t, before, s.Get(id))
}

func TestCounterStore_ConsumeIsAtomicPerCompany(t *testing.T) {
	s := NewCounterStore(NewManualClock(base))
	id := uuid.New()
	const limit = 25

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := s.Consume(id, 1, func(p Counter) bool { return p.RequestsThisHour+1 <= limit })
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, allowed)
	assert.Equal(t, int64(limit), s.Get(id).RequestsThisHour)
}

func TestCounterStore_CompaniesAreIndependent(t *testing.T) {
	s := NewCounterStore(NewManualClock(base))
	a, b := uuid.New(), uuid.New()

	s.RecordConsumption(a, 1)
	s.RecordConsumption(a, 1)
	s.RecordConsumption(b, 1)

	require.Equal(t, int64(2), s.Get(a).TotalRequests)
	require.Equal(t, int64(1), s.Get(b).TotalRequests)
}
