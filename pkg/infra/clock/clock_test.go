package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInstantClock_AfterAdvancesAndRecords(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Instant(start)

	fired := <-c.After(5 * time.Second)
	assert.Equal(t, start.Add(5*time.Second), fired)

	<-c.After(0)
	assert.Equal(t, start.Add(5*time.Second), c.Now())
	assert.Equal(t, []time.Duration{5 * time.Second, 0}, c.Waits())
}

func TestReal_AfterFires(t *testing.T) {
	c := Real()
	select {
	case <-c.After(time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("real clock did not fire")
	}
	assert.False(t, c.Now().IsZero())
}
