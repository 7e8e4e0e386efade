package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVisitTracker(t *testing.T) {
	tracker := newVisitTracker()

	assert.True(t, tracker.MarkIfNew("https://shop.example/c/pantry"))
	assert.False(t, tracker.MarkIfNew("https://shop.example/c/pantry"))
	assert.True(t, tracker.MarkIfNew("https://shop.example/c/pantry?pg=2"))
	assert.False(t, tracker.MarkIfNew(""))
}

func TestPauseRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	timerPauseController{}.Pause(ctx, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPauseZeroDelayReturnsImmediately(t *testing.T) {
	start := time.Now()
	timerPauseController{}.Pause(context.Background(), 0)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
