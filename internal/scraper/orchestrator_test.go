package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunVisitsEveryStore(t *testing.T) {
	driverA := sessionDriver("store-a")
	driverB := sessionDriver("store-b")
	factory := &fakeFactory{drivers: []*fakeDriver{driverA, driverB}}

	o := NewRunOrchestrator(factory, testDeps(), testSessionConfig(), RunOptions{}, zap.NewNop())
	o.pause = noPause{}

	stores := []Store{{ID: "store-a", Name: "Albany"}, {ID: "store-b", Name: "Riccarton"}}
	categories := []Category{{Name: "Pantry", URL: "https://shop.example/c/pantry"}}

	summary, err := o.Run(context.Background(), stores, categories)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.StoresScraped)
	assert.Zero(t, summary.StoresFailed)
	assert.Equal(t, 2, summary.TotalStats.PricePoints)
	assert.True(t, driverA.closed)
	assert.True(t, driverB.closed)
}

func TestRunSkipsMismatchedStore(t *testing.T) {
	// First driver lands on the wrong store; the run must carry on.
	driverA := sessionDriver("somewhere-else")
	driverB := sessionDriver("store-b")
	factory := &fakeFactory{drivers: []*fakeDriver{driverA, driverB}}

	o := NewRunOrchestrator(factory, testDeps(), testSessionConfig(), RunOptions{}, zap.NewNop())
	o.pause = noPause{}

	stores := []Store{{ID: "store-a", Name: "Albany"}, {ID: "store-b", Name: "Riccarton"}}
	categories := []Category{{Name: "Pantry", URL: "https://shop.example/c/pantry"}}

	summary, err := o.Run(context.Background(), stores, categories)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.StoresScraped)
	assert.Equal(t, 1, summary.StoresFailed)
	assert.Equal(t, 1, summary.TotalStats.PricePoints)
}

func TestRunReverseCategories(t *testing.T) {
	driver := sessionDriver("store-a")
	driver.addPage("https://shop.example/c/chilled", &fakePage{})
	factory := &fakeFactory{drivers: []*fakeDriver{driver}}

	o := NewRunOrchestrator(factory, testDeps(), testSessionConfig(), RunOptions{Reverse: true}, zap.NewNop())
	o.pause = noPause{}

	categories := []Category{
		{Name: "Pantry", URL: "https://shop.example/c/pantry"},
		{Name: "Chilled", URL: "https://shop.example/c/chilled"},
	}
	_, err := o.Run(context.Background(), []Store{{ID: "store-a"}}, categories)
	require.NoError(t, err)

	// Landing page first, then categories in reverse declaration order.
	require.Len(t, driver.navigated, 3)
	assert.Equal(t, "https://shop.example/c/chilled", driver.navigated[1])
	assert.Equal(t, "https://shop.example/c/pantry", driver.navigated[2])
}

func TestRunStopsOnCancellation(t *testing.T) {
	driver := sessionDriver("store-a")
	factory := &fakeFactory{drivers: []*fakeDriver{driver}}

	o := NewRunOrchestrator(factory, testDeps(), testSessionConfig(), RunOptions{}, zap.NewNop())
	o.pause = noPause{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := o.Run(ctx, []Store{{ID: "store-a"}, {ID: "store-b"}}, []Category{{Name: "Pantry", URL: "https://shop.example/c/pantry"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.StoresScraped)
}

func TestReversedCopiesInput(t *testing.T) {
	categories := []Category{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	out := reversed(categories)

	assert.Equal(t, "C", out[0].Name)
	assert.Equal(t, "A", out[2].Name)
	assert.Equal(t, "A", categories[0].Name)
}
