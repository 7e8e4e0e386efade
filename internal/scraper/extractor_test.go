package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testHour = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestExtractReadsCard(t *testing.T) {
	sel := DefaultSelectors()
	extractor := NewPriceExtractor(sel, zap.NewNop())

	card := buildCard(sel, cardSpec{
		href:    "/shop/product/5260839_ea_000pns?name=salad-sprouts",
		dollars: "4",
		cents:   "99",
		imgSrc:  "https://a-us.storyblok.com/f/1004913/200x200/abc/5260839.jpg",
	})

	result, ok := extractor.Extract(context.Background(), card, testHour)
	require.True(t, ok)
	assert.Equal(t, "5260839", result.ProductID)
	assert.Equal(t, 4.99, result.Point.Price)
	assert.Equal(t, testHour, result.Point.ObservedAt)
	assert.Equal(t, "https://a-us.storyblok.com/f/1004913/master/abc/5260839.jpg", result.ImageURL)
}

func TestExtractTrimsPriceWhitespace(t *testing.T) {
	sel := DefaultSelectors()
	extractor := NewPriceExtractor(sel, zap.NewNop())

	card := buildCard(sel, cardSpec{
		href:    "/shop/product/5001234_ea_000pns",
		dollars: " 12\n",
		cents:   " 50 ",
	})

	result, ok := extractor.Extract(context.Background(), card, testHour)
	require.True(t, ok)
	assert.Equal(t, 12.50, result.Point.Price)
}

func TestExtractMissingAnchor(t *testing.T) {
	sel := DefaultSelectors()
	extractor := NewPriceExtractor(sel, zap.NewNop())

	card := buildCard(sel, cardSpec{dollars: "4", cents: "99"})

	_, ok := extractor.Extract(context.Background(), card, testHour)
	assert.False(t, ok)
}

func TestExtractMissingCents(t *testing.T) {
	sel := DefaultSelectors()
	extractor := NewPriceExtractor(sel, zap.NewNop())

	card := buildCard(sel, cardSpec{
		href:    "/shop/product/5001234_ea_000pns",
		dollars: "4",
	})

	_, ok := extractor.Extract(context.Background(), card, testHour)
	assert.False(t, ok)
}

func TestExtractUnparsablePrice(t *testing.T) {
	sel := DefaultSelectors()
	extractor := NewPriceExtractor(sel, zap.NewNop())

	card := buildCard(sel, cardSpec{
		href:    "/shop/product/5001234_ea_000pns",
		dollars: "four",
		cents:   "99",
	})

	_, ok := extractor.Extract(context.Background(), card, testHour)
	assert.False(t, ok)
}

func TestExtractImageOptional(t *testing.T) {
	sel := DefaultSelectors()
	extractor := NewPriceExtractor(sel, zap.NewNop())

	card := buildCard(sel, cardSpec{
		href:    "/shop/product/5001234_ea_000pns",
		dollars: "4",
		cents:   "99",
	})

	result, ok := extractor.Extract(context.Background(), card, testHour)
	require.True(t, ok)
	assert.Empty(t, result.ImageURL)
}

func TestExtractImageWithoutThumbnailMarker(t *testing.T) {
	sel := DefaultSelectors()
	extractor := NewPriceExtractor(sel, zap.NewNop())

	card := buildCard(sel, cardSpec{
		href:    "/shop/product/5001234_ea_000pns",
		dollars: "4",
		cents:   "99",
		imgSrc:  "https://a-us.storyblok.com/f/1004913/400x400/abc/5001234.jpg",
	})

	result, ok := extractor.Extract(context.Background(), card, testHour)
	require.True(t, ok)
	assert.Empty(t, result.ImageURL)
}

func TestProductIDFromURL(t *testing.T) {
	cases := []struct {
		name string
		href string
		want string
	}{
		{"full slug with query", "/shop/product/5260839_ea_000pns?name=salad-sprouts", "5260839"},
		{"no query", "/shop/product/5009687_kgm_000pns", "5009687"},
		{"no underscore", "/shop/product/5009687", "5009687"},
		{"absolute url", "https://www.paknsave.co.nz/shop/product/5030981_ea_000pns?name=milk", "5030981"},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ProductIDFromURL(tc.href))
		})
	}
}
