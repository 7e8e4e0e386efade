package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRequestBlocklist(t *testing.T) {
	bl := DefaultRequestBlocklist()

	assert.True(t, bl.Blocks("Image", "https://a-us.storyblok.com/f/x/200x200/p.jpg"))
	assert.True(t, bl.Blocks("Stylesheet", "https://www.paknsave.co.nz/app.css"))
	assert.True(t, bl.Blocks("Font", "https://www.paknsave.co.nz/font.woff2"))
	assert.True(t, bl.Blocks("Script", "https://www.googletagmanager.com/gtm.js?id=GTM-1"))
	assert.True(t, bl.Blocks("Script", "https://js-agent.newrelic.com/nr-loader.js"))
	assert.True(t, bl.Blocks("Fetch", "https://foo.cloudflare.com/cdn-cgi/challenge-platform/x"))

	assert.False(t, bl.Blocks("Document", "https://www.paknsave.co.nz/shop/deals"))
	assert.False(t, bl.Blocks("XHR", "https://www.paknsave.co.nz/CommonApi/Store/GetStoreList"))
	assert.False(t, bl.Blocks("Script", "https://www.paknsave.co.nz/_next/static/chunk.js"))
}

func TestNewRequestBlocklistEmpty(t *testing.T) {
	assert.Nil(t, NewRequestBlocklist(nil, nil))
	assert.Nil(t, NewRequestBlocklist([]string{" ", ""}, []string{""}))

	var nilList *RequestBlocklist
	assert.False(t, nilList.Blocks("image", "https://example.com/a.jpg"))
}

func TestNewRequestBlocklistDeduplicatesSubstrings(t *testing.T) {
	bl := NewRequestBlocklist(nil, []string{"gtm.js", "gtm.js"})
	assert.Len(t, bl.substrings, 1)
}
