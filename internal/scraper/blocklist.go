package scraper

import "strings"

// RequestBlocklist decides which outbound page requests the driver should
// abort. Blocking heavy resource types and known tracker/challenge hosts cuts
// page weight and noise without changing the rendered product data.
type RequestBlocklist struct {
	types      map[string]struct{}
	substrings []string
}

// NewRequestBlocklist builds a blocklist from resource type names and URL
// substrings. Returns nil when both lists are empty.
func NewRequestBlocklist(resourceTypes, urlSubstrings []string) *RequestBlocklist {
	bl := &RequestBlocklist{
		types: make(map[string]struct{}),
	}
	for _, raw := range resourceTypes {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		bl.types[value] = struct{}{}
	}
	for _, raw := range urlSubstrings {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		bl.addSubstring(value)
	}
	if len(bl.types) == 0 && len(bl.substrings) == 0 {
		return nil
	}
	return bl
}

// DefaultRequestBlocklist blocks the resource types and tracking hosts the
// storefront is known to load.
func DefaultRequestBlocklist() *RequestBlocklist {
	return NewRequestBlocklist(
		[]string{"image", "stylesheet", "media", "font", "other"},
		[]string{
			"googleoptimize.com",
			"gtm.js",
			"visitoridentification.js",
			"js-agent.newrelic.com",
			"challenge-platform",
		},
	)
}

func (b *RequestBlocklist) addSubstring(value string) {
	for _, existing := range b.substrings {
		if existing == value {
			return
		}
	}
	b.substrings = append(b.substrings, value)
}

// Blocks reports whether a request with the given resource type and URL
// should be aborted.
func (b *RequestBlocklist) Blocks(resourceType, url string) bool {
	if b == nil {
		return false
	}
	if _, ok := b.types[strings.ToLower(strings.TrimSpace(resourceType))]; ok {
		return true
	}
	for _, sub := range b.substrings {
		if strings.Contains(url, sub) {
			return true
		}
	}
	return false
}
