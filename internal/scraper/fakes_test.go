package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeElement is a canned DOM node: child lookup by selector, attribute and
// inner HTML maps.
type fakeElement struct {
	children map[string]*fakeElement
	attrs    map[string]string
	html     string
}

func (e *fakeElement) Query(_ context.Context, selector string) (Element, error) {
	child, ok := e.children[selector]
	if !ok {
		return nil, fmt.Errorf("query %q: %w", selector, ErrElementMissing)
	}
	return child, nil
}

func (e *fakeElement) Attribute(_ context.Context, name string) (string, error) {
	value, ok := e.attrs[name]
	if !ok {
		return "", fmt.Errorf("attribute %q: %w", name, ErrElementMissing)
	}
	return value, nil
}

func (e *fakeElement) InnerHTML(_ context.Context) (string, error) {
	return e.html, nil
}

// cardSpec describes one product card on a fake page.
type cardSpec struct {
	href    string
	dollars string
	cents   string
	imgSrc  string
}

// buildCard renders a cardSpec into the element tree the extractor walks.
func buildCard(sel Selectors, spec cardSpec) *fakeElement {
	anchor := &fakeElement{
		attrs:    map[string]string{"href": spec.href},
		children: map[string]*fakeElement{},
	}
	if spec.imgSrc != "" {
		anchor.children[sel.ProductImage] = &fakeElement{
			attrs: map[string]string{sel.ImageAttr: spec.imgSrc},
		}
	}
	card := &fakeElement{children: map[string]*fakeElement{}}
	if spec.href != "" {
		card.children[sel.ProductAnchor] = anchor
	}
	if spec.dollars != "" {
		card.children[sel.PriceDollars] = &fakeElement{html: spec.dollars}
	}
	if spec.cents != "" {
		card.children[sel.PriceCents] = &fakeElement{html: spec.cents}
	}
	return card
}

// fakePage is one renderable URL.
type fakePage struct {
	cards    []cardSpec
	nextHref string
	navErr   error
	waitErr  error
}

// fakeDriver serves fakePages and records the session configuration calls.
type fakeDriver struct {
	sel     Selectors
	pages   map[string]*fakePage
	storeID string

	currentURL string
	navigated  []string
	blocklist  *RequestBlocklist
	filtered   bool
	latitude   float64
	longitude  float64
	geoSet     bool
	closed     bool
}

func newFakeDriver(sel Selectors, storeID string) *fakeDriver {
	return &fakeDriver{
		sel:     sel,
		pages:   make(map[string]*fakePage),
		storeID: storeID,
	}
}

func (d *fakeDriver) addPage(url string, page *fakePage) {
	d.pages[url] = page
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	if page, ok := d.pages[url]; ok && page.navErr != nil {
		return page.navErr
	}
	d.currentURL = url
	d.navigated = append(d.navigated, url)
	return nil
}

func (d *fakeDriver) WaitForSelector(_ context.Context, _ string, _ time.Duration) error {
	if page, ok := d.pages[d.currentURL]; ok && page.waitErr != nil {
		return page.waitErr
	}
	return nil
}

func (d *fakeDriver) QueryAll(_ context.Context, _ string) ([]Element, error) {
	page, ok := d.pages[d.currentURL]
	if !ok {
		return nil, nil
	}
	cards := make([]Element, 0, len(page.cards))
	for _, spec := range page.cards {
		cards = append(cards, buildCard(d.sel, spec))
	}
	return cards, nil
}

func (d *fakeDriver) Attribute(_ context.Context, selector, _ string) (string, error) {
	if selector == d.sel.SelectedStore {
		if d.storeID == "" {
			return "", ErrElementMissing
		}
		return d.storeID, nil
	}
	if selector == d.sel.NextPage {
		page, ok := d.pages[d.currentURL]
		if !ok || page.nextHref == "" {
			return "", ErrElementMissing
		}
		return page.nextHref, nil
	}
	return "", ErrElementMissing
}

func (d *fakeDriver) SetGeolocation(_ context.Context, latitude, longitude float64) error {
	d.latitude = latitude
	d.longitude = longitude
	d.geoSet = true
	return nil
}

func (d *fakeDriver) FilterRequests(_ context.Context, blocklist *RequestBlocklist) error {
	d.blocklist = blocklist
	d.filtered = true
	return nil
}

func (d *fakeDriver) Close(_ context.Context) error {
	d.closed = true
	return nil
}

// fakeFactory hands out pre-built drivers in order.
type fakeFactory struct {
	drivers []*fakeDriver
	err     error
	next    int
}

func (f *fakeFactory) NewSession(_ context.Context) (PageDriver, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.next >= len(f.drivers) {
		return nil, fmt.Errorf("no drivers left")
	}
	d := f.drivers[f.next]
	f.next++
	return d, nil
}

// fakeProductStore is an in-memory ProductStore with optional injected errors.
type fakeProductStore struct {
	mu       sync.Mutex
	products map[string]Product
	upserts  []string
	getErr   error
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{products: make(map[string]Product)}
}

func (s *fakeProductStore) UpsertProduct(_ context.Context, product Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ProductID] = product
	s.upserts = append(s.upserts, product.ProductID)
	return nil
}

func (s *fakeProductStore) GetProduct(_ context.Context, productID string) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	p, ok := s.products[productID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// fakePriceStore records appended price points.
type fakePriceStore struct {
	mu     sync.Mutex
	points map[string][]PricePoint
	err    error
}

func newFakePriceStore() *fakePriceStore {
	return &fakePriceStore{points: make(map[string][]PricePoint)}
}

func (s *fakePriceStore) AppendPrice(_ context.Context, productID string, point PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.points[productID] = append(s.points[productID], point)
	return nil
}

// fakeDetailFetcher serves canned products and counts fetches.
type fakeDetailFetcher struct {
	mu       sync.Mutex
	products map[string]*Product
	err      error
	calls    []string
}

func newFakeDetailFetcher() *fakeDetailFetcher {
	return &fakeDetailFetcher{products: make(map[string]*Product)}
}

func (f *fakeDetailFetcher) FetchDetail(_ context.Context, productID string) (*Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, productID)
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.products[productID]; ok {
		cp := *p
		return &cp, nil
	}
	return &Product{ProductID: productID + "-EA-000", Name: "Product " + productID}, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	topic   string
	payload any
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, payload: payload})
	return fmt.Sprintf("msg-%d", len(p.events)), nil
}

func (p *fakePublisher) byTopic(topic string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// fakeArchiver records archive requests.
type fakeArchiver struct {
	mu    sync.Mutex
	calls map[string]string
	err   error
}

func newFakeArchiver() *fakeArchiver {
	return &fakeArchiver{calls: make(map[string]string)}
}

func (a *fakeArchiver) Archive(_ context.Context, productID, imageURL string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.calls[productID] = imageURL
	return "memory://images/" + productID, nil
}

// fixedClock always returns the same instant.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// noPause removes the pacing delays from tests.
type noPause struct{}

func (noPause) Pause(context.Context, time.Duration) {}
