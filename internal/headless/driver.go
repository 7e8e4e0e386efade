// Package headless drives the storefront with headless Chrome via chromedp.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/kiwiprice/pak-crawler/internal/scraper"
)

// Config controls the shared browser and its sessions.
type Config struct {
	// Headless toggles the new headless mode. The storefront's bot checks
	// sometimes require a headed window; the original operators ran headed.
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
}

// Factory owns one Chrome process for the whole run and mints one tab per
// store session.
type Factory struct {
	cfg             Config
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
}

// NewFactory launches the browser and warms it up. The returned factory must
// be closed at the end of the run.
func NewFactory(cfg Config, logger *zap.Logger) (*Factory, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Factory{
		cfg:             cfg,
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
	}, nil
}

// NewSession opens a fresh tab bound to the shared browser.
func (f *Factory) NewSession(_ context.Context) (scraper.PageDriver, error) {
	tabCtx, tabCancel := chromedp.NewContext(f.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &Session{
		tabCtx:    tabCtx,
		tabCancel: tabCancel,
		cfg:       f.cfg,
		logger:    f.logger,
	}, nil
}

// Close tears down the browser and allocator.
func (f *Factory) Close() {
	f.browserCancel()
	f.allocatorCancel()
}

// Session implements scraper.PageDriver on one browser tab.
type Session struct {
	tabCtx    context.Context
	tabCancel context.CancelFunc
	cfg       Config
	logger    *zap.Logger
}

// Navigate loads url and waits for the document to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	err := s.run(ctx, s.cfg.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitForSelector blocks until selector appears or timeout elapses.
func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// QueryAll snapshots every node matching selector on the current page.
func (s *Session) QueryAll(ctx context.Context, selector string) ([]scraper.Element, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, s.cfg.NavigationTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	elements := make([]scraper.Element, 0, len(nodes))
	for _, node := range nodes {
		elements = append(elements, &element{session: s, node: node})
	}
	return elements, nil
}

// Attribute reads one attribute from the first node matching selector.
func (s *Session) Attribute(ctx context.Context, selector, name string) (string, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, s.cfg.NavigationTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)),
	)
	if err != nil {
		return "", fmt.Errorf("query %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return "", scraper.ErrElementMissing
	}
	value, ok := nodeAttribute(nodes[0], name)
	if !ok {
		return "", scraper.ErrElementMissing
	}
	return value, nil
}

// SetGeolocation overrides the session position and grants the geolocation
// permission so the storefront's detection can use it.
func (s *Session) SetGeolocation(ctx context.Context, latitude, longitude float64) error {
	err := s.run(ctx, s.cfg.NavigationTimeout,
		browser.GrantPermissions([]browser.PermissionType{browser.PermissionTypeGeolocation}),
		emulation.SetGeolocationOverride().
			WithLatitude(latitude).
			WithLongitude(longitude).
			WithAccuracy(100),
	)
	if err != nil {
		return fmt.Errorf("set geolocation: %w", err)
	}
	return nil
}

// FilterRequests intercepts every request on the tab and aborts the ones the
// blocklist rejects.
func (s *Session) FilterRequests(ctx context.Context, blocklist *scraper.RequestBlocklist) error {
	if blocklist == nil {
		return nil
	}
	chromedp.ListenTarget(s.tabCtx, func(ev any) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go s.resolvePausedRequest(paused, blocklist)
	})
	if err := s.run(ctx, s.cfg.NavigationTimeout, fetch.Enable()); err != nil {
		return fmt.Errorf("enable request interception: %w", err)
	}
	return nil
}

func (s *Session) resolvePausedRequest(ev *fetch.EventRequestPaused, blocklist *scraper.RequestBlocklist) {
	c := chromedp.FromContext(s.tabCtx)
	execCtx := cdp.WithExecutor(s.tabCtx, c.Target)

	if blocklist.Blocks(ev.ResourceType.String(), ev.Request.URL) {
		if err := fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx); err != nil {
			s.logger.Debug("abort request failed", zap.String("url", ev.Request.URL), zap.Error(err))
		}
		return
	}
	if err := fetch.ContinueRequest(ev.RequestID).Do(execCtx); err != nil {
		s.logger.Debug("continue request failed", zap.String("url", ev.Request.URL), zap.Error(err))
	}
}

// Close releases the tab. The shared browser stays up for the next store.
func (s *Session) Close(_ context.Context) error {
	s.tabCancel()
	return nil
}

// run executes actions on the tab, honoring both the caller's context and an
// optional timeout. chromedp actions only observe the tab context, so caller
// cancellation is forwarded.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	if timeout > 0 {
		var tcancel context.CancelFunc
		runCtx, tcancel = context.WithTimeout(runCtx, timeout)
		defer tcancel()
	}

	stop := forwardCancel(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func nodeAttribute(node *cdp.Node, name string) (string, bool) {
	attrs := node.Attributes
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == name {
			return attrs[i+1], true
		}
	}
	return "", false
}
