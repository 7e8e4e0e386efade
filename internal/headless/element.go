package headless

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/kiwiprice/pak-crawler/internal/scraper"
)

// element is one DOM node handle scoped to its tab. Node ids are only valid
// until the next navigation, which matches how the pipeline consumes them:
// cards are queried and read within a single page visit.
type element struct {
	session *Session
	node    *cdp.Node
}

func (e *element) Query(ctx context.Context, selector string) (scraper.Element, error) {
	var nodes []*cdp.Node
	err := e.session.run(ctx, e.session.cfg.NavigationTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.FromNode(e.node), chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, scraper.ErrElementMissing
	}
	return &element{session: e.session, node: nodes[0]}, nil
}

func (e *element) Attribute(_ context.Context, name string) (string, error) {
	value, ok := nodeAttribute(e.node, name)
	if !ok {
		return "", scraper.ErrElementMissing
	}
	return value, nil
}

func (e *element) InnerHTML(ctx context.Context) (string, error) {
	var html string
	err := e.session.run(ctx, e.session.cfg.NavigationTimeout,
		chromedp.InnerHTML([]cdp.NodeID{e.node.NodeID}, &html, chromedp.ByNodeID),
	)
	if err != nil {
		return "", fmt.Errorf("inner html: %w", err)
	}
	return html, nil
}
