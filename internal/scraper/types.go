package scraper

import "time"

// Store identifies one physical supermarket. Stores are read-only inputs
// supplied by the catalog before a run starts.
type Store struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Banner          string  `json:"banner"`
	Address         string  `json:"address"`
	Delivery        bool    `json:"delivery"`
	ClickAndCollect bool    `json:"clickAndCollect"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
}

// Category is one top-level listing page. The top level carries every product
// of its subtree, so subcategories are never crawled.
type Category struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PricePoint is one observed price in an hour bucket. ObservedAt always has
// minutes and seconds zeroed; a later observation in the same bucket replaces
// the earlier one.
type PricePoint struct {
	ObservedAt time.Time `json:"observedAt"`
	Price      float64   `json:"price"`
}

// ProductPrice pairs an extracted product id with its price point and, when
// the card exposes one, the hi-res image URL.
type ProductPrice struct {
	ProductID string
	Point     PricePoint
	ImageURL  string
}

// CategoryTree is one breadcrumb path of a product.
type CategoryTree struct {
	Level0 string `json:"level0"`
	Level1 string `json:"level1,omitempty"`
	Level2 string `json:"level2,omitempty"`
}

// ProductImages holds the image variants exposed by the detail endpoint.
type ProductImages struct {
	PrimaryImages map[string]string `json:"primaryImages"`
}

// Product is the canonical product record, created on first detail fetch and
// keyed by the short id extracted from the product URL slug. Price changes
// flow through PricePoint, not through Product mutation.
type Product struct {
	ProductID                  string         `json:"productId"`
	Name                       string         `json:"name"`
	Brand                      string         `json:"brand"`
	Description                string         `json:"description"`
	UnitOfMeasure              string         `json:"unitOfMeasure"`
	Price                      float64        `json:"price"`
	NonLoyaltyCardPrice        float64        `json:"nonLoyaltyCardPrice"`
	SKU                        string         `json:"sku"`
	ComparativePricePerUnit    float64        `json:"comparativePricePerUnit"`
	ComparativeUnitQuantity    float64        `json:"comparativeUnitQuantity"`
	ComparativeUnitQuantityUoM string         `json:"comparativeUnitQuantityUoM"`
	SaleType                   string         `json:"saleType"`
	IngredientStatement        string         `json:"ingredientStatement"`
	AllergenStatement          string         `json:"allergenStatement"`
	NetContentUOM              string         `json:"netContentUOM"`
	DisplayName                string         `json:"displayName"`
	Categories                 []string       `json:"categories"`
	Availability               []string       `json:"availability"`
	CategoryTrees              []CategoryTree `json:"categoryTrees"`
	Images                     *ProductImages `json:"images,omitempty"`
}

// CategoryStats counts what one category traversal produced.
type CategoryStats struct {
	Pages       int
	Cards       int
	PricePoints int
	NewProducts int
	Skipped     int
}

// RunOutcome summarizes one store's session.
type RunOutcome struct {
	StoreID    string
	Categories int
	Stats      CategoryStats
	Elapsed    time.Duration
}

// RunSummary aggregates a whole multi-store run.
type RunSummary struct {
	RunID         string
	StoresScraped int
	StoresFailed  int
	TotalStats    CategoryStats
	Elapsed       time.Duration
}

// ProductDiscoveredEvent is published when a previously unknown product is
// persisted for the first time.
type ProductDiscoveredEvent struct {
	RunID     string    `json:"runId"`
	StoreID   string    `json:"storeId"`
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	At        time.Time `json:"at"`
}

// PriceObservedEvent is published for every appended price point.
type PriceObservedEvent struct {
	RunID     string    `json:"runId"`
	StoreID   string    `json:"storeId"`
	ProductID string    `json:"productId"`
	Price     float64   `json:"price"`
	Bucket    time.Time `json:"bucket"`
}

// Selectors names the DOM hooks the pipeline queries. Defaults match the
// storefront's current markup and can be overridden from configuration.
type Selectors struct {
	ProductCard   string
	ProductAnchor string
	PriceDollars  string
	PriceCents    string
	ProductImage  string
	ImageAttr     string
	SelectedStore string
	StoreIDAttr   string
	NextPage      string
	NextPageAttr  string
}

// DefaultSelectors returns the selector set for the live storefront.
func DefaultSelectors() Selectors {
	return Selectors{
		ProductCard:   "div.fs-product-card",
		ProductAnchor: "a",
		PriceDollars:  ".fs-price-lockup__dollars",
		PriceCents:    "span.fs-price-lockup__cents",
		ProductImage:  "div div",
		ImageAttr:     "data-src-s",
		SelectedStore: "span.fs-selected-store__name",
		StoreIDAttr:   "data-store-id",
		NextPage:      ".fs-pagination__btn--next",
		NextPageAttr:  "href",
	}
}

func (s CategoryStats) add(other CategoryStats) CategoryStats {
	s.Pages += other.Pages
	s.Cards += other.Cards
	s.PricePoints += other.PricePoints
	s.NewProducts += other.NewProducts
	s.Skipped += other.Skipped
	return s
}
