package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kiwiprice/pak-crawler/internal/scraper"
)

// ProductStore upserts canonical product records keyed by product id.
//
// Expected schema:
//
//	CREATE TABLE products (
//	    product_id TEXT PRIMARY KEY,
//	    name TEXT NOT NULL,
//	    brand TEXT,
//	    description TEXT,
//	    unit_of_measure TEXT,
//	    price DOUBLE PRECISION,
//	    non_loyalty_card_price DOUBLE PRECISION,
//	    sku TEXT,
//	    comparative_price_per_unit DOUBLE PRECISION,
//	    comparative_unit_quantity DOUBLE PRECISION,
//	    comparative_unit_quantity_uom TEXT,
//	    sale_type TEXT,
//	    ingredient_statement TEXT,
//	    allergen_statement TEXT,
//	    net_content_uom TEXT,
//	    display_name TEXT,
//	    categories JSONB,
//	    availability JSONB,
//	    category_trees JSONB,
//	    images JSONB,
//	    created_at TIMESTAMPTZ DEFAULT NOW(),
//	    updated_at TIMESTAMPTZ DEFAULT NOW()
//	);
type ProductStore struct {
	pool querier
}

// NewProductStore connects a pool and wraps it in a ProductStore.
func NewProductStore(ctx context.Context, cfg Config) (*ProductStore, error) {
	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &ProductStore{pool: pool}, nil
}

// NewProductStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewProductStoreWithPool(pool querier) (*ProductStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ProductStore{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *ProductStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const upsertProductSQL = `
INSERT INTO products (
	product_id, name, brand, description, unit_of_measure,
	price, non_loyalty_card_price, sku,
	comparative_price_per_unit, comparative_unit_quantity, comparative_unit_quantity_uom,
	sale_type, ingredient_statement, allergen_statement, net_content_uom, display_name,
	categories, availability, category_trees, images
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20
)
ON CONFLICT (product_id) DO UPDATE SET
	name = EXCLUDED.name,
	brand = EXCLUDED.brand,
	description = EXCLUDED.description,
	unit_of_measure = EXCLUDED.unit_of_measure,
	price = EXCLUDED.price,
	non_loyalty_card_price = EXCLUDED.non_loyalty_card_price,
	sku = EXCLUDED.sku,
	comparative_price_per_unit = EXCLUDED.comparative_price_per_unit,
	comparative_unit_quantity = EXCLUDED.comparative_unit_quantity,
	comparative_unit_quantity_uom = EXCLUDED.comparative_unit_quantity_uom,
	sale_type = EXCLUDED.sale_type,
	ingredient_statement = EXCLUDED.ingredient_statement,
	allergen_statement = EXCLUDED.allergen_statement,
	net_content_uom = EXCLUDED.net_content_uom,
	display_name = EXCLUDED.display_name,
	categories = EXCLUDED.categories,
	availability = EXCLUDED.availability,
	category_trees = EXCLUDED.category_trees,
	images = EXCLUDED.images,
	updated_at = NOW()`

// UpsertProduct inserts or replaces one product record.
func (s *ProductStore) UpsertProduct(ctx context.Context, product scraper.Product) error {
	if product.ProductID == "" {
		return fmt.Errorf("product id is required")
	}
	categories, err := json.Marshal(product.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	availability, err := json.Marshal(product.Availability)
	if err != nil {
		return fmt.Errorf("marshal availability: %w", err)
	}
	trees, err := json.Marshal(product.CategoryTrees)
	if err != nil {
		return fmt.Errorf("marshal category trees: %w", err)
	}
	images, err := json.Marshal(product.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	args := []any{
		product.ProductID,
		product.Name,
		product.Brand,
		product.Description,
		product.UnitOfMeasure,
		product.Price,
		product.NonLoyaltyCardPrice,
		product.SKU,
		product.ComparativePricePerUnit,
		product.ComparativeUnitQuantity,
		product.ComparativeUnitQuantityUoM,
		product.SaleType,
		product.IngredientStatement,
		product.AllergenStatement,
		product.NetContentUOM,
		product.DisplayName,
		categories,
		availability,
		trees,
		images,
	}
	if _, err := s.pool.Exec(ctx, upsertProductSQL, args...); err != nil {
		return fmt.Errorf("upsert product %s: %w", product.ProductID, err)
	}
	return nil
}

const getProductSQL = `
SELECT
	product_id, name, brand, description, unit_of_measure,
	price, non_loyalty_card_price, sku,
	comparative_price_per_unit, comparative_unit_quantity, comparative_unit_quantity_uom,
	sale_type, ingredient_statement, allergen_statement, net_content_uom, display_name,
	categories, availability, category_trees, images
FROM products
WHERE product_id = $1`

// GetProduct returns the stored product or nil when the id is unknown.
func (s *ProductStore) GetProduct(ctx context.Context, productID string) (*scraper.Product, error) {
	var (
		product      scraper.Product
		categories   []byte
		availability []byte
		trees        []byte
		images       []byte
	)
	err := s.pool.QueryRow(ctx, getProductSQL, productID).Scan(
		&product.ProductID,
		&product.Name,
		&product.Brand,
		&product.Description,
		&product.UnitOfMeasure,
		&product.Price,
		&product.NonLoyaltyCardPrice,
		&product.SKU,
		&product.ComparativePricePerUnit,
		&product.ComparativeUnitQuantity,
		&product.ComparativeUnitQuantityUoM,
		&product.SaleType,
		&product.IngredientStatement,
		&product.AllergenStatement,
		&product.NetContentUOM,
		&product.DisplayName,
		&categories,
		&availability,
		&trees,
		&images,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}

	if err := unmarshalInto(categories, &product.Categories); err != nil {
		return nil, fmt.Errorf("decode categories for %s: %w", productID, err)
	}
	if err := unmarshalInto(availability, &product.Availability); err != nil {
		return nil, fmt.Errorf("decode availability for %s: %w", productID, err)
	}
	if err := unmarshalInto(trees, &product.CategoryTrees); err != nil {
		return nil, fmt.Errorf("decode category trees for %s: %w", productID, err)
	}
	if err := unmarshalInto(images, &product.Images); err != nil {
		return nil, fmt.Errorf("decode images for %s: %w", productID, err)
	}
	return &product, nil
}

func unmarshalInto(data []byte, target any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}
