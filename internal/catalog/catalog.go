// Package catalog loads the two inputs a crawl run needs: the chain's store
// list from its public API and the category menu from a cached next-data
// dump on disk.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/kiwiprice/pak-crawler/internal/scraper"
)

const storeListPath = "/CommonApi/Store/GetStoreList"

type storeListResponse struct {
	Stores []scraper.Store `json:"stores"`
}

// FetchStores retrieves every physical store from the chain's store API.
func FetchStores(ctx context.Context, client *http.Client, baseURL string) ([]scraper.Store, error) {
	endpoint := strings.TrimRight(baseURL, "/") + storeListPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build store list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch store list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch store list: unexpected status %d", resp.StatusCode)
	}

	var payload storeListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode store list: %w", err)
	}
	if len(payload.Stores) == 0 {
		return nil, fmt.Errorf("store list is empty")
	}
	return payload.Stores, nil
}

// categoriesDump mirrors the shape of a saved next-data page: the menu lives
// under pageProps.allMenuItems and only the top-level entries matter.
type categoriesDump struct {
	PageProps struct {
		AllMenuItems []menuItem `json:"allMenuItems"`
	} `json:"pageProps"`
}

type menuItem struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LoadCategories reads a categories dump from path and returns one Category
// per top-level menu entry, with URLs resolved against baseURL.
func LoadCategories(path, baseURL string) ([]scraper.Category, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}

	var dump categoriesDump
	if err := json.Unmarshal(raw, &dump); err != nil {
		return nil, fmt.Errorf("parse categories file %s: %w", path, err)
	}

	base := strings.TrimRight(baseURL, "/")
	categories := make([]scraper.Category, 0, len(dump.PageProps.AllMenuItems))
	for _, item := range dump.PageProps.AllMenuItems {
		if item.Name == "" || item.URL == "" {
			continue
		}
		target := item.URL
		if strings.HasPrefix(target, "/") {
			target = base + target
		}
		categories = append(categories, scraper.Category{Name: item.Name, URL: target})
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("categories file %s has no menu entries", path)
	}
	return categories, nil
}
