package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchStores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/CommonApi/Store/GetStoreList", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stores":[
			{"id":"0f82d3fe","name":"Pak'nSave Albany","latitude":-36.73,"longitude":174.70},
			{"id":"21a1b57e","name":"Pak'nSave Riccarton","latitude":-43.53,"longitude":172.60}
		]}`))
	}))
	defer srv.Close()

	stores, err := FetchStores(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.Equal(t, "Pak'nSave Albany", stores[0].Name)
	assert.Equal(t, "21a1b57e", stores[1].ID)
	assert.InDelta(t, -36.73, stores[0].Latitude, 0.001)
}

func TestFetchStoresEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"stores":[]}`))
	}))
	defer srv.Close()

	_, err := FetchStores(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestFetchStoresBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := FetchStores(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestLoadCategories(t *testing.T) {
	dump := `{"pageProps":{"allMenuItems":[
		{"name":"Fruit & Vegetables","url":"/shop/category/fruit-veges"},
		{"name":"Pantry","url":"https://www.paknsave.co.nz/shop/category/pantry"},
		{"name":"","url":"/shop/category/broken"}
	]}}`
	path := filepath.Join(t.TempDir(), "categories.json")
	require.NoError(t, os.WriteFile(path, []byte(dump), 0o644))

	categories, err := LoadCategories(path, "https://www.paknsave.co.nz/")
	require.NoError(t, err)
	require.Len(t, categories, 2)

	assert.Equal(t, "Fruit & Vegetables", categories[0].Name)
	assert.Equal(t, "https://www.paknsave.co.nz/shop/category/fruit-veges", categories[0].URL)
	assert.Equal(t, "https://www.paknsave.co.nz/shop/category/pantry", categories[1].URL)
}

func TestLoadCategoriesMissingFile(t *testing.T) {
	_, err := LoadCategories(filepath.Join(t.TempDir(), "nope.json"), "https://example.com")
	require.Error(t, err)
}

func TestLoadCategoriesNoEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pageProps":{"allMenuItems":[]}}`), 0o644))

	_, err := LoadCategories(path, "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no menu entries")
}
