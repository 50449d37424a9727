package heroes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPCatalogList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/heroes" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"name":"Axe","role":"initiator"},{"id":2,"name":"Lina","role":"carry"}]`))
	}))
	defer srv.Close()

	catalog := NewHTTPCatalog(srv.URL)
	heroes, err := catalog.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(heroes) != 2 {
		t.Fatalf("want 2 heroes, got %d", len(heroes))
	}
	if heroes[0].ID != 1 || heroes[0].Name != "Axe" {
		t.Fatalf("unexpected first hero: %+v", heroes[0])
	}
}

func TestHTTPCatalogUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	catalog := NewHTTPCatalog(srv.URL)
	_, err := catalog.List(context.Background())
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("want ErrCatalogUnavailable, got %v", err)
	}
}

func TestHTTPCatalogEmptyPool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	catalog := NewHTTPCatalog(srv.URL)
	_, err := catalog.List(context.Background())
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("want ErrCatalogUnavailable for empty pool, got %v", err)
	}
}
