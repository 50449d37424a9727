// Package heroes provides access to the external hero catalog API, the
// read-only pool the draft validates picks and bans against.
package heroes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/draftarena/backend/models"
)

var ErrCatalogUnavailable = errors.New("hero catalog unavailable")

type Catalog interface {
	List(ctx context.Context) ([]models.Hero, error)
}

type httpCatalog struct {
	baseURL string
	client  *http.Client
}

func NewHTTPCatalog(baseURL string) Catalog {
	return &httpCatalog{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpCatalog) List(ctx context.Context) ([]models.Hero, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/heroes", nil)
	if err != nil {
		return nil, fmt.Errorf("build hero catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrCatalogUnavailable, resp.StatusCode)
	}

	var heroes []models.Hero
	if err := json.NewDecoder(resp.Body).Decode(&heroes); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrCatalogUnavailable, err)
	}
	if len(heroes) == 0 {
		return nil, fmt.Errorf("%w: empty hero pool", ErrCatalogUnavailable)
	}
	return heroes, nil
}
