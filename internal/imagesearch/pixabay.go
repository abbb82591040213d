// Package imagesearch finds stock cover photos for generated articles.
package imagesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Image is a single stock photo hit.
type Image struct {
	URL          string `json:"imageUrl"`
	PreviewURL   string `json:"previewUrl"`
	Photographer string `json:"photographer"`
	PageURL      string `json:"pixabayUrl"`
}

// Searcher is implemented by image providers.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Image, error)
}

// PixabayClient queries the Pixabay photo API.
type PixabayClient struct {
	apiKey     string
	baseURL    string
	minWidth   int
	perPage    int
	httpClient *http.Client
}

// NewPixabayClient creates a client. Zero values fall back to Pixabay's public endpoint,
// a 1200px minimum width and 10 results per page.
func NewPixabayClient(apiKey, baseURL string, minWidth, perPage int, timeout time.Duration) *PixabayClient {
	if baseURL == "" {
		baseURL = "https://pixabay.com/api/"
	}
	if minWidth <= 0 {
		minWidth = 1200
	}
	if perPage < 3 {
		perPage = 10
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PixabayClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		minWidth:   minWidth,
		perPage:    perPage,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type pixabayResponse struct {
	Total     int          `json:"total"`
	TotalHits int          `json:"totalHits"`
	Hits      []pixabayHit `json:"hits"`
}

type pixabayHit struct {
	ID            int    `json:"id"`
	PageURL       string `json:"pageURL"`
	Tags          string `json:"tags"`
	PreviewURL    string `json:"previewURL"`
	WebformatURL  string `json:"webformatURL"`
	LargeImageURL string `json:"largeImageURL"`
	ImageWidth    int    `json:"imageWidth"`
	User          string `json:"user"`
}

// Search returns horizontal photos matching query, best match first.
func (c *PixabayClient) Search(ctx context.Context, query string) ([]Image, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", query)
	params.Set("image_type", "photo")
	params.Set("orientation", "horizontal")
	params.Set("min_width", strconv.Itoa(c.minWidth))
	params.Set("per_page", strconv.Itoa(c.perPage))
	params.Set("safesearch", "true")
	params.Set("order", "popular")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pixabay API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result pixabayResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	images := make([]Image, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if hit.LargeImageURL == "" {
			continue
		}
		preview := hit.WebformatURL
		if preview == "" {
			preview = hit.PreviewURL
		}
		images = append(images, Image{
			URL:          hit.LargeImageURL,
			PreviewURL:   preview,
			Photographer: hit.User,
			PageURL:      hit.PageURL,
		})
	}
	return images, nil
}
