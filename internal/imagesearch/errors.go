package imagesearch

import "errors"

var (
	// ErrMissingAPIKey is returned when the image search API key is not configured
	ErrMissingAPIKey = errors.New("image search API key is required")

	// ErrRateLimited is returned when the provider rejects the request with 429
	ErrRateLimited = errors.New("image search rate limit exceeded")

	// ErrNoResults is returned when neither the title query nor the fallback query found a photo
	ErrNoResults = errors.New("no images found")
)
