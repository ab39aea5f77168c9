// Package client fetches JSON:API documents over HTTP and materializes them.
//
// # Overview
//
// [Client] wraps an http.Client with the behaviour every fetch needs:
//
//   - JSON:API media type headers and a fresh X-Request-ID per request
//   - response caching through a [cache.Cache] with a TTL
//   - retry with exponential backoff for network failures and 5xx responses
//   - de-duplication of concurrent fetches of the same URL
//
// # Usage
//
//	c, err := client.New("https://api.example.com/v1",
//	    client.WithCache(fileCache, time.Hour),
//	    client.WithHeaders(map[string]string{"Authorization": "Bearer " + token}),
//	)
//	resp, err := c.FetchCollection(ctx, "/articles?include=author", ArticleType, false)
//
// # Errors
//
// Status codes map onto codes from package errors: 404 is NOT_FOUND, 429 is a
// [errors.RateLimitedError], 5xx and transport failures are NETWORK_ERROR
// (retried), and any other non-2xx status is API_ERROR carrying the titles of
// the JSON:API error objects in the body.
package client
