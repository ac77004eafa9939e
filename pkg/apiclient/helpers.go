package apiclient

import (
	"context"
	"fmt"
	"net/url"
)

// getResource performs a GET request to the given path and decodes the
// envelope data into a value of type T.
//
// Example:
//
//	s, err := getResource[Session](ctx, c, "/api/v1/sessions/7f3c")
func getResource[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var result T
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// resourcePath builds a resource path, escaping each argument as a path
// segment.
func resourcePath(format string, args ...string) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(a)
	}
	return fmt.Sprintf(format, escaped...)
}
