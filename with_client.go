package moderately

import (
	"context"
	"fmt"
)

// WithClient manages client lifecycle with automatic cleanup.
//
// This helper creates a client with the provided options, executes the
// callback function, and ensures proper cleanup via Close() when done.
//
// If the callback returns an error, it is returned to the caller.
// If Close() fails, a warning is logged but does not override the callback's
// error.
//
// Example usage:
//
//	err := moderately.WithClient(ctx, func(c *moderately.Client) error {
//	    dataset, err := c.Datasets.Create(ctx, &moderately.DatasetCreateParams{Name: "sales"})
//	    if err != nil {
//	        return err
//	    }
//	    _, err = c.Datasets.UploadData(ctx, dataset.DatasetID, &moderately.DataUploadParams{Path: "sales.csv"})
//	    return err
//	},
//	    moderately.WithLogger(log),
//	)
func WithClient(ctx context.Context, fn func(*Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	client, err := New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			client.log.Warn("failed to close client", "error", closeErr)
		}
	}()

	return fn(client)
}
