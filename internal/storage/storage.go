// Package storage stages run artifacts on local disk and optionally
// publishes them. It defines the Storage interface and implementations
// for local disk and S3-backed publishing.
package storage

import "context"

// Storage defines the interface for staging artifacts produced by one
// narration run and optionally publishing them.
type Storage interface {
	// RunDir creates a uniquely named scratch directory for one run and
	// returns its path. Each call starts a new run.
	RunDir() (string, error)

	// Keep promotes a scratch artifact into the output root under its
	// base name and returns the final path.
	Keep(path string) (string, error)

	// Publish uploads the given artifacts to the remote store and returns
	// their public URLs in the same order.
	// Returns ErrS3NotConfigured if no remote store is configured.
	Publish(ctx context.Context, paths []string) (urls []string, err error)
}
