// Package blob selects and re-exports the artifact storage backends used to
// publish generated roadmap documents.
package blob

import (
	"context"
	"fmt"
	"os"

	"roadmapcore/internal/blob/core"
	"roadmapcore/internal/infra/blob/fs"
	memorystore "roadmapcore/internal/infra/blob/memory"
	infras3 "roadmapcore/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures an artifact write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored artifact metadata.
	Info = core.Info
	// Store is the interface for artifact storage backends.
	Store = core.Store
	// S3Config configures the S3 backend explicitly.
	S3Config = infras3.Config
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported indicates an operation isn't supported by a driver.
var ErrUnsupported = core.ErrUnsupported

// NewFilesystem constructs a filesystem-backed store rooted at the given path.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// NewMemory returns an in-memory store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewS3 constructs an S3-backed store from explicit configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return infras3.New(ctx, cfg) }

// NewMockS3ForTests exposes the in-memory S3 mock for cross-package tests.
func NewMockS3ForTests() Store { return infras3.NewMockForTests() }

// Open selects a Store implementation using environment variables.
//
//	ROADMAPCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	ROADMAPCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	(S3 specific variables documented in the s3 package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("ROADMAPCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("ROADMAPCORE_BLOB_FS_ROOT"))
	case DriverS3:
		return infras3.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
