// Package storage persists pipeline artifacts (the CSV outputs) behind a
// small driver-neutral interface.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Driver names a storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// Info describes a stored artifact.
type Info struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// Store writes and reads artifacts by key. Put overwrites an existing
// artifact so reruns replace previous outputs.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Options selects and configures a Store.
type Options struct {
	Driver    Driver
	Root      string
	Bucket    string
	Region    string
	Endpoint  string
	Prefix    string
	PathStyle bool
}

// Open constructs the Store named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverFilesystem:
		return NewFSStore(opts.Root)
	case DriverS3:
		return NewS3Store(ctx, S3Config{
			Bucket:    opts.Bucket,
			Region:    opts.Region,
			Endpoint:  opts.Endpoint,
			Prefix:    opts.Prefix,
			PathStyle: opts.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", opts.Driver)
	}
}
