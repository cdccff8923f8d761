package filestore

import (
	"io"
	"time"
)

// ObjectInfo describes a stored object or, when IsDir is set, a common key
// prefix returned by a non-recursive listing.
type ObjectInfo struct {
	Key          string
	Size         int64 // -1 if unknown
	LastModified time.Time
	IsDir        bool
}

// Object is an open object. Close must be called once reading is done.
type Object interface {
	io.ReadCloser
	Info() *ObjectInfo
}

// ListOptions filters ListObjects. A zero Limit lists everything.
type ListOptions struct {
	Prefix    string
	Recursive bool
	Limit     int
}
