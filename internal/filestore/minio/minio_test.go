package minio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"github.com/koustreak/dbmeta/internal/errs"
	"github.com/koustreak/dbmeta/internal/filestore"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind errs.ErrKind
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"canceled", context.Canceled, errs.ErrKindTimeout},
		{"404", miniogo.ErrorResponse{StatusCode: http.StatusNotFound}, errs.ErrKindNotFound},
		{"403", miniogo.ErrorResponse{StatusCode: http.StatusForbidden}, errs.ErrKindPermissionDenied},
		{"400", miniogo.ErrorResponse{StatusCode: http.StatusBadRequest}, errs.ErrKindInvalidInput},
		{"no such key", miniogo.ErrorResponse{Code: "NoSuchKey"}, errs.ErrKindNotFound},
		{"access denied", miniogo.ErrorResponse{Code: "AccessDenied"}, errs.ErrKindPermissionDenied},
		{"slow down", miniogo.ErrorResponse{Code: "SlowDown"}, errs.ErrKindTimeout},
		{"503", miniogo.ErrorResponse{StatusCode: http.StatusServiceUnavailable, Code: "SlowDown"}, errs.ErrKindTimeout},
		{"status wins over code", miniogo.ErrorResponse{StatusCode: http.StatusForbidden, Code: "NoSuchKey"}, errs.ErrKindPermissionDenied},
		{"unknown code", miniogo.ErrorResponse{StatusCode: http.StatusConflict, Code: "BucketNotEmpty"}, errs.ErrKindConnectionFailed},
		{"wrapped", fmt.Errorf("get: %w", miniogo.ErrorResponse{Code: "NoSuchBucket"}), errs.ErrKindNotFound},
		{"other", errors.New("connection refused"), errs.ErrKindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err, "op failed")
			assert.Equal(t, tt.kind, err.Kind)
			assert.Equal(t, tt.err, err.Cause)
		})
	}

	assert.Nil(t, mapError(nil, "noop"))
}

func TestToInfo(t *testing.T) {
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	info := toInfo(miniogo.ObjectInfo{Key: "cache/ab12", Size: 42, LastModified: modified})
	assert.Equal(t, filestore.ObjectInfo{Key: "cache/ab12", Size: 42, LastModified: modified}, info)

	assert.True(t, toInfo(miniogo.ObjectInfo{Key: "cache/", Size: -1}).IsDir)
}
