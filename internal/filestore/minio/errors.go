package minio

import (
	"context"
	"errors"
	"net/http"

	miniogo "github.com/minio/minio-go/v7"

	"github.com/koustreak/dbmeta/internal/errs"
)

// statusKinds is consulted before codeKinds; S3 gateways do not always set
// a meaningful status.
var statusKinds = map[int]errs.ErrKind{
	http.StatusNotFound:           errs.ErrKindNotFound,
	http.StatusForbidden:          errs.ErrKindPermissionDenied,
	http.StatusUnauthorized:       errs.ErrKindPermissionDenied,
	http.StatusBadRequest:         errs.ErrKindInvalidInput,
	http.StatusServiceUnavailable: errs.ErrKindTimeout,
}

var codeKinds = map[string]errs.ErrKind{
	"NoSuchBucket":          errs.ErrKindNotFound,
	"NoSuchKey":             errs.ErrKindNotFound,
	"AccessDenied":          errs.ErrKindPermissionDenied,
	"InvalidAccessKeyId":    errs.ErrKindPermissionDenied,
	"SignatureDoesNotMatch": errs.ErrKindPermissionDenied,
	"InvalidBucketName":     errs.ErrKindInvalidInput,
	"InvalidObjectName":     errs.ErrKindInvalidInput,
	"RequestTimeout":        errs.ErrKindTimeout,
	"SlowDown":              errs.ErrKindTimeout,
}

// mapError wraps a MinIO SDK error as *errs.Error. Unrecognized failures
// are treated as the store being unreachable.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	var resp miniogo.ErrorResponse
	if errors.As(err, &resp) {
		if kind, ok := statusKinds[resp.StatusCode]; ok {
			return errs.Wrap(kind, msg, err)
		}
		if kind, ok := codeKinds[resp.Code]; ok {
			return errs.Wrap(kind, msg, err)
		}
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
