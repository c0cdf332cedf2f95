package ptpimg

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrFetchFailed          = errors.New("fetch failed")
	ErrUploadFailed         = errors.New("upload failed")
	ErrTimeout              = errors.New("timeout")
)

// bodySnippetLen caps how much of a response body ends up in an error message
const bodySnippetLen = 512

// InvalidInputError means an item is neither an existing file nor an http URL
type InvalidInputError struct {
	Item string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("not an existing file or image URL: %s", e.Item)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// UnsupportedMediaTypeError means the resolved MIME type is missing or not image/*
type UnsupportedMediaTypeError struct {
	Source   string // file path or URL
	MIMEType string // empty when undeterminable
}

func (e *UnsupportedMediaTypeError) Error() string {
	if e.MIMEType == "" {
		return fmt.Sprintf("unknown image file type for %s", e.Source)
	}
	return fmt.Sprintf("unknown image file type %s for %s", e.MIMEType, e.Source)
}

func (e *UnsupportedMediaTypeError) Is(target error) bool { return target == ErrUnsupportedMediaType }

// FetchError is returned when an image URL answers with a non-2xx status
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("cannot fetch url %s with status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// UploadError covers a non-200 upload response and an undecodable 200 body.
// StatusCode is always set; Err only for decode failures.
type UploadError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload failed decoding body: %v\n%q", e.Err, snippet(e.Body))
	}
	return fmt.Sprintf("upload failed with status %d:\n%s", e.StatusCode, snippet(e.Body))
}

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) Is(target error) bool { return target == ErrUploadFailed }

// TimeoutError reports a network call that ran past the configured timeout
type TimeoutError struct {
	Op  string // "fetch" or "upload"
	URL string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s timed out: %v", e.Op, e.URL, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// classifyNetErr turns deadline failures into a TimeoutError and wraps anything else
func classifyNetErr(op, url string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TimeoutError{Op: op, URL: url, Err: err}
	}
	return fmt.Errorf("%s %s: %w", op, url, err)
}

func snippet(body []byte) string {
	if len(body) > bodySnippetLen {
		return string(body[:bodySnippetLen]) + "..."
	}
	return string(body)
}
