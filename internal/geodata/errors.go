package geodata

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Category is the normalized failure taxonomy for upstream geodata sources.
type Category string

const (
	CategoryTimeout   Category = "timeout"
	CategoryBadStatus Category = "bad_status"
	CategoryMalformed Category = "malformed"
	CategoryNoResult  Category = "no_result"
	CategoryTransport Category = "transport"
)

// UpstreamError wraps a failed call to an external source.
type UpstreamError struct {
	Category   Category
	Source     string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s [%s]: status %d: %v", e.Source, e.Category, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Source, e.Category, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ErrNoResult is returned when the source answered but had nothing for the query.
var ErrNoResult = errors.New("no result")

// CategoryOf classifies any error returned from this package. Context deadline
// errors count as timeouts even when they were not wrapped.
func CategoryOf(err error) Category {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return CategoryTimeout
	}
	return CategoryTransport
}

func upstream(source string, category Category, status int, err error) *UpstreamError {
	return &UpstreamError{Category: category, Source: source, StatusCode: status, Err: err}
}
