package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the service confirmed it has no vendor for the address.
	ErrNotFound = errors.New("vendor not found")

	// ErrRateLimited means the service rejected the request with 429.
	ErrRateLimited = errors.New("vendor lookup rate limited")

	// ErrEmptyResponse means a 200 answer carried no organization. Unlike
	// ErrNotFound it does not confirm the address is unknown.
	ErrEmptyResponse = errors.New("vendor lookup returned no organization")
)

// StatusError is returned for any unexpected HTTP status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected vendor lookup response: %s", e.Status)
}

// InterceptedError is returned when an HTML page is served instead of a
// lookup result, e.g. by a captive portal or proxy.
type InterceptedError struct {
	Title string
}

func (e *InterceptedError) Error() string {
	if e.Title == "" {
		return "vendor lookup intercepted by an HTML page"
	}
	return fmt.Sprintf("vendor lookup intercepted by an HTML page: %q", e.Title)
}
