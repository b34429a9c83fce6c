package yandex

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/liuran001/YandexMusic-Go/bot/platform"
)

// RawResponse keeps an upstream response for inspection after a failure.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// BadResponseError reports a transport failure or a response that broke the
// envelope contract: non-2xx status, missing or foreign request id, or a body
// that is not the expected JSON.
type BadResponseError struct {
	Reason   string
	Response *RawResponse
	Err      error
}

func (e *BadResponseError) Error() string {
	msg := "yandex: bad response: " + e.Reason
	if e.Response != nil && e.Response.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Response.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BadResponseError) Unwrap() error { return e.Err }

// ChallengeError reports that the upstream answered with a SmartCaptcha page.
// It must be resolved out of band, usually by refreshing the token.
type ChallengeError struct {
	Response *RawResponse
}

func (e *ChallengeError) Error() string {
	return "yandex: captcha challenge returned instead of data"
}

func (e *ChallengeError) Is(target error) bool {
	return target == platform.ErrAuthRequired
}

// APIError is an error the upstream declared in its response body.
type APIError struct {
	Name    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yandex: api error %s: %s", e.Name, e.Message)
}

// NotFoundError is an APIError for a missing entity. Resource is empty for
// the generic not-found name.
type NotFoundError struct {
	APIError
	Resource string
}

func (e *NotFoundError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("yandex: not found: %s", e.Message)
	}
	return fmt.Sprintf("yandex: %s not found: %s", e.Resource, e.Message)
}

func (e *NotFoundError) Is(target error) bool {
	return target == platform.ErrNotFound
}

// BadSignatureError reports that file-info rejected the request signature.
type BadSignatureError struct {
	Request SigningRequest
	Err     error
}

func (e *BadSignatureError) Error() string {
	return fmt.Sprintf("yandex: stream signature rejected (ts %d, message %q)", e.Request.Timestamp, e.Request.Raw.Message)
}

func (e *BadSignatureError) Unwrap() error { return e.Err }

// RegionRestrictedError reports a track that exists but carries a legal
// disclaimer and must not be served.
type RegionRestrictedError struct {
	TrackID string
	Title   string
}

func (e *RegionRestrictedError) Error() string {
	return fmt.Sprintf("yandex: track %s is restricted by a legal disclaimer", e.TrackID)
}

func (e *RegionRestrictedError) Is(target error) bool {
	return target == platform.ErrUnavailable
}

var notFoundResources = map[string]string{
	"track-not-found":    "track",
	"album-not-found":    "album",
	"playlist-not-found": "playlist",
	"not-found":          "",
}

// newAPIError converts an upstream error envelope into a typed error.
func newAPIError(name, message string) error {
	if resource, ok := notFoundResources[name]; ok {
		return &NotFoundError{APIError: APIError{Name: name, Message: message}, Resource: resource}
	}
	return &APIError{Name: name, Message: message}
}

// apiErrorOf extracts the upstream declared error from err, if any.
func apiErrorOf(err error) (*APIError, bool) {
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return &notFound.APIError, true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func badResponse(reason string, resp *RawResponse, err error) error {
	return &BadResponseError{Reason: reason, Response: resp, Err: err}
}
