package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/jacobarthurs/pgreview/internal/llm"
	"github.com/jacobarthurs/pgreview/internal/secret"
)

// Kind classifies why a check failed.
type Kind string

const (
	KindDecrypt   Kind = "decryption"
	KindAuth      Kind = "authentication"
	KindRateLimit Kind = "rate_limit"
	KindNetwork   Kind = "network"
	KindNotFound  Kind = "model_not_found"
	KindAPI       Kind = "api"
	KindCanceled  Kind = "canceled"
	KindUnknown   Kind = "unknown"
)

var tags = map[Kind]string{
	KindDecrypt:   "[decryption error]",
	KindAuth:      "[authentication error]",
	KindRateLimit: "[rate limit error]",
	KindNetwork:   "[network error]",
	KindNotFound:  "[model not found]",
	KindAPI:       "[API error]",
	KindCanceled:  "[canceled]",
}

var keywords = []struct {
	kind  Kind
	words []string
}{
	{KindAuth, []string{"unauthorized", "authentication", "api key", "invalid key"}},
	{KindRateLimit, []string{"rate limit", "too many requests", "quota"}},
	{KindNetwork, []string{"connection", "network", "timeout", "no such host", "dial"}},
	{KindNotFound, []string{"not found", "404"}},
	{KindAPI, []string{"api"}},
}

// Categorize returns the failure kind of err and the message stored on the
// failed record. Typed errors are checked before the error text.
func Categorize(err error) (Kind, string) {
	kind := classify(err)
	tag, ok := tags[kind]
	if !ok {
		tag = "[" + typeName(err) + "]"
	}
	return kind, tag + " " + err.Error()
}

func classify(err error) Kind {
	msg := strings.ToLower(err.Error())

	if errors.Is(err, secret.ErrDecrypt) || strings.Contains(msg, "decrypt") {
		return KindDecrypt
	}

	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return KindAuth
		case http.StatusTooManyRequests:
			return KindRateLimit
		case http.StatusNotFound:
			return KindNotFound
		default:
			return KindAPI
		}
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return KindNetwork
	}

	for _, k := range keywords {
		for _, w := range k.words {
			if strings.Contains(msg, w) {
				return k.kind
			}
		}
	}
	return KindUnknown
}

// typeName is the type of the innermost wrapped error, without the pointer
// marker.
func typeName(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}
