// Package reliability labels remote completion failures for logs and metrics.
// Callers still see a single remote-call error kind.
package reliability

import (
	"context"
	"errors"
	"net"
)

type Cause string

const (
	CauseNone        Cause = ""
	CauseTimeout     Cause = "timeout"
	CauseCanceled    Cause = "canceled"
	CauseRateLimited Cause = "rate_limited"
	CauseAuth        Cause = "auth"
	CauseUpstream    Cause = "upstream"
	CauseRejected    Cause = "rejected"
	CauseNetwork     Cause = "network"
	CauseUnknown     Cause = "unknown"
)

type httpStatuser interface {
	HTTPStatus() int
}

// Classify reports the most specific cause it can find in err's chain.
func Classify(err error) Cause {
	if err == nil {
		return CauseNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}
	if errors.Is(err, context.Canceled) {
		return CauseCanceled
	}
	var st httpStatuser
	if errors.As(err, &st) {
		return ClassifyHTTPStatus(st.HTTPStatus())
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CauseTimeout
		}
		return CauseNetwork
	}
	return CauseUnknown
}

// ClassifyHTTPStatus maps a provider status code onto a Cause.
func ClassifyHTTPStatus(code int) Cause {
	switch {
	case code == 429:
		return CauseRateLimited
	case code == 401 || code == 403:
		return CauseAuth
	case code == 408 || code == 504:
		return CauseTimeout
	case code >= 500:
		return CauseUpstream
	case code >= 400:
		return CauseRejected
	default:
		return CauseUnknown
	}
}
