package services

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// responseStatus is the outcome class of an upstream HTTP response.
type responseStatus int

const (
	statusOK responseStatus = iota
	statusNotFound
	statusRateLimited
	statusUnauthorized
	statusUnrecoverable
)

func (s responseStatus) String() string {
	switch s {
	case statusOK:
		return "ok"
	case statusNotFound:
		return "not found"
	case statusRateLimited:
		return "rate limited"
	case statusUnauthorized:
		return "unauthorized"
	default:
		return "unrecoverable"
	}
}

// classifyStatus maps an HTTP status code to its outcome class.
//
// 400, 403, 5xx and any other non-2xx code not listed are unrecoverable.
func classifyStatus(code int) responseStatus {
	switch {
	case code >= 200 && code < 300:
		return statusOK
	case code == http.StatusNotFound:
		return statusNotFound
	case code == http.StatusTooManyRequests:
		return statusRateLimited
	case code == http.StatusUnauthorized:
		return statusUnauthorized
	default:
		return statusUnrecoverable
	}
}

// retryAfter parses the Retry-After header (delay seconds or HTTP date), falling back to def.
func retryAfter(h http.Header, now time.Time, def time.Duration) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return def
}
