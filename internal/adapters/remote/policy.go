package remote

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Class groups remote failures by how they are retried.
type Class int

const (
	ClassNone Class = iota
	ClassQuotaPerMinute
	ClassQuotaPerDay
	ClassQuotaUnspecified
	ClassServer
	ClassOther
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassQuotaPerMinute:
		return "quota_per_minute"
	case ClassQuotaPerDay:
		return "quota_per_day"
	case ClassQuotaUnspecified:
		return "quota"
	case ClassServer:
		return "server"
	case ClassOther:
		return "other"
	case ClassFatal:
		return "fatal"
	default:
		return "none"
	}
}

// Policy defaults.
const (
	defaultQuotaCap  = 30 * time.Minute
	defaultServerCap = time.Minute
	defaultErrorCap  = 2 * time.Minute

	perMinuteBase  = 60 * time.Second
	unspecifiedMin = 10 * time.Second
	serverStep     = 5 * time.Second
	otherStep      = 10 * time.Second
	maxDoublings   = 8
)

var rateLimitReasons = map[string]bool{
	"ratelimitexceeded":     true,
	"userratelimitexceeded": true,
	"quotaexceeded":         true,
	"dailylimitexceeded":    true,
	"resource_exhausted":    true,
}

// Policy maps a failure class and attempt number to the next wait.
type Policy struct {
	QuotaCap  time.Duration
	ServerCap time.Duration
	ErrorCap  time.Duration
}

// DefaultPolicy returns the stock ceilings.
func DefaultPolicy() Policy {
	return Policy{QuotaCap: defaultQuotaCap, ServerCap: defaultServerCap, ErrorCap: defaultErrorCap}
}

// Next returns how long to wait before attempt+1, or false to give up.
// attempt counts from 1.
func (p Policy) Next(class Class, attempt int) (time.Duration, bool) {
	if attempt < 1 {
		attempt = 1
	}
	switch class {
	case ClassQuotaPerMinute:
		return capAt(perMinuteBase+time.Duration(attempt)*perMinuteBase, p.QuotaCap), true
	case ClassQuotaPerDay:
		return p.QuotaCap, true
	case ClassQuotaUnspecified:
		shift := attempt - 1
		if shift > maxDoublings {
			shift = maxDoublings
		}
		return capAt(unspecifiedMin*time.Duration(1<<shift), p.QuotaCap), true
	case ClassServer:
		return capAt(serverStep*time.Duration(attempt), p.ServerCap), true
	case ClassOther:
		return capAt(otherStep*time.Duration(attempt), p.ErrorCap), true
	default:
		return 0, false
	}
}

func capAt(d, ceiling time.Duration) time.Duration {
	if ceiling > 0 && d > ceiling {
		return ceiling
	}
	return d
}

// Classify inspects err and returns its class plus any server-requested
// Retry-After delay.
func Classify(err error) (Class, time.Duration) {
	if err == nil {
		return ClassNone, 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassFatal, 0
	}
	var ferr *FatalError
	if errors.As(err, &ferr) {
		return ClassFatal, 0
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return ClassFatal, 0
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		// Transport failures: resets, timeouts, DNS.
		return ClassServer, 0
	}
	after := retryAfter(gerr.Header)
	if isRateLimited(gerr) {
		return quotaKind(gerr), after
	}
	switch {
	case gerr.Code >= http.StatusInternalServerError:
		return ClassServer, after
	case gerr.Code == http.StatusUnauthorized,
		gerr.Code == http.StatusForbidden,
		gerr.Code == http.StatusNotFound:
		return ClassFatal, 0
	case gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range"):
		return ClassFatal, 0
	}
	return ClassOther, after
}

func isRateLimited(gerr *googleapi.Error) bool {
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	for _, item := range gerr.Errors {
		if rateLimitReasons[strings.ToLower(item.Reason)] {
			return true
		}
	}
	if gerr.Code == http.StatusForbidden {
		msg := strings.ToLower(gerr.Message + " " + gerr.Body)
		return strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota")
	}
	return false
}

func quotaKind(gerr *googleapi.Error) Class {
	text := strings.ToLower(gerr.Message + " " + gerr.Body)
	for _, item := range gerr.Errors {
		text += " " + strings.ToLower(item.Reason+" "+item.Message)
	}
	compact := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(text)
	switch {
	case strings.Contains(compact, "perminute"):
		return ClassQuotaPerMinute
	case strings.Contains(compact, "perday"), strings.Contains(compact, "daily"):
		return ClassQuotaPerDay
	default:
		return ClassQuotaUnspecified
	}
}

func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
