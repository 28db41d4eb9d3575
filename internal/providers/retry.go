package providers

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const tlsHint = "Set RELEASE_LLM_CA_BUNDLE (or SSL_CERT_FILE) to a trusted CA bundle. For local dry-run only, use RELEASE_LLM_INSECURE_SKIP_VERIFY=1."

// statusError is a non-2xx answer from the hand-rolled /responses path.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, e.message)
}

// contentError means the endpoint answered but the answer held no usable
// JSON object.
type contentError struct {
	reason string
}

func (e *contentError) Error() string { return e.reason }

// httpStatus extracts the HTTP status and a short message from any transport
// error shape, reporting false when err is not an HTTP status failure.
func httpStatus(err error) (int, string, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, shorten(apiErr.Message), true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return reqErr.HTTPStatusCode, shorten(msg), true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status, se.message, true
	}
	return 0, "", false
}

// retryableStatus reports whether another endpoint or auth variant may
// still succeed after status.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusMethodNotAllowed:
		return true
	}
	return status >= 500
}

func isCertificateError(err error) bool {
	var (
		unknownAuth x509.UnknownAuthorityError
		invalid     x509.CertificateInvalidError
		hostname    x509.HostnameError
		verify      *tls.CertificateVerificationError
	)
	return errors.As(err, &unknownAuth) ||
		errors.As(err, &invalid) ||
		errors.As(err, &hostname) ||
		errors.As(err, &verify) ||
		strings.Contains(err.Error(), "certificate signed by unknown authority")
}

func shorten(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 400 {
		return strings.TrimRight(s[:400], " \n") + "..."
	}
	return s
}

// backoffDelay returns the pause before attempt (1-based retries): base,
// 2*base, 4*base, ...
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt <= 0 {
		return 0
	}
	return base << uint(attempt-1)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
