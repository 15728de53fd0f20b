package observability

import (
	"net/http"
	"time"

	sentryhttpclient "github.com/getsentry/sentry-go/httpclient"
)

// WrapRoundTripper instruments outbound HTTP with sentry tracing. Trace
// headers are only propagated to the given hosts (the order API and the
// payment gateway), never to arbitrary destinations.
func WrapRoundTripper(base http.RoundTripper, propagationTargets []string) http.RoundTripper {
	return sentryhttpclient.NewSentryRoundTripper(
		base,
		sentryhttpclient.WithTracePropagationTargets(propagationTargets),
	)
}

func NewHTTPClient(timeout time.Duration, propagationTargets ...string) *http.Client {
	client := &http.Client{
		Transport: WrapRoundTripper(http.DefaultTransport, propagationTargets),
	}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return client
}
