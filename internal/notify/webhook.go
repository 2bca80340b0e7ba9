// Package notify delivers feedback lifecycle events to an external webhook
// receiver (an automation workflow engine). Each event is POSTed as JSON to
// <base>/<event>. Deliveries are traced through an otelhttp transport and
// retried with exponential backoff; 4xx responses are not retried.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Event names double as the URL path segment.
type Event string

const (
	EventSubmitted   Event = "feedback-submitted"
	EventResolved    Event = "feedback-resolved"
	EventSLABreached Event = "sla-breached"
)

const userAgent = "CitizenFeedback/1.0"

// ErrDisabled is returned by Send when no base URL is configured.
var ErrDisabled = errors.New("webhook disabled")

var deliveries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Webhook deliveries by event and outcome.",
	},
	[]string{"event", "outcome"},
)

func init() {
	prometheus.MustRegister(deliveries)
}

// Options tune delivery.
type Options struct {
	Timeout         time.Duration
	MaxRetries      int
	InitialInterval time.Duration
	Client          *http.Client
}

// Webhook posts events to BaseURL. A nil or zero Webhook is disabled.
type Webhook struct {
	baseURL         string
	client          *http.Client
	maxTries        uint
	initialInterval time.Duration
}

// New builds a Webhook for baseURL. An empty baseURL yields a disabled
// Webhook whose Send returns ErrDisabled.
func New(baseURL string, opts Options) *Webhook {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Webhook{
		baseURL:         strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:          client,
		maxTries:        uint(opts.MaxRetries) + 1,
		initialInterval: opts.InitialInterval,
	}
}

// Enabled reports whether a base URL is configured.
func (w *Webhook) Enabled() bool { return w != nil && w.baseURL != "" }

// URL resolves the endpoint for ev. A base that already ends in the event
// segment is used as-is.
func (w *Webhook) URL(ev Event) string {
	if !w.Enabled() {
		return ""
	}
	seg := "/" + string(ev)
	if strings.HasSuffix(w.baseURL, seg) {
		return w.baseURL
	}
	return w.baseURL + seg
}

// statusError carries a non-2xx response.
type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("webhook: unexpected status %d", e.code) }

// Send POSTs payload for ev, retrying transport errors and 5xx responses.
func (w *Webhook) Send(ctx context.Context, ev Event, payload any) error {
	if !w.Enabled() {
		return ErrDisabled
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: encode %s: %w", ev, err)
	}
	url := w.URL(ev)

	attempt := 0
	op := func() (int, error) {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return 0, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := w.client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp.StatusCode, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return resp.StatusCode, backoff.Permanent(&statusError{resp.StatusCode})
		default:
			return resp.StatusCode, &statusError{resp.StatusCode}
		}
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = w.initialInterval
	_, err = backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(w.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Str("event", string(ev)).Int("attempt", attempt).Dur("retry_in", next).Err(err).Msg("webhook delivery failed")
		}),
	)
	if err != nil {
		deliveries.WithLabelValues(string(ev), "failed").Inc()
		return fmt.Errorf("webhook %s: %w", ev, err)
	}
	deliveries.WithLabelValues(string(ev), "ok").Inc()
	log.Debug().Str("event", string(ev)).Int("attempt", attempt).Msg("webhook delivered")
	return nil
}
