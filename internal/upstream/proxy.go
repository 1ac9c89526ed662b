package upstream

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"
)

// SkipBrowserWarningHeader is injected on every proxied request so tunnels
// such as ngrok hand the request to the backend instead of an interstitial.
const SkipBrowserWarningHeader = "ngrok-skip-browser-warning"

const ewmaAlpha = 0.2

// forwardedHeaders are dropped by httputil.ReverseProxy in Rewrite mode.
// The gateway passes the caller's values through unchanged.
var forwardedHeaders = []string{"Forwarded", "X-Forwarded-For", "X-Forwarded-Host", "X-Forwarded-Proto"}

// Upstream is the backend service, with in-flight and latency tracking.
type Upstream struct {
	url    *url.URL
	proxy  *httputil.ReverseProxy
	logger *slog.Logger

	mutex            sync.Mutex
	isHealthy        bool
	inFlight         int
	ewmaResponseTime time.Duration
	hasEWMA          bool
}

// Stats is a point-in-time view of the upstream for the admin endpoint.
type Stats struct {
	URL          string        `json:"url"`
	Healthy      bool          `json:"healthy"`
	InFlight     int           `json:"in_flight"`
	EWMAResponse time.Duration `json:"ewma_response"`
}

// New creates an Upstream for target. The upstream starts out healthy.
func New(target *url.URL, logger *slog.Logger) *Upstream {
	u := &Upstream{
		url:       target,
		logger:    logger.With(slog.String("upstream", target.String())),
		isHealthy: true,
	}

	u.proxy = &httputil.ReverseProxy{
		Rewrite:      u.rewrite,
		Transport:    newTransport(),
		ErrorHandler: u.handleError,
	}

	return u
}

func newTransport() *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: true, // nolint:gosec -- backend often runs behind self-signed or tunnel certificates
	}
	// Encoded bodies pass through as the upstream sent them.
	transport.DisableCompression = true
	return transport
}

func (u *Upstream) rewrite(pr *httputil.ProxyRequest) {
	// ReverseProxy strips query parameters it cannot parse; forward the raw
	// query as the caller sent it.
	pr.Out.URL.RawQuery = pr.In.URL.RawQuery
	pr.SetURL(u.url)

	for _, name := range forwardedHeaders {
		if values, ok := pr.In.Header[name]; ok {
			pr.Out.Header[name] = append([]string(nil), values...)
		}
	}

	pr.Out.Header.Set(SkipBrowserWarningHeader, "true")
}

func (u *Upstream) handleError(w http.ResponseWriter, r *http.Request, err error) {
	u.logger.Warn("Upstream request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("err", err))
	w.WriteHeader(http.StatusBadGateway)
}

// ServeHTTP proxies r to the upstream.
func (u *Upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.incrementInFlight()
	defer u.decrementInFlight()

	start := time.Now()
	u.proxy.ServeHTTP(w, r)
	u.RecordResponse(time.Since(start))
}

// URL returns the upstream base URL.
func (u *Upstream) URL() *url.URL {
	return u.url
}

// InFlight returns the number of requests currently being proxied.
func (u *Upstream) InFlight() int {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.inFlight
}

func (u *Upstream) incrementInFlight() {
	u.mutex.Lock()
	u.inFlight++
	u.mutex.Unlock()
}

func (u *Upstream) decrementInFlight() {
	u.mutex.Lock()
	if u.inFlight > 0 {
		u.inFlight--
	}
	u.mutex.Unlock()
}

// IsHealthy reports the last probe result.
func (u *Upstream) IsHealthy() bool {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.isHealthy
}

// SetHealthy records a probe result.
// Returns true if the status changed, false if it was already in that state.
func (u *Upstream) SetHealthy(healthy bool) (changed bool) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if u.isHealthy == healthy {
		return false
	}

	u.isHealthy = healthy
	return true
}

// RecordResponse updates the exponentially weighted moving average (EWMA)
// response time using the latest request duration.
func (u *Upstream) RecordResponse(duration time.Duration) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if !u.hasEWMA {
		u.ewmaResponseTime = duration
		u.hasEWMA = true
		return
	}
	//ewma = (1 - α) * ewma + α * latest
	u.ewmaResponseTime = time.Duration((1-ewmaAlpha)*float64(u.ewmaResponseTime) + ewmaAlpha*float64(duration))
}

// EWMATime returns the exponentially weighted moving average response time.
// Returns 0 if no responses have been recorded yet.
func (u *Upstream) EWMATime() time.Duration {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if !u.hasEWMA {
		return 0
	}

	return u.ewmaResponseTime
}

// Stats returns a snapshot of the upstream's state.
func (u *Upstream) Stats() Stats {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	return Stats{
		URL:          u.url.String(),
		Healthy:      u.isHealthy,
		InFlight:     u.inFlight,
		EWMAResponse: u.ewmaResponseTime,
	}
}
