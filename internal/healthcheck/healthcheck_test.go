package healthcheck_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"

	"github.com/angeloszaimis/frontend-gateway/internal/healthcheck"
	"github.com/angeloszaimis/frontend-gateway/internal/metrics"
	"github.com/angeloszaimis/frontend-gateway/internal/upstream"
	"github.com/angeloszaimis/frontend-gateway/pkg/logger"
)

var _ = Describe("Healthcheck", func() {
	var (
		status int32
		stub   *httptest.Server
		up     *upstream.Upstream
	)

	BeforeEach(func() {
		atomic.StoreInt32(&status, http.StatusOK)
		stub = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(int(atomic.LoadInt32(&status)))
		}))
		up = upstream.New(mustParseURL(stub.URL), logger.Discard())
	})

	AfterEach(func() {
		stub.Close()
	})

	Describe("Probe", func() {
		It("should treat a 404 as reachable", func() {
			atomic.StoreInt32(&status, http.StatusNotFound)
			Expect(healthcheck.Probe(context.Background(), http.DefaultClient, stub.URL)).To(BeTrue())
		})

		It("should treat a 503 as unreachable", func() {
			atomic.StoreInt32(&status, http.StatusServiceUnavailable)
			Expect(healthcheck.Probe(context.Background(), http.DefaultClient, stub.URL)).To(BeFalse())
		})

		It("should treat a refused connection as unreachable", func() {
			stub.Close()
			Expect(healthcheck.Probe(context.Background(), http.DefaultClient, stub.URL)).To(BeFalse())
		})
	})

	Describe("HealthCheck", func() {
		It("should mark a failing upstream as down and recover", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			atomic.StoreInt32(&status, http.StatusBadGateway)
			go healthcheck.HealthCheck(ctx, up, 20*time.Millisecond, logger.Discard(), nil)

			Eventually(up.IsHealthy).Should(BeFalse())

			atomic.StoreInt32(&status, http.StatusOK)
			Eventually(up.IsHealthy).Should(BeTrue())
		})

		It("should report the first result to the collector", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			collector := metrics.NewCollector(10, logger.Discard())
			collector.Start(ctx)

			go healthcheck.HealthCheck(ctx, up, 20*time.Millisecond, logger.Discard(), collector)

			Eventually(func() *bool {
				return collector.Snapshot().UpstreamUp
			}).Should(PointTo(BeTrue()))
		})

		It("should stop when context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())

			done := make(chan struct{})
			go func() {
				defer close(done)
				healthcheck.HealthCheck(ctx, up, 20*time.Millisecond, logger.Discard(), nil)
			}()

			cancel()
			Eventually(done).Should(BeClosed())
		})
	})
})

func mustParseURL(rawURL string) *url.URL {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return u
}
