//go:build ignore

// Smoketest checks a running gateway end to end: health, entry page, each
// proxied prefix and the 404/403 paths. It exits non-zero on the first
// mismatch.
//
// Usage:
//
//	go run scripts/smoketest.go -url http://localhost:3001
//	go run scripts/smoketest.go -url http://localhost:3001 -concurrency 20 -requests 500
//
// With -requests it also drives concurrent traffic at /api/model-info and
// prints latency percentiles.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type check struct {
	method string
	path   string
	want   int
}

var checks = []check{
	{http.MethodGet, "/health", http.StatusOK},
	{http.MethodGet, "/", http.StatusOK},
	{http.MethodGet, "/api/model-info?verbose=1", http.StatusOK},
	{http.MethodPost, "/emergency-hospitals", http.StatusOK},
	{http.MethodGet, "/ambulance/tracking", http.StatusOK},
	{http.MethodGet, "/definitely-missing.js", http.StatusNotFound},
	{http.MethodGet, "/../server.js", http.StatusForbidden},
}

func main() {
	var (
		base        = flag.String("url", "http://localhost:3001", "Gateway base URL")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 0, "Requests for the load phase (0 skips it)")
		timeoutSec  = flag.Int("timeout", 10, "Per-request timeout in seconds")
	)
	flag.Parse()

	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	failed := false
	for _, c := range checks {
		status, body, err := do(client, c.method, *base+c.path)
		switch {
		case err != nil:
			fmt.Printf("FAIL %s %s: %v\n", c.method, c.path, err)
			failed = true
		case status != c.want:
			fmt.Printf("FAIL %s %s: got %d want %d\n", c.method, c.path, status, c.want)
			failed = true
		default:
			fmt.Printf("ok   %s %s -> %d\n", c.method, c.path, status)
		}

		if c.path == "/health" && err == nil {
			var health struct {
				Status    string `json:"status"`
				Timestamp string `json:"timestamp"`
			}
			if json.Unmarshal(body, &health) != nil || health.Status != "OK" {
				fmt.Printf("FAIL /health body: %s\n", body)
				failed = true
			}
		}
	}

	if *requests > 0 {
		load(client, *base+"/api/model-info", *concurrency, *requests)
	}

	if failed {
		os.Exit(1)
	}
}

func do(client *http.Client, method, url string) (int, []byte, error) {
	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(`{"lat":52.52,"lon":13.40}`)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}

func load(client *http.Client, url string, concurrency, requests int) {
	jobs := make(chan int)
	var wg sync.WaitGroup
	var failures int32

	var latencies []time.Duration
	var latMu sync.Mutex

	start := time.Now()

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				t := time.Now()
				status, _, err := do(client, http.MethodGet, url)
				dur := time.Since(t)

				if err != nil || status >= 300 {
					atomic.AddInt32(&failures, 1)
				}

				latMu.Lock()
				latencies = append(latencies, dur)
				latMu.Unlock()
			}
		}()
	}

	for i := 0; i < requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p := func(pct float64) time.Duration {
		return latencies[int(float64(len(latencies)-1)*pct)]
	}

	fmt.Println("\n--- Load Summary ---")
	fmt.Printf("Target: %s\n", url)
	fmt.Printf("Requests: %d  Concurrency: %d  Failures: %d\n", requests, concurrency, failures)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", elapsed, float64(requests)/elapsed.Seconds())
	fmt.Printf("p50=%v p90=%v p95=%v p99=%v\n", p(0.50), p(0.90), p(0.95), p(0.99))
}
