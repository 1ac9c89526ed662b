//go:build ignore

// Backend is a stand-in for the AI backend used when running the gateway
// locally. It echoes what it received so forwarding can be checked by hand.
//
// Usage:
//
//	go run scripts/backend.go -port 8000
//	AI_BACKEND_URL=http://localhost:8000 go run ./cmd
//
// Every response carries a fresh xid so repeated calls are distinguishable.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/rs/xid"
)

// Echo describes the request the backend saw.
type Echo struct {
	ID             string `json:"id"`
	Method         string `json:"method"`
	Path           string `json:"path"`
	Query          string `json:"query,omitempty"`
	Host           string `json:"host"`
	SkipBrowserHdr string `json:"ngrok_skip_browser_warning,omitempty"`
	Body           string `json:"body,omitempty"`
}

// Hospital is a canned emergency-hospitals entry.
type Hospital struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance_km"`
}

func echo(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	log.Printf("request: method=%s uri=%s host=%s", r.Method, r.RequestURI, r.Host)

	writeJSON(w, http.StatusOK, Echo{
		ID:             xid.New().String(),
		Method:         r.Method,
		Path:           r.URL.Path,
		Query:          r.URL.RawQuery,
		Host:           r.Host,
		SkipBrowserHdr: r.Header.Get("ngrok-skip-browser-warning"),
		Body:           string(body),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func main() {
	port := flag.Int("port", 8000, "port to listen on")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/", echo)
	mux.HandleFunc("/ambulance/", echo)
	mux.HandleFunc("/emergency-hospitals", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id": xid.New().String(),
			"hospitals": []Hospital{
				{Name: "City General", Distance: 1.2},
				{Name: "St. Mary's", Distance: 3.4},
			},
		})
	})

	// the gateway's reachability probe hits the base URL
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting stub AI backend on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
