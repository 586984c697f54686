// Package health serves the liveness probe. It answers on its own
// listener so probes keep working while the main HTTP port is saturated.
package health

import (
	"net/http"
)

// Handler returns the probe mux. GET /healthz answers 200 with no body.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
