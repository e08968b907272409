package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ReadyCheck is a named dependency check reported by /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

type readyResponse struct {
	Status  string            `json:"status"`
	Failing map[string]string `json:"failing,omitempty"`
}

// NewBaseMux returns a ServeMux with /healthz and /readyz wired. /healthz
// answers as long as the process serves; /readyz runs every dependency
// check with a short per-check timeout and reports each failure by name so
// an operator can tell a dead database from a dead broker without logs.
func NewBaseMux(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		failing := map[string]string{}
		for _, check := range checks {
			if check.Check == nil {
				continue
			}
			name := check.Name
			if name == "" {
				name = "dependency"
			}
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			if err := check.Check(ctx); err != nil {
				failing[name] = err.Error()
			}
			cancel()
		}

		resp := readyResponse{Status: "ready"}
		code := http.StatusOK
		if len(failing) > 0 {
			resp = readyResponse{Status: "unavailable", Failing: failing}
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}
