// Package health serves liveness and readiness probes.
package health

import (
	"io"
	"net/http"
)

func respond(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, body)
}

// Healthz reports liveness unconditionally.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, "ok\n")
}

// Readyz reports readiness. The optimizer is pure and needs no warm state,
// so a process that reached serving is ready.
func Readyz(w http.ResponseWriter, _ *http.Request) {
	respond(w, "ready\n")
}
