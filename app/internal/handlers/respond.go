package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// serverError logs err and returns a generic 500.
func serverError(w http.ResponseWriter, what string, err error) {
	log.Printf("Error loading %s: %v", what, err)
	writeError(w, http.StatusInternalServerError, "server error")
}

// queryInt reads an integer parameter, falling back to def when absent or
// malformed and clamping to [min, max].
func queryInt(r *http.Request, key string, def, min, max int) int {
	n := def
	if q := r.URL.Query().Get(key); q != "" {
		if v, err := strconv.Atoi(q); err == nil {
			n = v
		}
	}
	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	return n
}

// methods rejects requests whose method is not in allowed.
func methods(allowed ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			for _, m := range allowed {
				if r.Method == m {
					next(w, r)
					return
				}
			}
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}
