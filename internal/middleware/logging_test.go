package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"
)

func TestRequestLogger(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   []string
	}{
		{"ok", http.StatusOK, []string{"level=info", "status=200", "bytes=2"}},
		{"implicit ok", 0, []string{"level=info", "status=200"}},
		{"client error", http.StatusNotFound, []string{"level=info", "status=404"}},
		{"server error", http.StatusBadGateway, []string{"level=error", "status=502"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := chimiddleware.RequestID(RequestLogger(log.NewLogfmtLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.status != 0 {
					w.WriteHeader(tc.status)
				}
				_, _ = w.Write([]byte("ok"))
			})))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/deposits", nil))

			line := buf.String()
			for _, want := range append(tc.want, "method=POST", "path=/deposits", "request_id=", "took=") {
				if !strings.Contains(line, want) {
					t.Fatalf("missing %s in log line: %s", want, line)
				}
			}
		})
	}
}
