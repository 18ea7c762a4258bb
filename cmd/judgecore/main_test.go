package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/npuboj/judgecore/types"
	"github.com/npuboj/judgecore/worker"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestTokenAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(tokenAuth("secret"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		header string
		status int
	}{
		{"Bearer secret", http.StatusOK},
		{"Bearer wrong", http.StatusUnauthorized},
		{"secret", http.StatusUnauthorized},
		{"", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		recorder := httptest.NewRecorder()
		r.ServeHTTP(recorder, req)
		if recorder.Code != tc.status {
			t.Errorf("Authorization %q: status %d, want %d", tc.header, recorder.Code, tc.status)
		}
	}
}

func TestObserve(t *testing.T) {
	sandbox := counterValue(t, sandboxErrorCount)
	success := counterValue(t, outcomeCount.WithLabelValues(types.CodeSuccess.String()))
	pass := counterValue(t, verdictCount.WithLabelValues(types.VerdictPass.String()))

	outcomeObserve(types.Outcome{Code: types.CodeSuccess})
	outcomeObserve(types.Outcome{Code: types.CodeSandboxError})
	execObserve(worker.Response{Verdicts: []types.Verdict{types.VerdictPass, types.VerdictPass}})

	if d := counterValue(t, sandboxErrorCount) - sandbox; d != 1 {
		t.Errorf("sandbox error count +%v, want +1", d)
	}
	if d := counterValue(t, outcomeCount.WithLabelValues(types.CodeSuccess.String())) - success; d != 1 {
		t.Errorf("success count +%v, want +1", d)
	}
	if d := counterValue(t, verdictCount.WithLabelValues(types.VerdictPass.String())) - pass; d != 2 {
		t.Errorf("pass count +%v, want +2", d)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}
