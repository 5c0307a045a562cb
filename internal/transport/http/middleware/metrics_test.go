package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-auth-nosql/internal/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Post("/reset-password/{token}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	before := testutil.CollectAndCount(observability.HTTPRequestDuration)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/reset-password/secret-token", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, before+1, testutil.CollectAndCount(observability.HTTPRequestDuration))
}
