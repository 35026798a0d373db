package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/recipes/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/recipes/{id}", "404"))
	for _, id := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/recipes/"+id, nil))
		require.Equal(t, http.StatusNotFound, rr.Code)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/recipes/{id}", "404"))
	assert.Equal(t, 2.0, after-before)
}

func TestDomainCounters(t *testing.T) {
	created := testutil.ToFloat64(ratingsCreated)
	conflicts := testutil.ToFloat64(ratingConflicts)
	swept := testutil.ToFloat64(tokensSwept)

	Ratings.RatingCreated()
	Ratings.RatingConflict()
	RecordTokensSwept(3)
	RecordTokensSwept(0)

	assert.Equal(t, created+1, testutil.ToFloat64(ratingsCreated))
	assert.Equal(t, conflicts+1, testutil.ToFloat64(ratingConflicts))
	assert.Equal(t, swept+3, testutil.ToFloat64(tokensSwept))
}

func TestHandlerExposesNamespace(t *testing.T) {
	Ratings.RatingCreated()
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "recipehub_ratings_created_total"))
}
