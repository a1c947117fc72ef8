package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/pageza/mealplanner/backend/internal/testhelpers"
	"github.com/pageza/mealplanner/backend/internal/testhelpers/mocks"
)

func TestSetupRouterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := new(mocks.MockRecommendationService)
	svc.On("Catalog").Return(testhelpers.SampleCatalog(t))

	r := SetupRouter(Dependencies{Service: svc, CORSOrigins: []string{"*"}})

	routes := map[string]bool{}
	for _, ri := range r.Routes() {
		routes[ri.Method+" "+ri.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /api/v1/recommend",
		"POST /api/v1/recommend",
		"POST /api/v1/constraints/parse",
		"GET /api/v1/targets",
		"GET /api/v1/catalog",
	} {
		assert.True(t, routes[want], want)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestSetupRouterRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := new(mocks.MockRecommendationService)
	svc.On("Catalog").Return(testhelpers.SampleCatalog(t))

	r := SetupRouter(Dependencies{
		Service:            svc,
		Redis:              testhelpers.SetupRedis(t),
		RateLimitPerMinute: 1,
	})

	// The catalog is not rate limited.
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/recommend?height=x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/recommend?height=x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
