package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/mealplanner/backend/internal/catalog"
	"github.com/pageza/mealplanner/backend/internal/router"
	"github.com/pageza/mealplanner/backend/internal/service"
	"github.com/pageza/mealplanner/backend/internal/solver"
	"github.com/pageza/mealplanner/backend/internal/testhelpers"
	"github.com/pageza/mealplanner/backend/internal/types"
)

// fakeCompletions answers every chat completion with a hard bulgogi
// exclusion and a soft low-spice preference.
func fakeCompletions(t *testing.T) *httptest.Server {
	t.Helper()
	content := "```json\n" + `{"constraints":[
		{"intent":"EXCLUDE_ITEM","strength":"hard","food_item":"bulgogi"},
		{"intent":"PREFERENCE","strength":"soft","preference_type":"spice_level","spice_level":"low"}
	]}` + "\n```"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupAPI(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db := testhelpers.SetupSQLite(t)
	store := catalog.NewStore(db)
	require.NoError(t, store.Upsert(ctx, testhelpers.SampleFoodItems()))
	cat, err := store.Load(ctx)
	require.NoError(t, err)

	parser, err := service.NewLLMConstraintParser(service.ParserConfig{
		APIKey:    "test-key",
		URL:       fakeCompletions(t).URL,
		Model:     "test-model",
		FoodNames: cat.Names(),
	}, nil, nil)
	require.NoError(t, err)

	svc := service.NewRecommendationService(cat, solver.NewBranchAndBound(0), parser, service.Options{
		SolverTimeout:       5 * time.Second,
		MaxConcurrentSolves: 2,
	}, nil)

	srv := httptest.NewServer(router.SetupRouter(router.Dependencies{
		Service:     svc,
		DB:          db,
		CORSOrigins: []string{"*"},
		Version:     "integration",
	}))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestRecommendationFlow(t *testing.T) {
	srv := setupAPI(t)
	profile := testhelpers.ReferenceProfile()

	t.Run("free text through the parser", func(t *testing.T) {
		resp, body := post(t, srv.URL+"/api/v1/recommend", map[string]any{
			"profile": profile,
			"text":    "no bulgogi, nothing too spicy",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var out types.RecommendationResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, types.ResponseSuccess, out.Status)
		require.NotNil(t, out.Totals)

		var kcal float64
		mains := 0
		for _, it := range out.Items {
			assert.NotEqual(t, "bulgogi", it.Name)
			kcal += it.Kcal
			if it.Category.IsMainDish() {
				mains++
			}
		}
		assert.Equal(t, 1, mains)
		assert.InDelta(t, kcal, out.Totals.Kcal, 0.05)
	})

	t.Run("parse endpoint", func(t *testing.T) {
		resp, body := post(t, srv.URL+"/api/v1/constraints/parse", map[string]string{"text": "no bulgogi"})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var out struct {
			Constraints []service.ParsedConstraint `json:"constraints"`
		}
		require.NoError(t, json.Unmarshal(body, &out))
		require.Len(t, out.Constraints, 2)
		for _, c := range out.Constraints {
			assert.True(t, c.Valid, c.Error)
		}
	})

	t.Run("infeasible hard food group", func(t *testing.T) {
		resp, body := post(t, srv.URL+"/api/v1/recommend", map[string]any{
			"profile": profile,
			"constraints": []map[string]any{
				{"intent": "PREFERENCE", "strength": "hard", "preference_type": "food_group", "food_group": "meat"},
			},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var out types.RecommendationResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, types.ResponseFail, out.Status)
		assert.Empty(t, out.Items)
	})

	t.Run("contradictory hard constraints", func(t *testing.T) {
		resp, body := post(t, srv.URL+"/api/v1/recommend", map[string]any{
			"profile": profile,
			"constraints": []map[string]any{
				{"intent": "INCLUDE_ITEM", "strength": "hard", "food_item": "bibimbap"},
				{"intent": "INCLUDE_ITEM", "strength": "hard", "food_item": "cold noodles"},
			},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var out types.RecommendationResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, types.ResponseError, out.Status)
		assert.NotEmpty(t, out.Message)
	})

	t.Run("health with database", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestCatalogFromKoreanCSV(t *testing.T) {
	ctx := context.Background()
	const data = "음식명,종류,칼로리,단백질,지방,탄수화물,나트륨,당\n" +
		"비빔밥,밥류,550,18,14,85,300,6\n"

	items, err := catalog.ReadCSV(strings.NewReader(data))
	require.NoError(t, err)

	store := catalog.NewStore(testhelpers.SetupSQLite(t))
	require.NoError(t, store.Upsert(ctx, items))

	cat, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, cat.Len())
	assert.Equal(t, types.CategoryRice, cat.Item(0).Category)
}
