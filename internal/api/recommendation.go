package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/mealplanner/backend/internal/logger"
	"github.com/pageza/mealplanner/backend/internal/middleware"
	"github.com/pageza/mealplanner/backend/internal/service"
	"github.com/pageza/mealplanner/backend/internal/solver"
	"github.com/pageza/mealplanner/backend/internal/types"
)

// ParseRequest is the body of POST /constraints/parse.
type ParseRequest struct {
	Text string `json:"text" binding:"required"`
}

// RecommendationHandler serves meal recommendations, targets and the catalog.
type RecommendationHandler struct {
	svc service.IRecommendationService
	log *logger.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler instance
func NewRecommendationHandler(svc service.IRecommendationService, log *logger.Logger) *RecommendationHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RecommendationHandler{svc: svc, log: log.WithComponent("api")}
}

// RegisterRoutes registers the recommendation routes. limit guards the
// endpoints that run the solver or the parser and may be nil.
func (h *RecommendationHandler) RegisterRoutes(router *gin.RouterGroup, limit gin.HandlerFunc) {
	guarded := []gin.HandlerFunc{}
	if limit != nil {
		guarded = append(guarded, limit)
	}

	router.GET("/recommend", append(guarded, h.RecommendFromQuery)...)
	router.POST("/recommend", append(guarded, h.Recommend)...)
	router.POST("/constraints/parse", append(guarded, h.ParseConstraints)...)
	router.GET("/targets", h.Targets)
	router.GET("/catalog", h.ListCatalog)
}

// RecommendFromQuery handles GET /recommend with the profile in the query
// string and no constraints.
func (h *RecommendationHandler) RecommendFromQuery(c *gin.Context) {
	var profile types.Profile
	if err := c.ShouldBindQuery(&profile); err != nil {
		h.badRequest(c, err)
		return
	}
	h.recommend(c, service.RecommendRequest{Profile: profile})
}

// Recommend handles POST /recommend.
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req service.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	h.recommend(c, req)
}

func (h *RecommendationHandler) recommend(c *gin.Context, req service.RecommendRequest) {
	sol, err := h.svc.Recommend(c.Request.Context(), req)
	if err != nil && !errors.Is(err, solver.ErrInfeasible) {
		_ = c.Error(err)
	}
	c.JSON(statusFor(err), service.NewRecommendationResponse(sol, err))
}

// ParseConstraints handles POST /constraints/parse.
func (h *RecommendationHandler) ParseConstraints(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	parsed, err := h.svc.ParseConstraints(c.Request.Context(), req.Text)
	if err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), gin.H{"status": types.ResponseError, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": types.ResponseSuccess, "constraints": parsed})
}

// Targets handles GET /targets.
func (h *RecommendationHandler) Targets(c *gin.Context) {
	var profile types.Profile
	if err := c.ShouldBindQuery(&profile); err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := h.svc.Targets(profile)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"status": types.ResponseError, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListCatalog handles GET /catalog with an optional category filter.
func (h *RecommendationHandler) ListCatalog(c *gin.Context) {
	cat := h.svc.Catalog()

	if raw := c.Query("category"); raw != "" {
		category, err := types.ParseCategory(raw)
		if err != nil {
			h.badRequest(c, err)
			return
		}
		items := cat.ByCategory(category)
		c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
		return
	}

	items := cat.Items()
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

func (h *RecommendationHandler) badRequest(c *gin.Context, err error) {
	h.log.Debug("invalid request", "error", err, "request_id", middleware.GetRequestID(c))
	c.JSON(http.StatusBadRequest, gin.H{"status": types.ResponseError, "message": err.Error()})
}

// statusFor maps a service outcome to an HTTP status. Infeasibility is a
// valid answer and is reported with 200.
func statusFor(err error) int {
	switch {
	case err == nil, errors.Is(err, solver.ErrInfeasible):
		return http.StatusOK
	case service.IsInputError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
