package recommendations

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"movierec-backend/internal/shared/server/respond"
)

// timestampLayout renders millisecond UTC timestamps, e.g. 2025-01-02T03:04:05.678Z.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Handler wires HTTP handlers to the recommendation service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches recommendation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/recommend", h.recommend)
	rg.POST("/save", h.save)
	rg.GET("/movies", h.legacyMovies)
}

type recommendRequest struct {
	UserInput *string `json:"userInput"`
}

// saveRequest keeps recommendations raw so item fields go through the same
// scalar coercion as model output.
type saveRequest struct {
	UserInput       string          `json:"userInput"`
	Recommendations json.RawMessage `json:"recommendations"`
}

func (h *Handler) recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserInput == nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "userInput is required and must be a string", nil)
		return
	}

	rec, err := h.Svc.Get(c.Request.Context(), *req.UserInput)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("cacheHit", rec.Cached)

	respond.Success(c, gin.H{
		"recommendations": rec.Items,
		"timestamp":       rec.CreatedAt.UTC().Format(timestampLayout),
		"cached":          rec.Cached,
	})
}

func (h *Handler) save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "userInput and recommendations are required", nil)
		return
	}
	items, err := itemsFromJSON(req.Recommendations)
	if err != nil {
		writeError(c, err)
		return
	}

	rec, err := h.Svc.Save(c.Request.Context(), req.UserInput, items)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("recordId", rec.ID)

	respond.Success(c, gin.H{
		"message": "Recommendations saved successfully",
		"id":      rec.ID,
	})
}

// legacyMovies answers the retired GET endpoint with a pointer to its replacement.
func (h *Handler) legacyMovies(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "Query is required. Please use POST /api/recommend instead.", nil)
		return
	}
	respond.JSON(c, http.StatusMovedPermanently, gin.H{
		"message":     "This endpoint is deprecated. Please use POST /api/recommend instead.",
		"newEndpoint": "/api/recommend",
		"example": gin.H{
			"method": "POST",
			"body":   gin.H{"userInput": query},
		},
	})
}

func writeError(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "internal server error", nil)
		return
	}

	status := http.StatusInternalServerError
	var details any
	switch {
	case errors.Is(e, ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(e, ErrParse):
		details = gin.H{"rawResponse": e.Raw}
	}
	respond.Error(c, status, e.Code(), e.Error(), details)
}
