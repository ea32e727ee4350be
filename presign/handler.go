package presign

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/input-output-hk/catalyst-forge-libs/upload/errors"
)

// Handler serves a Presigner over HTTP.
type Handler struct {
	presigner Presigner
	logger    *slog.Logger
}

// NewHandler returns a Handler for p. A nil logger disables logging.
func NewHandler(p Presigner, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{presigner: p, logger: logger}
}

// Register mounts the handler at Route.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST(Route, h.Presign)
}

// Presign handles POST Route with a JSON Request body.
func (h *Handler) Presign(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.presigner.Presign(c.Request.Context(), &req)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "failed to presign upload"
		if errors.IsInvalidInput(err) || stderrors.Is(err, errors.ErrInvalidObjectKey) {
			status = http.StatusBadRequest
			msg = err.Error()
		}
		h.logger.Warn("presign request failed",
			slog.String("file", req.FileName),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, result)
}

// NewRouter returns a gin engine serving h with CORS enabled for origins.
// No origins allows every origin.
func NewRouter(h *Handler, origins ...string) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(origins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = []string{http.MethodPost, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	engine.Use(cors.New(corsConfig))

	h.Register(engine)
	return engine
}
