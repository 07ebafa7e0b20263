// File: internal/generate/handler.go
package generate

import (
	"errors"
	"strings"
	"sync"

	"jazz_picker_backend/internal/common"
	"jazz_picker_backend/internal/music"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var registerOnce sync.Once

// RegisterValidators adds the "generatekey" tag to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("generatekey", func(fl validator.FieldLevel) bool {
				return music.ValidGenerateKey(strings.ToLower(strings.TrimSpace(fl.Field().String())))
			})
		}
	})
}

// Handler struct holds dependencies for generate handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new generate handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	RegisterValidators()
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the routes for PDF generation.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/v2/generate", h.generate)
}

func (h *Handler) generate(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Generate: Invalid request body", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			details := common.FormatValidationErrors(ve)
			apiErr := common.NewValidationAPIError(details)
			// Surface the first problem the way clients display it.
			for _, field := range []string{"song", "key"} {
				if msg, ok := details[field]; ok {
					apiErr.Message = msg
					break
				}
			}
			common.RespondWithError(c, apiErr)
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithMessage("Request body must be JSON"))
		return
	}

	resp, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondJSON(c, resp)
}
