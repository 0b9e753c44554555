package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/microblog/backend/internal/models"
	"github.com/anonto42/microblog/backend/internal/repositories"
)

// MediaHandler registers uploaded files so tweets can attach them
type MediaHandler struct {
	mediaRepository repositories.MediaRepository
	log             *zap.Logger
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(mediaRepo repositories.MediaRepository, log *zap.Logger) *MediaHandler {
	return &MediaHandler{mediaRepository: mediaRepo, log: log}
}

// RegisterMediaRoutes registers media routes
func (h *MediaHandler) RegisterMediaRoutes(g *echo.Group) {
	g.POST("/medias", h.CreateMedia)
	g.GET("/medias", h.GetMedias)
}

func (h *MediaHandler) CreateMedia(c echo.Context) error {
	var req models.CreateMediaRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	media, err := h.mediaRepository.CreateMedia(c.Request().Context(), req.URL)
	if err != nil {
		return repoError(h.log, err)
	}
	return success(c, http.StatusCreated, media)
}

func (h *MediaHandler) GetMedias(c echo.Context) error {
	medias, err := h.mediaRepository.GetMedias(c.Request().Context())
	if err != nil {
		return repoError(h.log, err)
	}
	return success(c, http.StatusOK, medias)
}
