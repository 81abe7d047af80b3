package rest

import (
	"errors"
	"net/http"

	"github.com/dfryer1193/goplaces/api"
	"github.com/dfryer1193/goplaces/internal/events"
	"github.com/dfryer1193/goplaces/internal/metrics"
	"github.com/dfryer1193/goplaces/places/application"
	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/dfryer1193/goplaces/places/geo"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const defaultMaxUploadBytes = 32 << 20

type Options struct {
	// Signer backs the delete proxy endpoint. The route is not registered when nil.
	Signer         domain.AssetDeleter
	Nearby         geo.NearbyOptions
	MaxUploadBytes int64
}

type handlers struct {
	places *application.PlaceService
	hub    *events.Hub
	opts   Options
}

func NewApi(router *gin.Engine, places *application.PlaceService, hub *events.Hub, opts Options) {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	h := &handlers{places: places, hub: hub, opts: opts}

	placesV1 := router.Group("places/v1")
	{
		placesV1.GET("/", h.SearchPlaces)
		placesV1.GET("/:placeId", h.GetPlace)
		placesV1.GET("/:placeId/nearby", h.GetNearby)
	}

	adminV1 := router.Group("admin/v1")
	{
		adminV1.POST("/places", h.CreatePlace)
		adminV1.DELETE("/places/:placeId", h.DeletePlace)
		adminV1.POST("/places/:placeId/sessions", h.OpenSession)

		adminV1.GET("/sessions/:sessionId", h.GetSession)
		adminV1.DELETE("/sessions/:sessionId", h.DiscardSession)
		adminV1.POST("/sessions/:sessionId/images", h.UploadImages)
		adminV1.DELETE("/sessions/:sessionId/images", h.RemoveImage)
		adminV1.DELETE("/sessions/:sessionId/tasks", h.ClearTasks)
		adminV1.POST("/sessions/:sessionId/save", h.SaveSession)
		adminV1.GET("/sessions/:sessionId/events", h.SessionEvents)
	}

	if opts.Signer != nil {
		router.POST("/api/cloudinary/delete", h.ProxyDelete)
	}

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// writeError maps service errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	var cfgErr *domain.ConfigError
	var recErr *domain.RecordStoreError

	status := http.StatusInternalServerError
	body := api.Error{Error: err.Error()}

	switch {
	case errors.As(err, &cfgErr):
		body.Missing = cfgErr.Missing
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, application.ErrImageNotInSession):
		status = http.StatusNotFound
	case errors.As(err, &recErr):
		status = http.StatusBadGateway
	case errors.Is(err, application.ErrInvalidPlace):
		status = http.StatusBadRequest
	case errors.Is(err, application.ErrUploadsInFlight), errors.Is(err, application.ErrSessionClosing):
		status = http.StatusConflict
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Int("status", status).Msg("Request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, api.Error{Error: msg})
}
