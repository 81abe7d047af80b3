package rest

import (
	"errors"
	"net/http"

	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/dfryer1193/goplaces/shared/cloudinary"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ProxyDelete signs and forwards asset deletes so that browsers never hold the API secret.
func (h *handlers) ProxyDelete(c *gin.Context) {
	req := &cloudinary.DeleteRequest{}
	if err := c.ShouldBindJSON(req); err != nil || len(req.PublicIDs) == 0 {
		c.JSON(http.StatusBadRequest, cloudinary.DeleteResponse{Error: "publicIds required"})
		return
	}

	results, err := h.opts.Signer.Delete(c.Request.Context(), req.PublicIDs)
	if err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			log.Error().Err(err).Msg("Delete proxy is not configured")
			c.JSON(http.StatusInternalServerError, cloudinary.DeleteResponse{
				Error:   "Cloudinary is not configured",
				Code:    cloudinary.ConfigErrorCode,
				Missing: cfgErr.Missing,
			})
			return
		}
		log.Error().Err(err).Msg("Delete proxy failed")
		c.JSON(http.StatusInternalServerError, cloudinary.DeleteResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, cloudinary.DeleteResponse{Results: results})
}
