package rest

import (
	"net/http"
	"strconv"

	"github.com/dfryer1193/goplaces/api"
	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/gin-gonic/gin"
)

func (h *handlers) SearchPlaces(c *gin.Context) {
	filter := domain.PlaceFilter{
		Province: c.Query("province"),
		Query:    c.Query("q"),
	}

	places, err := h.places.SearchPlaces(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPlaces(places, h.places.Codec()))
}

func (h *handlers) GetPlace(c *gin.Context) {
	p, err := h.places.GetPlace(c.Request.Context(), c.Param("placeId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPlace(p, h.places.Codec()))
}

func (h *handlers) GetNearby(c *gin.Context) {
	opts := h.opts.Nearby

	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		opts.Limit = limit
	}
	if v := c.Query("radius"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			badRequest(c, "radius must be a positive number of kilometres")
			return
		}
		opts.MaxRadiusKm = radius
	}

	results, err := h.places.NearbyPlaces(c.Request.Context(), c.Param("placeId"), opts)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toNearby(results, h.places.Codec()))
}

func (h *handlers) CreatePlace(c *gin.Context) {
	proto := &api.PlaceProto{}
	if err := c.ShouldBindJSON(proto); err != nil {
		badRequest(c, err.Error())
		return
	}

	p, err := h.places.CreatePlace(c.Request.Context(), fromProto(proto))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toPlace(p, h.places.Codec()))
}

func (h *handlers) DeletePlace(c *gin.Context) {
	outcomes, err := h.places.DeletePlace(c.Request.Context(), c.Param("placeId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.DeleteResults{Results: outcomeStrings(outcomes)})
}
