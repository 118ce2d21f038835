package transport

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/internal/service"
	"github.com/gin-gonic/gin"
)

type AirQualityHandler struct {
	airQualityService service.AirQualityService
}

func NewAirQualityHandler(airQualityService service.AirQualityService) *AirQualityHandler {
	return &AirQualityHandler{airQualityService: airQualityService}
}

// GetAirQuality serves GET /air-quality?lat=&lon= or ?city=
func (h *AirQualityHandler) GetAirQuality(c *gin.Context) {
	if city := strings.TrimSpace(c.Query("city")); city != "" {
		aq, err := h.airQualityService.ForPlace(c.Request.Context(), city)
		if err != nil {
			writeError(c, err)
			return
		}
		respond(c, http.StatusOK, "", aq)
		return
	}

	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		writeError(c, fmt.Errorf("%w: lat and lon or city are required", entity.ErrInvalidInput))
		return
	}

	aq, err := h.airQualityService.Current(c.Request.Context(), lat, lon)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, "", aq)
}

func (h *AirQualityHandler) GetPlaces(c *gin.Context) {
	respond(c, http.StatusOK, "", h.airQualityService.Places())
}
