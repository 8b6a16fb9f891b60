package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// RegisterDriverRequest is the HTTP request body for registering a driver.
type RegisterDriverRequest struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Vehicle string `json:"vehicle"`
}

// SetAvailabilityRequest is the HTTP request body for availability changes.
type SetAvailabilityRequest struct {
	Availability string `json:"availability"` // ONLINE, OFFLINE
}

// UpdateLocationRequest is the HTTP request body for location pings.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Vehicle      string `json:"vehicle,omitempty"`
	Status       string `json:"status"`
	Availability string `json:"availability"`
	Active       bool   `json:"active"`
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:           d.ID,
		UserID:       d.UserID,
		Name:         d.Name,
		Phone:        d.Phone,
		Vehicle:      d.Vehicle,
		Status:       string(d.Status),
		Availability: string(d.Availability),
		Active:       d.UserActive,
	}
}

// Register handles POST /v1/drivers
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.driverService.Register(c.Request.Context(), req.UserID, req.Name, req.Phone, req.Vehicle)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// SetAvailability handles POST /v1/drivers/:id/availability
func (h *DriverHandler) SetAvailability(c *gin.Context) {
	var req SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	availability := domain.Availability(req.Availability)
	if availability != domain.AvailabilityOnline && availability != domain.AvailabilityOffline {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "availability must be ONLINE or OFFLINE"})
		return
	}

	if err := h.driverService.SetAvailability(c.Request.Context(), c.Param("id"), availability); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "availability updated"})
}

// UpdateLocation handles POST /v1/drivers/:id/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.driverService.UpdateLocation(c.Request.Context(), c.Param("id"), req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "location updated"})
}

// GetDriver handles GET /v1/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driver, err := h.driverService.GetDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// GetDrivers handles GET /v1/drivers
func (h *DriverHandler) GetDrivers(c *gin.Context) {
	drivers, err := h.driverService.GetDrivers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]DriverResponse, 0, len(drivers))
	for _, d := range drivers {
		responses = append(responses, toDriverResponse(d))
	}
	respondJSON(c, http.StatusOK, responses)
}
