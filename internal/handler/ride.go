package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// RequestRideRequest is the HTTP request body for requesting a ride.
type RequestRideRequest struct {
	RiderID        string  `json:"rider_id"`
	PickupLat      float64 `json:"pickup_lat"`
	PickupLng      float64 `json:"pickup_lng"`
	DestinationLat float64 `json:"destination_lat"`
	DestinationLng float64 `json:"destination_lng"`
	Price          float64 `json:"price"`
}

// ShowInterestRequest is the HTTP request body for expressing interest.
type ShowInterestRequest struct {
	DriverID string `json:"driver_id"`
}

// AcceptDriverRequest is the HTTP request body for accepting a driver.
type AcceptDriverRequest struct {
	RiderID   string `json:"rider_id"`
	DriverID  string `json:"driver_id"`
	PaymentID string `json:"payment_id"`
}

// UpdateStatusRequest is the HTTP request body for a status transition.
type UpdateStatusRequest struct {
	ActorID string `json:"actor_id"`
	Role    string `json:"role"`
	Status  string `json:"status"`
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	RiderID string `json:"rider_id"`
}

// StatusChangeResponse is one audit trail entry.
type StatusChangeResponse struct {
	Status    string `json:"status"`
	ChangedBy string `json:"changed_by"`
	ChangedAt string `json:"changed_at"`
	Reason    string `json:"reason,omitempty"`
}

// AdminNoteResponse is one operator note.
type AdminNoteResponse struct {
	Note      string `json:"note"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID                string                 `json:"id"`
	RiderID           string                 `json:"rider_id"`
	DriverID          string                 `json:"driver_id,omitempty"`
	Status            string                 `json:"status"`
	PickupLat         float64                `json:"pickup_lat"`
	PickupLng         float64                `json:"pickup_lng"`
	DestinationLat    float64                `json:"destination_lat"`
	DestinationLng    float64                `json:"destination_lng"`
	Price             float64                `json:"price"`
	PaymentID         string                 `json:"payment_id,omitempty"`
	PaymentHeld       bool                   `json:"payment_held"`
	PaymentReleased   bool                   `json:"payment_released"`
	InterestedDrivers []string               `json:"interested_drivers,omitempty"`
	PickupTime        string                 `json:"pickup_time,omitempty"`
	DropoffTime       string                 `json:"dropoff_time,omitempty"`
	StatusHistory     []StatusChangeResponse `json:"status_history,omitempty"`
	AdminNotes        []AdminNoteResponse    `json:"admin_notes,omitempty"`
	CreatedAt         string                 `json:"created_at"`
}

func toRideResponse(r *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:                r.ID,
		RiderID:           r.RiderID,
		DriverID:          r.DriverID,
		Status:            string(r.Status),
		PickupLat:         r.Pickup.Lat,
		PickupLng:         r.Pickup.Lng,
		DestinationLat:    r.Destination.Lat,
		DestinationLng:    r.Destination.Lng,
		Price:             r.Price,
		PaymentID:         r.PaymentID,
		PaymentHeld:       r.PaymentHeld,
		PaymentReleased:   r.PaymentReleased,
		InterestedDrivers: r.InterestedDrivers,
		CreatedAt:         formatTime(r.CreatedAt),
	}
	if !r.PickupTime.IsZero() {
		resp.PickupTime = formatTime(r.PickupTime)
	}
	if !r.DropoffTime.IsZero() {
		resp.DropoffTime = formatTime(r.DropoffTime)
	}
	for _, sc := range r.StatusHistory {
		resp.StatusHistory = append(resp.StatusHistory, StatusChangeResponse{
			Status:    string(sc.Status),
			ChangedBy: sc.ChangedBy,
			ChangedAt: formatTime(sc.ChangedAt),
			Reason:    sc.Reason,
		})
	}
	for _, n := range r.AdminNotes {
		resp.AdminNotes = append(resp.AdminNotes, AdminNoteResponse{
			Note:      n.Note,
			CreatedBy: n.CreatedBy,
			CreatedAt: formatTime(n.CreatedAt),
		})
	}
	return resp
}

func toRideResponses(rides []*domain.Ride) []RideResponse {
	responses := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		responses = append(responses, toRideResponse(r))
	}
	return responses
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func actorFromQuery(c *gin.Context) domain.Actor {
	return domain.Actor{
		ID:   c.Query("actor_id"),
		Role: domain.Role(c.Query("role")),
	}
}

// RequestRide handles POST /v1/rides
func (h *RideHandler) RequestRide(c *gin.Context) {
	var req RequestRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.RequestRide(c.Request.Context(), req.RiderID,
		domain.GeoPoint{Lat: req.PickupLat, Lng: req.PickupLng},
		domain.GeoPoint{Lat: req.DestinationLat, Lng: req.DestinationLng},
		req.Price)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// ShowInterest handles POST /v1/rides/:id/interest
func (h *RideHandler) ShowInterest(c *gin.Context) {
	var req ShowInterestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.rideService.ShowInterest(c.Request.Context(), c.Param("id"), req.DriverID); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "interest recorded"})
}

// AcceptDriver handles POST /v1/rides/:id/accept
func (h *RideHandler) AcceptDriver(c *gin.Context) {
	var req AcceptDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.AcceptDriver(c.Request.Context(), req.RiderID, c.Param("id"), req.DriverID, req.PaymentID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// UpdateStatus handles PATCH /v1/rides/:id/status
func (h *RideHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	actor := domain.Actor{ID: req.ActorID, Role: domain.Role(req.Role)}
	ride, err := h.rideService.ManageRideStatus(c.Request.Context(), actor, c.Param("id"), domain.RideStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.rideService.CancelRide(c.Request.Context(), req.RiderID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "ride cancelled"})
}

// GetRides handles GET /v1/rides
func (h *RideHandler) GetRides(c *gin.Context) {
	rides, err := h.rideService.GetRides(c.Request.Context(), actorFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRideInfo(c.Request.Context(), actorFromQuery(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}
