package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// AdminHandler handles the operator override endpoints.
type AdminHandler struct {
	adminService  *service.AdminService
	driverService *service.DriverService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *service.AdminService, driverService *service.DriverService) *AdminHandler {
	return &AdminHandler{adminService: adminService, driverService: driverService}
}

// OverrideStatusRequest is the HTTP request body for a status override.
type OverrideStatusRequest struct {
	AdminID string `json:"admin_id"`
	Status  string `json:"status"`
	Note    string `json:"note"`
}

// AssignDriverRequest is the HTTP request body for a forced assignment.
type AssignDriverRequest struct {
	AdminID  string `json:"admin_id"`
	DriverID string `json:"driver_id"`
	Note     string `json:"note"`
}

// AddNoteRequest is the HTTP request body for attaching a note.
type AddNoteRequest struct {
	AdminID string `json:"admin_id"`
	Note    string `json:"note"`
}

// IssuesResponse groups problem rides for the operator dashboard.
type IssuesResponse struct {
	Cancelled    []RideResponse `json:"cancelled"`
	LongDuration []RideResponse `json:"long_duration"`
	NoDriver     []RideResponse `json:"no_driver"`
	Disputed     []RideResponse `json:"disputed"`
}

// OverviewResponse carries the dashboard counters.
type OverviewResponse struct {
	TotalRides     int `json:"total_rides"`
	ActiveRides    int `json:"active_rides"`
	CompletedRides int `json:"completed_rides"`
	CancelledRides int `json:"cancelled_rides"`
	TotalDrivers   int `json:"total_drivers"`
	OnlineDrivers  int `json:"online_drivers"`
}

// ForceDeleteRequest is the HTTP request body for a force delete.
type ForceDeleteRequest struct {
	AdminID string `json:"admin_id"`
	Reason  string `json:"reason"`
}

// DeletionResponse is the audit snapshot of a force delete.
type DeletionResponse struct {
	RideID    string `json:"ride_id"`
	RiderID   string `json:"rider_id"`
	DriverID  string `json:"driver_id,omitempty"`
	Status    string `json:"status"`
	PaymentID string `json:"payment_id,omitempty"`
	Reason    string `json:"reason"`
	DeletedBy string `json:"deleted_by"`
	DeletedAt string `json:"deleted_at"`
}

// OverrideStatus handles PATCH /v1/admin/rides/:id/status
func (h *AdminHandler) OverrideStatus(c *gin.Context) {
	var req OverrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.adminService.OverrideStatus(c.Request.Context(), req.AdminID, c.Param("id"), domain.RideStatus(req.Status), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// AssignDriver handles POST /v1/admin/rides/:id/assign
func (h *AdminHandler) AssignDriver(c *gin.Context) {
	var req AssignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.adminService.AssignDriver(c.Request.Context(), req.AdminID, c.Param("id"), req.DriverID, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// AddNote handles POST /v1/admin/rides/:id/notes
func (h *AdminHandler) AddNote(c *gin.Context) {
	var req AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.adminService.AddNote(c.Request.Context(), req.AdminID, c.Param("id"), req.Note); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, gin.H{"message": "note added"})
}

// GetIssues handles GET /v1/admin/issues
func (h *AdminHandler) GetIssues(c *gin.Context) {
	issues, err := h.adminService.GetIssues(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, IssuesResponse{
		Cancelled:    toRideResponses(issues.Cancelled),
		LongDuration: toRideResponses(issues.LongDuration),
		NoDriver:     toRideResponses(issues.NoDriver),
		Disputed:     toRideResponses(issues.Disputed),
	})
}

// GetOverview handles GET /v1/admin/overview
func (h *AdminHandler) GetOverview(c *gin.Context) {
	ov, err := h.adminService.GetOverview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, OverviewResponse{
		TotalRides:     ov.TotalRides,
		ActiveRides:    ov.ActiveRides,
		CompletedRides: ov.CompletedRides,
		CancelledRides: ov.CancelledRides,
		TotalDrivers:   ov.TotalDrivers,
		OnlineDrivers:  ov.OnlineDrivers,
	})
}

// GetActiveRides handles GET /v1/admin/rides/active
func (h *AdminHandler) GetActiveRides(c *gin.Context) {
	rides, err := h.adminService.GetActiveRides(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

// ForceDelete handles DELETE /v1/admin/rides/:id
func (h *AdminHandler) ForceDelete(c *gin.Context) {
	var req ForceDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	record, err := h.adminService.ForceDelete(c.Request.Context(), req.AdminID, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, DeletionResponse{
		RideID:    record.RideID,
		RiderID:   record.RiderID,
		DriverID:  record.DriverID,
		Status:    string(record.Status),
		PaymentID: record.PaymentID,
		Reason:    record.Reason,
		DeletedBy: record.DeletedBy,
		DeletedAt: formatTime(record.DeletedAt),
	})
}

// ApproveDriver handles POST /v1/admin/drivers/:id/approve
func (h *AdminHandler) ApproveDriver(c *gin.Context) {
	if err := h.driverService.Approve(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "driver approved"})
}

// RejectDriver handles POST /v1/admin/drivers/:id/reject
func (h *AdminHandler) RejectDriver(c *gin.Context) {
	if err := h.driverService.Reject(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "driver rejected"})
}
