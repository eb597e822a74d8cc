package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rideshare/internal/domain"
	"rideshare/internal/middleware"
	"rideshare/internal/service"
)

// RideHandler handles HTTP requests for rides and their passengers.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// PassengerRequest is one rider of a create or join request. Pickup and dropoff must both be present.
type PassengerRequest struct {
	UserID  string           `json:"user_id"`
	Pickup  *domain.Location `json:"pickup" binding:"required"`
	Dropoff *domain.Location `json:"dropoff" binding:"required"`
}

func (p PassengerRequest) input() service.PassengerInput {
	return service.PassengerInput{UserID: p.UserID, Pickup: *p.Pickup, Dropoff: *p.Dropoff}
}

// CreateRideRequest is the HTTP request body for creating a ride.
type CreateRideRequest struct {
	Type          string             `json:"type" binding:"omitempty,oneof=on_demand scheduled group"`
	VehicleID     string             `json:"vehicle_id" binding:"required"`
	Passengers    []PassengerRequest `json:"passengers" binding:"dive"`
	ScheduledTime *time.Time         `json:"scheduled_time,omitempty"`
	GroupID       string             `json:"group_id,omitempty"`
}

// StatusRequest is the HTTP request body for ride and passenger status changes.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CancelRideRequest is the optional HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	Reason string `json:"reason,omitempty" binding:"max=500"`
}

// RideResponse is a ride as returned by the API.
type RideResponse struct {
	*domain.Ride
	CompletionEligible bool `json:"completion_eligible"`
}

func newRideResponse(r *domain.Ride) RideResponse {
	return RideResponse{Ride: r, CompletionEligible: r.CompletionEligible()}
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	passengers := make([]service.PassengerInput, len(req.Passengers))
	for i, p := range req.Passengers {
		passengers[i] = p.input()
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), middleware.ActorFrom(c), service.CreateRideRequest{
		Type:          domain.RideType(req.Type),
		VehicleID:     req.VehicleID,
		Passengers:    passengers,
		ScheduledTime: req.ScheduledTime,
		GroupID:       req.GroupID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, newRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// GetAll handles GET /v1/rides
func (h *RideHandler) GetAll(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	rides, err := h.rideService.ListRides(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		response = append(response, newRideResponse(r))
	}
	respondJSON(c, http.StatusOK, response)
}

// JoinRide handles POST /v1/rides/:id/join
func (h *RideHandler) JoinRide(c *gin.Context) {
	var req PassengerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	in := req.input()
	ride, err := h.rideService.JoinRide(c.Request.Context(), middleware.ActorFrom(c), service.JoinRideRequest{
		RideID:  c.Param("id"),
		UserID:  in.UserID,
		Pickup:  in.Pickup,
		Dropoff: in.Dropoff,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// UpdateStatus handles POST /v1/rides/:id/status
func (h *RideHandler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	ride, err := h.rideService.UpdateRideStatus(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), domain.RideStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// UpdatePassengerStatus handles POST /v1/rides/:id/passengers/:pid/status
func (h *RideHandler) UpdatePassengerStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	ride, err := h.rideService.UpdatePassengerStatus(c.Request.Context(), middleware.ActorFrom(c),
		c.Param("id"), c.Param("pid"), domain.PassengerStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req CancelRideRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}

	ride, err := h.rideService.CancelRide(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// SplitFare handles GET /v1/rides/:id/split
func (h *RideHandler) SplitFare(c *gin.Context) {
	rideID := c.Param("id")
	shares, err := h.rideService.SplitFare(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"ride_id": rideID, "shares": shares})
}
