package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideshare/internal/domain"
	"rideshare/internal/middleware"
	"rideshare/internal/service"
)

// RatingHandler handles HTTP requests for ratings.
type RatingHandler struct {
	rideService *service.RideService
}

// NewRatingHandler creates a new RatingHandler.
func NewRatingHandler(rideService *service.RideService) *RatingHandler {
	return &RatingHandler{rideService: rideService}
}

// RateRideRequest is the HTTP request body for rating a ride participant.
type RateRideRequest struct {
	RaterID  string `json:"rater_id,omitempty"`
	TargetID string `json:"target_id" binding:"required"`
	Value    int    `json:"value"`
	Comment  string `json:"comment,omitempty" binding:"max=500"`
}

// RateRide handles POST /v1/rides/:id/ratings
func (h *RatingHandler) RateRide(c *gin.Context) {
	var req RateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	err := h.rideService.RateRide(c.Request.Context(), middleware.ActorFrom(c), service.RateRideRequest{
		RideID:   c.Param("id"),
		RaterID:  req.RaterID,
		TargetID: req.TargetID,
		Value:    req.Value,
		Comment:  req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, gin.H{"ride_id": c.Param("id"), "target_id": req.TargetID, "value": req.Value})
}

// GetUserRating handles GET /v1/users/:id/rating
func (h *RatingHandler) GetUserRating(c *gin.Context) {
	h.getRating(c, domain.SubjectUser)
}

// GetVehicleRating handles GET /v1/vehicles/:id/rating
func (h *RatingHandler) GetVehicleRating(c *gin.Context) {
	h.getRating(c, domain.SubjectVehicle)
}

func (h *RatingHandler) getRating(c *gin.Context, kind domain.SubjectKind) {
	agg, err := h.rideService.GetRating(c.Request.Context(), domain.Subject{Kind: kind, ID: c.Param("id")})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, agg)
}
