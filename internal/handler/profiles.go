package handlers

import (
	"net/http"

	"SafeHaven/internal/auth"
	"SafeHaven/pkg/response"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) GetUserProfile(c *gin.Context) {
	identity := auth.CurrentIdentity(c)
	user, err := h.profiles.GetUser(c.Request.Context(), identity.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	if user == nil {
		response.Fail(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateUserProfileRequest struct {
	FullName              *string `json:"full_name"`
	PhoneNumber           *string `json:"phone_number"`
	Address               *string `json:"address"`
	EmergencyContactName  *string `json:"emergency_contact_name"`
	EmergencyContactPhone *string `json:"emergency_contact_phone"`
}

func (h *Handlers) UpdateUserProfile(c *gin.Context) {
	var req updateUserProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	updates := map[string]interface{}{}
	setIf(updates, "full_name", req.FullName)
	setIf(updates, "phone_number", req.PhoneNumber)
	setIf(updates, "address", req.Address)
	setIf(updates, "emergency_contact_name", req.EmergencyContactName)
	setIf(updates, "emergency_contact_phone", req.EmergencyContactPhone)

	identity := auth.CurrentIdentity(c)
	user, err := h.profiles.UpdateUser(c.Request.Context(), identity.ID, updates)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handlers) GetResponderProfile(c *gin.Context) {
	identity := auth.CurrentIdentity(c)
	responder, err := h.profiles.GetResponder(c.Request.Context(), identity.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	if responder == nil {
		response.Fail(c, http.StatusNotFound, "Security company not found")
		return
	}
	c.JSON(http.StatusOK, responder)
}

type updateResponderProfileRequest struct {
	CompanyName      *string  `json:"company_name"`
	PhoneNumber      *string  `json:"phone_number"`
	Address          *string  `json:"address"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	CoverageRadiusKM *float64 `json:"coverage_radius_km"`
	Available        *bool    `json:"is_available"`
	PushToken        *string  `json:"push_token"`
}

func (h *Handlers) UpdateResponderProfile(c *gin.Context) {
	var req updateResponderProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	updates := map[string]interface{}{}
	setIf(updates, "company_name", req.CompanyName)
	setIf(updates, "phone_number", req.PhoneNumber)
	setIf(updates, "address", req.Address)
	setIf(updates, "push_token", req.PushToken)
	if req.Latitude != nil {
		updates["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		updates["longitude"] = *req.Longitude
	}
	if req.CoverageRadiusKM != nil {
		updates["coverage_radius_km"] = *req.CoverageRadiusKM
	}
	if req.Available != nil {
		updates["is_available"] = *req.Available
	}

	identity := auth.CurrentIdentity(c)
	responder, err := h.profiles.UpdateResponder(c.Request.Context(), identity.ID, updates)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, responder)
}

type availabilityRequest struct {
	Available *bool `json:"is_available"`
}

func (h *Handlers) SetAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Available == nil {
		response.Fail(c, http.StatusBadRequest, "is_available must be a boolean")
		return
	}

	identity := auth.CurrentIdentity(c)
	responder, err := h.profiles.SetAvailability(c.Request.Context(), identity.ID, *req.Available)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to update availability")
		return
	}
	c.JSON(http.StatusOK, responder)
}

func setIf(updates map[string]interface{}, column string, value *string) {
	if value != nil {
		updates[column] = *value
	}
}
