package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"SafeHaven/internal/auth"
	"SafeHaven/internal/dispatch"
	"SafeHaven/internal/models"
	"SafeHaven/pkg/response"

	"github.com/gin-gonic/gin"
)

type createAlertRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// CreateAlert opens an emergency alert. Accepts JSON, or multipart with
// an optional audio recording under the "audio" field.
func (h *Handlers) CreateAlert(c *gin.Context) {
	identity := auth.CurrentIdentity(c)
	in := dispatch.CreateAlertInput{UserID: identity.ID}

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if lat := c.PostForm("latitude"); lat != "" {
			v, err := strconv.ParseFloat(lat, 64)
			if err != nil {
				response.Fail(c, http.StatusBadRequest, "Invalid latitude")
				return
			}
			in.Latitude = &v
		}
		if lon := c.PostForm("longitude"); lon != "" {
			v, err := strconv.ParseFloat(lon, 64)
			if err != nil {
				response.Fail(c, http.StatusBadRequest, "Invalid longitude")
				return
			}
			in.Longitude = &v
		}
		if file, err := c.FormFile("audio"); err == nil {
			f, err := file.Open()
			if err == nil {
				defer f.Close()
				in.Audio = f
				in.AudioContentType = file.Header.Get("Content-Type")
			}
		}
	} else {
		var req createAlertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Fail(c, http.StatusBadRequest, "Invalid JSON")
			return
		}
		in.Latitude = req.Latitude
		in.Longitude = req.Longitude
	}

	alert, company, err := h.engine.CreateAlert(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"alert":   alert,
		"message": "Alert sent successfully",
		"security_company": gin.H{
			"name":     company.CompanyName,
			"distance": fmt.Sprintf("%.2f km", company.DistanceKM),
		},
	})
}

// GetAlert returns one alert to its owner or its current assignee.
func (h *Handlers) GetAlert(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid alert id")
		return
	}

	alert, err := h.alerts.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to load alert")
		return
	}
	if alert == nil {
		response.Fail(c, http.StatusNotFound, "Alert not found")
		return
	}

	identity := auth.CurrentIdentity(c)
	switch identity.Role {
	case auth.RoleUser:
		if alert.UserID != identity.ID {
			response.Fail(c, http.StatusForbidden, "Unauthorized")
			return
		}
	case auth.RoleResponder:
		if alert.ResponderID != identity.ID {
			response.Fail(c, http.StatusForbidden, "Unauthorized")
			return
		}
	}

	c.JSON(http.StatusOK, alert)
}

// UserAlertHistory lists the requester's alerts, newest first.
func (h *Handlers) UserAlertHistory(c *gin.Context) {
	identity := auth.CurrentIdentity(c)
	alerts, err := h.alerts.ListByUser(c.Request.Context(), identity.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to load alerts")
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	c.JSON(http.StatusOK, alerts)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateAlertStatus lets the assigned responder advance the alert.
func (h *Handlers) UpdateAlertStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid alert id")
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	identity := auth.CurrentIdentity(c)
	alert, err := h.engine.UpdateStatus(c.Request.Context(), id, identity.ID, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// ResponderAlerts lists alerts currently assigned to the responder,
// newest first, optionally filtered by ?status=.
func (h *Handlers) ResponderAlerts(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !models.ValidStatus(status) {
		response.Fail(c, http.StatusBadRequest, "Invalid status")
		return
	}

	identity := auth.CurrentIdentity(c)
	alerts, err := h.alerts.ListByResponder(c.Request.Context(), identity.ID, status)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to load alerts")
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	c.JSON(http.StatusOK, alerts)
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
