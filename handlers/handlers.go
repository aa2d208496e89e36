package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"response-dashboard/incidents"
	"response-dashboard/models"
	"response-dashboard/service"
)

// Handlers serves the derived dashboard state over REST.
type Handlers struct {
	svc *service.Service
}

// NewHandlers creates the dashboard HTTP handlers.
func NewHandlers(svc *service.Service) *Handlers {
	return &Handlers{svc: svc}
}

// GetIncidents returns the incident groups from the current snapshot.
func (h *Handlers) GetIncidents(c *gin.Context) {
	snap := h.svc.Snapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot available yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"incidents":     snap.Groups,
		"count":         len(snap.Groups),
		"pending_count": snap.PendingCount,
		"seq":           snap.Seq,
	})
}

// GetIncidentByReport resolves an individual report id to its incident group.
func (h *Handlers) GetIncidentByReport(c *gin.Context) {
	reportID := c.Query("id")
	if reportID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id parameter is required"})
		return
	}
	g, ok := h.svc.GroupForReport(reportID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found in any incident"})
		return
	}
	c.JSON(http.StatusOK, g)
}

// GetIncidentMap aggregates located incidents into map markers for the
// requested viewport.
func (h *Handlers) GetIncidentMap(c *gin.Context) {
	snap := h.svc.Snapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot available yet"})
		return
	}

	vp, err := parseViewPort(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	markers := incidents.AggregateMap(snap.Groups, vp)
	c.JSON(http.StatusOK, gin.H{
		"markers": markers,
		"count":   len(markers),
	})
}

// GetNotifications returns the deduplicated display notifications and the
// unseen count shown on the dashboard badge.
func (h *Handlers) GetNotifications(c *gin.Context) {
	snap := h.svc.Snapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot available yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": snap.Notifications,
		"count":         len(snap.Notifications),
		"unseen_count":  snap.UnseenCount,
		"seq":           snap.Seq,
	})
}

// MarkNotificationRead marks a display notification (and every raw member
// behind it) read or unread.
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	groupKey := c.Param("key")

	var body struct {
		Read *bool `json:"read"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Read == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read field is required"})
		return
	}

	if err := h.svc.MarkDisplayNotificationRead(c.Request.Context(), groupKey, *body.Read); err != nil {
		if err == service.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DeleteNotification deletes a display notification and every raw member
// behind it.
func (h *Handlers) DeleteNotification(c *gin.Context) {
	groupKey := c.Param("key")

	if err := h.svc.DeleteDisplayNotification(c.Request.Context(), groupKey); err != nil {
		if err == service.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// MarkAllNotificationsRead marks everything read.
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	if err := h.svc.MarkAllNotificationsRead(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Refresh triggers a synchronous rebuild, for clients that just performed a
// mutation elsewhere and want fresh state.
func (h *Handlers) Refresh(c *gin.Context) {
	if err := h.svc.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	snap := h.svc.Snapshot()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "seq": snap.Seq})
}

// HealthCheck reports service health.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Service:   "response-dashboard",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func parseViewPort(c *gin.Context) (incidents.ViewPort, error) {
	var vp incidents.ViewPort
	var err error
	if vp.LatMin, err = parseFloatParam(c, "latmin"); err != nil {
		return vp, err
	}
	if vp.LonMin, err = parseFloatParam(c, "lonmin"); err != nil {
		return vp, err
	}
	if vp.LatMax, err = parseFloatParam(c, "latmax"); err != nil {
		return vp, err
	}
	if vp.LonMax, err = parseFloatParam(c, "lonmax"); err != nil {
		return vp, err
	}
	return vp, nil
}

func parseFloatParam(c *gin.Context, name string) (float64, error) {
	value, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil {
		return 0, errMissingParam(name)
	}
	return value, nil
}

type errMissingParam string

func (e errMissingParam) Error() string {
	return string(e) + " parameter is required and must be a number"
}
