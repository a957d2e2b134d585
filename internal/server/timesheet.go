package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	timesheetdomain "github.com/smallbiznis/praxis/internal/timesheet/domain"
)

type createTimeEntryRequest struct {
	ProjectID       string `json:"project_id"`
	TaskID          string `json:"task_id"`
	UserID          string `json:"user_id"`
	Date            string `json:"date"`
	DurationMinutes int64  `json:"duration_minutes"`
	Billable        *bool  `json:"billable"`
	RateCents       int64  `json:"rate_cents"`
	BillableCents   *int64 `json:"billable_cents"`
	Description     string `json:"description"`
}

type updateTimeEntryRequest struct {
	TaskID          *string `json:"task_id"`
	Date            *string `json:"date"`
	DurationMinutes *int64  `json:"duration_minutes"`
	Billable        *bool   `json:"billable"`
	RateCents       *int64  `json:"rate_cents"`
	BillableCents   *int64  `json:"billable_cents"`
	Description     *string `json:"description"`
}

func (s *Server) CreateTimeEntry(c *gin.Context) {
	var req createTimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.timesheetSvc.Create(c.Request.Context(), timesheetdomain.CreateTimeEntryRequest{
		ProjectID:       strings.TrimSpace(req.ProjectID),
		TaskID:          strings.TrimSpace(req.TaskID),
		UserID:          strings.TrimSpace(req.UserID),
		Date:            date,
		DurationMinutes: req.DurationMinutes,
		Billable:        req.Billable,
		RateCents:       req.RateCents,
		BillableCents:   req.BillableCents,
		Description:     strings.TrimSpace(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTimeEntries(c *gin.Context) {
	var query struct {
		ProjectID string `form:"project_id"`
		TaskID    string `form:"task_id"`
		Status    string `form:"status"`
		DateFrom  string `form:"date_from"`
		DateTo    string `form:"date_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dateFrom, err := parseOptionalDate(query.DateFrom)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	dateTo, err := parseOptionalDate(query.DateTo)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.timesheetSvc.List(c.Request.Context(), timesheetdomain.ListTimeEntryRequest{
		ProjectID: strings.TrimSpace(query.ProjectID),
		TaskID:    strings.TrimSpace(query.TaskID),
		Status:    strings.TrimSpace(query.Status),
		DateFrom:  dateFrom,
		DateTo:    dateTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTimeEntry(c *gin.Context) {
	var req updateTimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var date *time.Time
	if req.Date != nil {
		parsed, err := parseDate(*req.Date)
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		date = &parsed
	}

	resp, err := s.timesheetSvc.Update(c.Request.Context(), timesheetdomain.UpdateTimeEntryRequest{
		ID:              strings.TrimSpace(c.Param("id")),
		TaskID:          req.TaskID,
		Date:            date,
		DurationMinutes: req.DurationMinutes,
		Billable:        req.Billable,
		RateCents:       req.RateCents,
		BillableCents:   req.BillableCents,
		Description:     req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteTimeEntry(c *gin.Context) {
	err := s.timesheetSvc.Delete(c.Request.Context(), timesheetdomain.DeleteTimeEntryRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}
