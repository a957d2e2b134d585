package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	wipdomain "github.com/smallbiznis/praxis/internal/wip/domain"
)

type adjustWIPRequest struct {
	ProjectID   string `json:"project_id"`
	TaskID      string `json:"task_id"`
	BilledCents int64  `json:"billed_cents"`
	ReasonCode  string `json:"reason_code"`
	Comments    string `json:"comments"`
}

func (s *Server) GetWIP(c *gin.Context) {
	var query struct {
		ProjectIDs []string `form:"project_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.wipSvc.GetWIP(c.Request.Context(), wipdomain.GetWIPRequest{
		ProjectIDs: query.ProjectIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// AdjustWIP previews an adjustment without persisting anything; the write
// happens when the invoice is saved.
func (s *Server) AdjustWIP(c *gin.Context) {
	var req adjustWIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.wipSvc.Adjust(c.Request.Context(), wipdomain.AdjustRequest{
		ProjectID:   strings.TrimSpace(req.ProjectID),
		TaskID:      strings.TrimSpace(req.TaskID),
		BilledCents: req.BilledCents,
		ReasonCode:  strings.TrimSpace(req.ReasonCode),
		Comments:    strings.TrimSpace(req.Comments),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
