package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	engagementdomain "github.com/smallbiznis/praxis/internal/engagement/domain"
)

type createEngagementRequest struct {
	ClientID       string                     `json:"client_id"`
	ProjectID      string                     `json:"project_id"`
	Title          string                     `json:"title"`
	ScopeText      string                     `json:"scope_text"`
	FeeLines       []engagementdomain.FeeLine `json:"fee_lines"`
	SignatureNames []string                   `json:"signature_names"`
}

func (s *Server) CreateEngagement(c *gin.Context) {
	var req createEngagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.engagementSvc.Create(c.Request.Context(), engagementdomain.CreateDocumentRequest{
		ClientID:       strings.TrimSpace(req.ClientID),
		ProjectID:      strings.TrimSpace(req.ProjectID),
		Title:          strings.TrimSpace(req.Title),
		ScopeText:      req.ScopeText,
		FeeLines:       req.FeeLines,
		SignatureNames: req.SignatureNames,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListEngagements(c *gin.Context) {
	var query struct {
		ProjectID string `form:"project_id"`
		ClientID  string `form:"client_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.engagementSvc.List(c.Request.Context(), engagementdomain.ListDocumentRequest{
		ProjectID: strings.TrimSpace(query.ProjectID),
		ClientID:  strings.TrimSpace(query.ClientID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetEngagementByID(c *gin.Context) {
	resp, err := s.engagementSvc.GetByID(c.Request.Context(), engagementdomain.GetDocumentRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RenderEngagementPDF(c *gin.Context) {
	reader, err := s.engagementSvc.RenderPDF(c.Request.Context(), engagementdomain.GetDocumentRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `inline; filename="engagement.pdf"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}
