package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/praxis/internal/invoice/domain"
	"github.com/smallbiznis/praxis/pkg/db/pagination"
)

type saveInvoiceRequest struct {
	ClientID   string                         `json:"client_id"`
	ProjectIDs []string                       `json:"project_ids"`
	Overrides  []invoicedomain.BucketOverride `json:"overrides"`
	Costs      []invoicedomain.CostInput      `json:"costs"`
	Reasons    []invoicedomain.ReasonInput    `json:"reasons"`
	DueAt      *time.Time                     `json:"due_at"`
	Notes      string                         `json:"notes"`
}

func (s *Server) SaveInvoice(c *gin.Context) {
	s.saveInvoice(c, "")
}

// UpdateInvoice replaces the composition of an existing draft.
func (s *Server) UpdateInvoice(c *gin.Context) {
	s.saveInvoice(c, strings.TrimSpace(c.Param("id")))
}

func (s *Server) saveInvoice(c *gin.Context, id string) {
	var req saveInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.Save(c.Request.Context(), invoicedomain.SaveInvoiceRequest{
		ID:         id,
		ClientID:   strings.TrimSpace(req.ClientID),
		ProjectIDs: req.ProjectIDs,
		Overrides:  req.Overrides,
		Costs:      req.Costs,
		Reasons:    req.Reasons,
		DueAt:      req.DueAt,
		Notes:      req.Notes,
		Actor:      actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type reconcileInvoiceRequest struct {
	ClientID   string                         `json:"client_id"`
	ProjectIDs []string                       `json:"project_ids"`
	Overrides  []invoicedomain.BucketOverride `json:"overrides"`
	Costs      []invoicedomain.CostInput      `json:"costs"`
	Reasons    []invoicedomain.ReasonInput    `json:"reasons"`
}

func (s *Server) ReconcileInvoice(c *gin.Context) {
	var req reconcileInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.Reconcile(c.Request.Context(), invoicedomain.ReconcileRequest{
		ClientID:   strings.TrimSpace(req.ClientID),
		ProjectIDs: req.ProjectIDs,
		Overrides:  req.Overrides,
		Costs:      req.Costs,
		Reasons:    req.Reasons,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ClientID string `form:"client_id"`
		Status   string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		ClientID:  strings.TrimSpace(query.ClientID),
		Status:    strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), invoicedomain.GetInvoiceRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApproveInvoice(c *gin.Context) {
	s.transitionInvoice(c, s.invoiceSvc.Approve)
}

func (s *Server) SendInvoice(c *gin.Context) {
	s.transitionInvoice(c, s.invoiceSvc.Send)
}

func (s *Server) MarkInvoicePaid(c *gin.Context) {
	s.transitionInvoice(c, s.invoiceSvc.MarkPaid)
}

func (s *Server) transitionInvoice(c *gin.Context, transition func(context.Context, invoicedomain.TransitionRequest) (invoicedomain.Invoice, error)) {
	resp, err := transition(c.Request.Context(), invoicedomain.TransitionRequest{
		ID:    strings.TrimSpace(c.Param("id")),
		Actor: actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
