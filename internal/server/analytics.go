package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/smallbiznis/praxis/internal/analytics/domain"
)

func (s *Server) AnalyticsWIP(c *gin.Context) {
	resp, err := s.analyticsSvc.WIPBalances(c.Request.Context(), analyticsdomain.WIPBalanceRequest{
		ClientID: strings.TrimSpace(c.Query("client_id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AnalyticsRealization(c *gin.Context) {
	resp, err := s.analyticsSvc.RealizationRates(c.Request.Context(), analyticsdomain.RealizationRequest{
		ClientID: strings.TrimSpace(c.Query("client_id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AnalyticsAging(c *gin.Context) {
	resp, err := s.analyticsSvc.InvoiceAging(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
