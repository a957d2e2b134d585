package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	assistantdomain "github.com/smallbiznis/praxis/internal/assistant/domain"
)

type assistantChatRequest struct {
	Model    string                    `json:"model"`
	Messages []assistantdomain.Message `json:"messages"`
}

func (s *Server) AssistantChat(c *gin.Context) {
	var req assistantChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.assistantSvc.Chat(c.Request.Context(), assistantdomain.ChatRequest{
		Caller:   actorFrom(c),
		Model:    strings.TrimSpace(req.Model),
		Messages: req.Messages,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
