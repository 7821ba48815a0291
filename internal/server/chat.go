package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) ChatHistory(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))
	companyID := strings.TrimSpace(c.Query("company_id"))
	if userID == "" || companyID == "" {
		AbortWithError(c, newValidationError("user_id", "required", "user_id and company_id are required"))
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	messages, err := s.chatSvc.History(c.Request.Context(), userID, companyID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": messages})
}
