package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ownerdomain "github.com/hostwise/nightly/internal/owner/domain"
)

func (s *Server) GetProfile(c *gin.Context) {
	owner, err := s.ownerSvc.GetProfile(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, owner)
}

func (s *Server) UpdateProfile(c *gin.Context) {
	var req ownerdomain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}

	owner, err := s.ownerSvc.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, owner)
}

func (s *Server) GetAIQuota(c *gin.Context) {
	quota, err := s.aiSvc.Quota(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, quota)
}
