package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	grouprecdomain "github.com/hostwise/nightly/internal/grouprec/domain"
)

func (s *Server) ListGroupRecommendations(c *gin.Context) {
	recommendations, err := s.recommenderSvc.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recommendations})
}

func (s *Server) AcceptGroupRecommendation(c *gin.Context) {
	var req grouprecdomain.AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}

	group, err := s.recommenderSvc.Accept(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, group)
}
