package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	groupdomain "github.com/hostwise/nightly/internal/group/domain"
)

func (s *Server) ListGroups(c *gin.Context) {
	groups, err := s.groupSvc.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (s *Server) CreateGroup(c *gin.Context) {
	var req groupdomain.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}

	group, err := s.groupSvc.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

func (s *Server) GetGroup(c *gin.Context) {
	group, err := s.groupSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (s *Server) UpdateGroup(c *gin.Context) {
	var req groupdomain.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}
	req.ID = c.Param("id")

	group, err := s.groupSvc.Update(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (s *Server) DeleteGroup(c *gin.Context) {
	if err := s.groupSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) AddGroupProperties(c *gin.Context) {
	var req groupdomain.MembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}
	req.GroupID = c.Param("id")

	group, err := s.groupSvc.AddProperties(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (s *Server) RemoveGroupProperties(c *gin.Context) {
	var req groupdomain.MembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}
	req.GroupID = c.Param("id")

	group, err := s.groupSvc.RemoveProperties(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, group)
}
