package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	integrationdomain "github.com/hostwise/nightly/internal/integration/domain"
)

type connectionRequest struct {
	PMSType     string            `json:"pms_type"`
	Credentials map[string]string `json:"credentials"`
}

func (s *Server) ListIntegrations(c *gin.Context) {
	integrations, err := s.integrationSvc.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"integrations": integrations})
}

func (s *Server) TestConnection(c *gin.Context) {
	var req connectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}

	if err := s.integrationSvc.TestConnection(c.Request.Context(), req.PMSType, req.Credentials); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ConnectIntegration(c *gin.Context) {
	var req connectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}

	integration, err := s.integrationSvc.Connect(c.Request.Context(), req.PMSType, req.Credentials)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, integration)
}

func (s *Server) SyncProperties(c *gin.Context) {
	var req struct {
		IntegrationID string `json:"integration_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}
	id, err := snowflake.ParseString(req.IntegrationID)
	if err != nil {
		_ = c.Error(integrationdomain.ErrInvalidID)
		return
	}

	previews, err := s.integrationSvc.SyncProperties(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"properties": previews})
}

func (s *Server) ImportProperties(c *gin.Context) {
	var req struct {
		IntegrationID string   `json:"integration_id"`
		PMSIDs        []string `json:"pms_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}
	id, err := snowflake.ParseString(req.IntegrationID)
	if err != nil {
		_ = c.Error(integrationdomain.ErrInvalidID)
		return
	}

	result, err := s.integrationSvc.ImportProperties(c.Request.Context(), id, req.PMSIDs)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) DisconnectIntegration(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		_ = c.Error(integrationdomain.ErrInvalidID)
		return
	}

	if err := s.integrationSvc.Disconnect(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) PullIntegration(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		_ = c.Error(integrationdomain.ErrInvalidID)
		return
	}

	summary, err := s.syncSvc.Pull(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) PushIntegration(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		_ = c.Error(integrationdomain.ErrInvalidID)
		return
	}

	summary, err := s.syncSvc.Push(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
