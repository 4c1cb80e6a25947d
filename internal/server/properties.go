package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	overridedomain "github.com/hostwise/nightly/internal/override/domain"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
)

func (s *Server) ListProperties(c *gin.Context) {
	pageSize := 0
	if raw := c.Query("page_size"); raw != "" {
		pageSize, _ = strconv.Atoi(raw)
	}

	resp, err := s.propertySvc.List(c.Request.Context(), propertydomain.ListPropertiesRequest{
		PageToken: c.Query("page_token"),
		PageSize:  int32(pageSize),
		Status:    c.Query("status"),
		Location:  c.Query("location"),
		PMSType:   c.Query("pms_type"),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateProperty(c *gin.Context) {
	var req propertydomain.CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}

	property, err := s.propertySvc.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, property)
}

func (s *Server) GetProperty(c *gin.Context) {
	property, err := s.propertySvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, property)
}

func (s *Server) UpdateProperty(c *gin.Context) {
	var req propertydomain.UpdatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}
	req.ID = c.Param("id")

	property, err := s.propertySvc.Update(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, property)
}

func (s *Server) DeleteProperty(c *gin.Context) {
	if err := s.propertySvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) UpdatePropertyStrategy(c *gin.Context) {
	var strategy propertydomain.Strategy
	if err := c.ShouldBindJSON(&strategy); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}

	property, err := s.propertySvc.UpdateStrategy(c.Request.Context(), c.Param("id"), strategy)
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.pushSettingsUpstream(c, property)
	c.JSON(http.StatusOK, property)
}

func (s *Server) UpdatePropertyRules(c *gin.Context) {
	var rules propertydomain.Rules
	if err := c.ShouldBindJSON(&rules); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}

	property, err := s.propertySvc.UpdateRules(c.Request.Context(), c.Param("id"), rules)
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.pushSettingsUpstream(c, property)
	c.JSON(http.StatusOK, property)
}

// pushSettingsUpstream mirrors rule and price changes to the PMS listing.
// The push is advisory; the stored property is the source of truth and a
// failed push is retried on the next change.
func (s *Server) pushSettingsUpstream(c *gin.Context, property propertydomain.Property) {
	if property.PMSID == nil || *property.PMSID == "" || s.syncSvc == nil {
		return
	}
	_ = s.syncSvc.PushSettings(c.Request.Context(), property.ID)
}

func (s *Server) UpdatePropertyStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}

	property, err := s.propertySvc.UpdateStatus(c.Request.Context(), c.Param("id"), propertydomain.Status(body.Status))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, property)
}

func (s *Server) ListPropertyLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	logs, err := s.propertySvc.ListLogs(c.Request.Context(), propertydomain.ListLogsRequest{
		PropertyID: c.Param("id"),
		Limit:      limit,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (s *Server) ListPriceOverrides(c *gin.Context) {
	overrides, err := s.overrideSvc.ListRange(c.Request.Context(), overridedomain.ListOverridesRequest{
		PropertyID: c.Param("id"),
		Start:      c.Query("start"),
		End:        c.Query("end"),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overrides": overrides})
}

func (s *Server) PutPriceOverrides(c *gin.Context) {
	var req overridedomain.PutOverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}
	req.PropertyID = c.Param("id")

	overrides, err := s.overrideSvc.Put(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overrides": overrides})
}

func (s *Server) DeletePriceOverride(c *gin.Context) {
	if err := s.overrideSvc.Delete(c.Request.Context(), c.Param("id"), c.Param("date")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
