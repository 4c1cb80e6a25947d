package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	aidomain "github.com/hostwise/nightly/internal/ai/domain"
	"github.com/hostwise/nightly/internal/pricing/engine"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
)

type pricingRunRequest struct {
	PropertyID string `json:"property_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	UseAI      bool   `json:"use_ai"`
}

// RunPricing prices one property, or every active property of the owner when
// property_id is omitted.
func (s *Server) RunPricing(c *gin.Context) {
	var req pricingRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		_ = c.Error(engine.ErrInvalidRange)
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		_ = c.Error(engine.ErrInvalidRange)
		return
	}

	if strings.TrimSpace(req.PropertyID) == "" {
		summaries, err := s.pricingSvc.RunOwner(c.Request.Context(), start, end, req.UseAI)
		if err != nil {
			if errors.Is(err, aidomain.ErrQuotaExceeded) {
				s.respondQuotaExceeded(c)
				return
			}
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"summaries": summaries})
		return
	}

	propertyID, err := snowflake.ParseString(req.PropertyID)
	if err != nil {
		_ = c.Error(propertydomain.ErrInvalidID)
		return
	}
	summary, err := s.pricingSvc.Run(c.Request.Context(), engine.RunRequest{
		PropertyID: propertyID,
		StartDate:  start,
		EndDate:    end,
		UseAI:      req.UseAI,
	})
	if err != nil {
		if errors.Is(err, aidomain.ErrQuotaExceeded) {
			s.respondQuotaExceeded(c)
			return
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
