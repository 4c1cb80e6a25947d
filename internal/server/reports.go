package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	aidomain "github.com/hostwise/nightly/internal/ai/domain"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
)

const dateLayout = "2006-01-02"

type analyzeDateRequest struct {
	PropertyID string `json:"property_id"`
	Date       string `json:"date"`
	Language   string `json:"language"`
}

func (s *Server) AnalyzeDate(c *gin.Context) {
	var req analyzeDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}

	propertyID, err := snowflake.ParseString(req.PropertyID)
	if err != nil {
		_ = c.Error(propertydomain.ErrInvalidID)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_date", Code: CodeInvalidInput})
		return
	}

	language, err := s.resolveLanguage(c, req.Language)
	if err != nil {
		_ = c.Error(err)
		return
	}

	signal, err := s.signalSvc.RefreshAnalysis(c.Request.Context(), propertyID, date, language)
	if err != nil {
		if errors.Is(err, aidomain.ErrQuotaExceeded) {
			s.respondQuotaExceeded(c)
			return
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, signal)
}

// respondQuotaExceeded attaches the reset time so clients can back off
// until the owner's local midnight.
func (s *Server) respondQuotaExceeded(c *gin.Context) {
	resp := gin.H{"error": "quota_exceeded", "code": CodeQuotaExceeded}
	if quota, err := s.aiSvc.Quota(c.Request.Context()); err == nil {
		resp["reset_at"] = quota.ResetAt
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, resp)
}

func (s *Server) GetNews(c *gin.Context) {
	language, err := s.resolveLanguage(c, c.Query("language"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	signal, err := s.signalSvc.GetNews(c.Request.Context(), language)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, signal)
}

// resolveLanguage falls back to the owner's profile language when the
// request does not name one.
func (s *Server) resolveLanguage(c *gin.Context, language string) (string, error) {
	language = strings.TrimSpace(language)
	if language != "" {
		return language, nil
	}
	owner, err := s.ownerSvc.GetProfile(c.Request.Context())
	if err != nil {
		return "", err
	}
	// The signal service defaults an empty language to "en".
	return owner.Language, nil
}
