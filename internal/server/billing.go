package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/hostwise/nightly/internal/billing/domain"
)

type checkoutRequest struct {
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}

	session, err := s.billingSvc.CreateCheckoutSession(c.Request.Context(), req.SuccessURL, req.CancelURL)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) GetSubscription(c *gin.Context) {
	subscription, err := s.billingSvc.Subscription(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if subscription == nil {
		_ = c.Error(billingdomain.ErrNoSubscription)
		return
	}
	c.JSON(http.StatusOK, subscription)
}

// HandleBillingWebhook authenticates deliveries by signature. The raw body
// is passed through untouched so the HMAC covers the provider's exact bytes.
func (s *Server) HandleBillingWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_body", Code: CodeInvalidInput})
		return
	}

	result, err := s.billingSvc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
