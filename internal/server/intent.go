package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kiranalabs/kirana/internal/actor"
	intentdomain "github.com/kiranalabs/kirana/internal/intent/domain"
)

type createIntentRequest struct {
	OrderID   string         `json:"order_id"`
	GatewayID string         `json:"gateway_id"`
	Metadata  map[string]any `json:"metadata"`
}

func (s *Server) CreatePaymentIntent(c *gin.Context) {
	current, ok := actor.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if !s.intentLimiter.Allow(strings.ToLower(current.Email)) {
		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "payment_intents", "quota")
		}
		AbortWithError(c, ErrRateLimited)
		return
	}

	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.intentSvc.Create(c.Request.Context(), intentdomain.CreateIntentRequest{
		OrderID:   strings.TrimSpace(req.OrderID),
		GatewayID: strings.TrimSpace(req.GatewayID),
		Metadata:  req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetPaymentIntent(c *gin.Context) {
	resp, err := s.intentSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrderPaymentIntents(c *gin.Context) {
	resp, err := s.intentSvc.ListByOrder(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isIntentValidationError(err error) bool {
	switch err {
	case intentdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
