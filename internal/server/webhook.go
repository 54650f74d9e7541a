package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gatewaydomain "github.com/kiranalabs/kirana/internal/gateway/domain"
)

const maxWebhookBody = 1 << 20

// HandleGatewayWebhook verifies and ingests a provider notification. The
// body must be read raw because the signature covers the exact bytes sent.
func (s *Server) HandleGatewayWebhook(c *gin.Context) {
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.webhookSvc.HandleWebhook(c.Request.Context(), provider, payload, webhookSignature(c, provider))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func webhookSignature(c *gin.Context, provider string) string {
	switch provider {
	case gatewaydomain.Razorpay:
		return strings.TrimSpace(c.GetHeader("X-Razorpay-Signature"))
	default:
		return strings.TrimSpace(c.GetHeader("X-Signature"))
	}
}
