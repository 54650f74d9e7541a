package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/kiranalabs/kirana/internal/payment/domain"
)

func (s *Server) SyncPayment(c *gin.Context) {
	resp, err := s.paymentSvc.SyncPayment(c.Request.Context(), strings.TrimSpace(c.Param("paymentId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SyncPaymentByGatewayID(c *gin.Context) {
	resp, err := s.paymentSvc.SyncPaymentByGatewayID(c.Request.Context(), strings.TrimSpace(c.Param("gatewayPaymentId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SyncOrderPayments(c *gin.Context) {
	resp, err := s.paymentSvc.SyncOrderPayments(c.Request.Context(), strings.TrimSpace(c.Param("orderId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SyncPendingPayments(c *gin.Context) {
	resp, err := s.paymentSvc.SyncAllPending(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type verifyPaymentRequest struct {
	OrderRef   string `json:"order_ref"`
	PaymentRef string `json:"payment_ref"`
	Signature  string `json:"signature"`
}

func (s *Server) VerifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.VerifyPayment(c.Request.Context(), paymentdomain.VerifyPaymentRequest{
		OrderRef:   strings.TrimSpace(req.OrderRef),
		PaymentRef: strings.TrimSpace(req.PaymentRef),
		Signature:  strings.TrimSpace(req.Signature),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrderPayments(c *gin.Context) {
	resp, err := s.paymentSvc.ListByOrder(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createRefundRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

func (s *Server) CreateRefund(c *gin.Context) {
	var req createRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.CreateRefund(c.Request.Context(), paymentdomain.CreateRefundRequest{
		PaymentID:   strings.TrimSpace(c.Param("paymentId")),
		AmountCents: req.AmountCents,
		Reason:      strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func isPaymentValidationError(err error) bool {
	switch err {
	case paymentdomain.ErrInvalidID,
		paymentdomain.ErrInvalidPayload,
		paymentdomain.ErrInvalidSignature,
		paymentdomain.ErrInvalidAmount:
		return true
	default:
		return false
	}
}
