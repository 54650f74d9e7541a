package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gatewaydomain "github.com/kiranalabs/kirana/internal/gateway/domain"
)

type createGatewayRequest struct {
	Name        string         `json:"name"`
	DisplayName string         `json:"display_name"`
	IsActive    bool           `json:"is_active"`
	Config      map[string]any `json:"config"`
}

func (s *Server) CreateGateway(c *gin.Context) {
	var req createGatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.gatewaySvc.Create(c.Request.Context(), gatewaydomain.CreateGatewayRequest{
		Name:        strings.TrimSpace(req.Name),
		DisplayName: strings.TrimSpace(req.DisplayName),
		IsActive:    req.IsActive,
		Config:      req.Config,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

type updateGatewayRequest struct {
	DisplayName *string        `json:"display_name"`
	IsActive    *bool          `json:"is_active"`
	Config      map[string]any `json:"config"`
}

func (s *Server) UpdateGateway(c *gin.Context) {
	var req updateGatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.gatewaySvc.Update(c.Request.Context(), gatewaydomain.UpdateGatewayRequest{
		ID:          strings.TrimSpace(c.Param("id")),
		DisplayName: req.DisplayName,
		IsActive:    req.IsActive,
		Config:      req.Config,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListGateways(c *gin.Context) {
	resp, err := s.gatewaySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetGatewayByID(c *gin.Context) {
	resp, err := s.gatewaySvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteGateway(c *gin.Context) {
	if err := s.gatewaySvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetActiveGateway is the unauthenticated checkout surface. Config is
// stripped from the JSON model, so only public fields leave the service.
func (s *Server) GetActiveGateway(c *gin.Context) {
	resp, err := s.gatewaySvc.FindActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isGatewayValidationError(err error) bool {
	switch err {
	case gatewaydomain.ErrInvalidID,
		gatewaydomain.ErrUnsupportedGateway,
		gatewaydomain.ErrMissingConfigKey:
		return true
	default:
		return false
	}
}
