package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	productdomain "github.com/kiranalabs/kirana/internal/product/domain"
	"github.com/kiranalabs/kirana/pkg/db/pagination"
)

type createProductRequest struct {
	Name        string         `json:"name"`
	CategoryID  string         `json:"category_id"`
	Description string         `json:"description"`
	PriceCents  int64          `json:"price_cents"`
	Currency    string         `json:"currency"`
	Stock       int            `json:"stock"`
	Metadata    map[string]any `json:"metadata"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.Create(c.Request.Context(), productdomain.CreateProductRequest{
		Name:        strings.TrimSpace(req.Name),
		CategoryID:  strings.TrimSpace(req.CategoryID),
		Description: strings.TrimSpace(req.Description),
		PriceCents:  req.PriceCents,
		Currency:    strings.TrimSpace(req.Currency),
		Stock:       req.Stock,
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

type updateProductRequest struct {
	Name        *string        `json:"name"`
	CategoryID  *string        `json:"category_id"`
	Description *string        `json:"description"`
	PriceCents  *int64         `json:"price_cents"`
	Currency    *string        `json:"currency"`
	Stock       *int           `json:"stock"`
	Active      *bool          `json:"active"`
	Metadata    map[string]any `json:"metadata"`
}

func (s *Server) UpdateProduct(c *gin.Context) {
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.Update(c.Request.Context(), productdomain.UpdateProductRequest{
		ID:          strings.TrimSpace(c.Param("id")),
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		Stock:       req.Stock,
		Active:      req.Active,
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProducts(c *gin.Context) {
	var query struct {
		CategoryID string `form:"category_id"`
		Active     string `form:"active"`
		MinPrice   string `form:"min_price_cents"`
		MaxPrice   string `form:"max_price_cents"`
		Search     string `form:"q"`
		PageToken  string `form:"page_token"`
		PageSize   int    `form:"page_size,default=10"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	minPrice, err := parseOptionalInt64(query.MinPrice)
	if err != nil {
		AbortWithError(c, newValidationError("min_price_cents", "invalid_price", "invalid price"))
		return
	}

	maxPrice, err := parseOptionalInt64(query.MaxPrice)
	if err != nil {
		AbortWithError(c, newValidationError("max_price_cents", "invalid_price", "invalid price"))
		return
	}

	// storefront listings only ever see active products
	activeOnly := true
	if active != nil {
		activeOnly = *active
	}

	items, pageInfo, err := s.productSvc.List(c.Request.Context(), productdomain.ListProductRequest{
		CategoryID:    strings.TrimSpace(query.CategoryID),
		ActiveOnly:    activeOnly,
		MinPriceCents: minPrice,
		MaxPriceCents: maxPrice,
		Search:        strings.TrimSpace(query.Search),
		Pagination: pagination.Pagination{
			PageToken: query.PageToken,
			PageSize:  query.PageSize,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": pageInfo})
}

func (s *Server) GetProductByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if resp, err := s.productSvc.GetByID(c.Request.Context(), id); err == nil {
		c.JSON(http.StatusOK, gin.H{"data": resp})
		return
	}

	resp, err := s.productSvc.GetBySlug(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteProduct(c *gin.Context) {
	if err := s.productSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func isProductValidationError(err error) bool {
	switch err {
	case productdomain.ErrInvalidName,
		productdomain.ErrInvalidID,
		productdomain.ErrInvalidPrice,
		productdomain.ErrInvalidStock,
		productdomain.ErrInvalidCategory:
		return true
	default:
		return false
	}
}
