package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	reviewdomain "github.com/kiranalabs/kirana/internal/review/domain"
)

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Server) CreateReview(c *gin.Context) {
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reviewSvc.Create(c.Request.Context(), reviewdomain.CreateReviewRequest{
		ProductID: strings.TrimSpace(c.Param("id")),
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListProductReviews(c *gin.Context) {
	reviews, summary, err := s.reviewSvc.ListByProduct(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reviews, "summary": summary})
}

func (s *Server) DeleteReview(c *gin.Context) {
	if err := s.reviewSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func isReviewValidationError(err error) bool {
	switch err {
	case reviewdomain.ErrInvalidID,
		reviewdomain.ErrInvalidRating:
		return true
	default:
		return false
	}
}
