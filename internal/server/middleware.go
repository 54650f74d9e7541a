package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kiranalabs/kirana/internal/actor"
	"github.com/kiranalabs/kirana/internal/authorization"
	obscontext "github.com/kiranalabs/kirana/internal/observability/context"
)

const (
	headerAuthorization = "Authorization"
	bearerPrefix        = "Bearer "
)

// AuthRequired resolves the bearer token to a user and stores the acting
// principal on the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader(headerAuthorization))
		if header == "" || !strings.HasPrefix(header, bearerPrefix) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		user, err := s.userSvc.FindByToken(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		current := actor.Actor{
			UserID: int64(user.ID),
			Email:  user.Email,
			Role:   user.Role,
		}

		ctx := actor.WithActor(c.Request.Context(), current)
		ctx = obscontext.WithActor(ctx, "user", user.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAdmin assumes AuthRequired already ran.
func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		current, ok := actor.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !current.IsAdmin() && !current.IsSystem() {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// RequirePermission enforces a policy check for the acting principal.
func (s *Server) RequirePermission(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		current, ok := actor.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), current, object, action); err != nil {
			if errors.Is(err, authorization.ErrForbidden) {
				AbortWithError(c, ErrForbidden)
				return
			}
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// SyncRateLimit throttles manual reconciliation calls per authenticated user.
// A redis outage fails open so payment syncs keep working.
func (s *Server) SyncRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.syncLimiter == nil || !s.syncLimiter.Enabled() {
			c.Next()
			return
		}

		subject := "anonymous"
		if current, ok := actor.FromContext(c.Request.Context()); ok {
			subject = strings.ToLower(current.Email)
		}

		result, err := s.syncLimiter.AllowSync(c.Request.Context(), subject)
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "payments_sync", "quota")
			}
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			AbortWithError(c, ErrRateLimited)
			return
		}
		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimitAllowed(c.Request.Context(), "payments_sync")
		}
		c.Next()
	}
}

// WebhookRateLimit throttles per gateway so one noisy provider cannot
// starve the others.
func (s *Server) WebhookRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.syncLimiter == nil || !s.syncLimiter.Enabled() {
			c.Next()
			return
		}

		gatewayName := strings.ToLower(strings.TrimSpace(c.Param("provider")))
		result, err := s.syncLimiter.AllowWebhook(c.Request.Context(), gatewayName)
		if err != nil {
			c.Next()
			return
		}

		if !result.Allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "webhooks", "quota")
			}
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			AbortWithError(c, ErrRateLimited)
			return
		}
		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimitAllowed(c.Request.Context(), "webhooks")
		}
		c.Next()
	}
}
