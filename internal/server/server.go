package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiranalabs/kirana/internal/authorization"
	"github.com/kiranalabs/kirana/internal/category"
	categorydomain "github.com/kiranalabs/kirana/internal/category/domain"
	"github.com/kiranalabs/kirana/internal/config"
	"github.com/kiranalabs/kirana/internal/gateway"
	gatewaydomain "github.com/kiranalabs/kirana/internal/gateway/domain"
	"github.com/kiranalabs/kirana/internal/intent"
	intentdomain "github.com/kiranalabs/kirana/internal/intent/domain"
	"github.com/kiranalabs/kirana/internal/observability"
	obsmetrics "github.com/kiranalabs/kirana/internal/observability/metrics"
	obsmiddleware "github.com/kiranalabs/kirana/internal/observability/logger"
	obstracing "github.com/kiranalabs/kirana/internal/observability/tracing"
	"github.com/kiranalabs/kirana/internal/order"
	orderdomain "github.com/kiranalabs/kirana/internal/order/domain"
	"github.com/kiranalabs/kirana/internal/payment"
	paymentdomain "github.com/kiranalabs/kirana/internal/payment/domain"
	"github.com/kiranalabs/kirana/internal/product"
	productdomain "github.com/kiranalabs/kirana/internal/product/domain"
	"github.com/kiranalabs/kirana/internal/providers"
	"github.com/kiranalabs/kirana/internal/ratelimit"
	"github.com/kiranalabs/kirana/internal/review"
	reviewdomain "github.com/kiranalabs/kirana/internal/review/domain"
	"github.com/kiranalabs/kirana/internal/user"
	userdomain "github.com/kiranalabs/kirana/internal/user/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	providers.Module,
	ratelimit.Module,
	user.Module,
	category.Module,
	product.Module,
	review.Module,
	order.Module,
	gateway.Module,
	intent.Module,
	payment.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	userSvc       userdomain.Service
	categorySvc   categorydomain.Service
	productSvc    productdomain.Service
	reviewSvc     reviewdomain.Service
	orderSvc      orderdomain.Service
	gatewaySvc    gatewaydomain.Service
	intentSvc     intentdomain.Service
	paymentSvc    paymentdomain.Service
	webhookSvc    paymentdomain.WebhookService
	authzSvc      authorization.Service
	syncLimiter   *ratelimit.SyncLimiter
	intentLimiter *rateLimiter
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	UserSvc     userdomain.Service
	CategorySvc categorydomain.Service
	ProductSvc  productdomain.Service
	ReviewSvc   reviewdomain.Service
	OrderSvc    orderdomain.Service
	GatewaySvc  gatewaydomain.Service
	IntentSvc   intentdomain.Service
	PaymentSvc  paymentdomain.Service
	WebhookSvc  paymentdomain.WebhookService
	AuthzSvc    authorization.Service
	SyncLimiter *ratelimit.SyncLimiter `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics    `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		userSvc:       p.UserSvc,
		categorySvc:   p.CategorySvc,
		productSvc:    p.ProductSvc,
		reviewSvc:     p.ReviewSvc,
		orderSvc:      p.OrderSvc,
		gatewaySvc:    p.GatewaySvc,
		intentSvc:     p.IntentSvc,
		paymentSvc:    p.PaymentSvc,
		webhookSvc:    p.WebhookSvc,
		authzSvc:      p.AuthzSvc,
		syncLimiter:   p.SyncLimiter,
		intentLimiter: newRateLimiter(5, time.Minute),
		obsMetrics:    p.ObsMetrics,
	}

	svc.registerWebhookRoutes()
	svc.registerPublicRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/:provider", s.WebhookRateLimit(), s.HandleGatewayWebhook)
}

// registerPublicRoutes covers the unauthenticated storefront surface.
func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/api")

	public.GET("/categories", s.ListCategories)
	public.GET("/categories/:id", s.GetCategoryByID)
	public.GET("/products", s.ListProducts)
	public.GET("/products/:id", s.GetProductByID)
	public.GET("/products/:id/reviews", s.ListProductReviews)
	public.GET("/gateways", s.GetActiveGateway)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.GET("/users/me", s.GetCurrentUser)
	api.POST("/addresses", s.AddAddress)
	api.GET("/addresses", s.ListAddresses)
	api.POST("/addresses/:id/default", s.SetDefaultAddress)
	api.DELETE("/addresses/:id", s.DeleteAddress)

	api.POST("/products/:id/reviews", s.CreateReview)
	api.DELETE("/reviews/:id", s.DeleteReview)

	api.POST("/orders", s.CreateOrder)
	api.GET("/orders", s.ListOrders)
	api.GET("/orders/:id", s.GetOrderByID)
	api.POST("/orders/:id/cancel", s.CancelOrder)
	api.GET("/orders/:id/receipt", s.DownloadOrderReceipt)
	api.GET("/orders/:id/payments", s.ListOrderPayments)
	api.GET("/orders/:id/payment-intents", s.ListOrderPaymentIntents)

	api.POST("/payment-intents", s.CreatePaymentIntent)
	api.GET("/payment-intents/:id", s.GetPaymentIntent)

	api.POST("/payments/verify", s.VerifyPayment)

	sync := api.Group("/payments/sync", s.SyncRateLimit())
	sync.POST("/:paymentId", s.SyncPayment)
	sync.POST("/gateway/:gatewayPaymentId", s.SyncPaymentByGatewayID)
	sync.POST("/order/:orderId", s.SyncOrderPayments)
	sync.POST("/bulk/pending", s.RequireAdmin(), s.RequirePermission(authorization.ObjectPayment, authorization.ActionPaymentSweep), s.SyncPendingPayments)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AuthRequired(), s.RequireAdmin())

	admin.POST("/users", s.RequirePermission(authorization.ObjectUser, authorization.ActionCreate), s.CreateUser)
	admin.GET("/users/:id", s.RequirePermission(authorization.ObjectUser, authorization.ActionView), s.GetUserByID)

	admin.POST("/categories", s.RequirePermission(authorization.ObjectCategory, authorization.ActionCreate), s.CreateCategory)
	admin.PATCH("/categories/:id", s.RequirePermission(authorization.ObjectCategory, authorization.ActionUpdate), s.UpdateCategory)
	admin.DELETE("/categories/:id", s.RequirePermission(authorization.ObjectCategory, authorization.ActionDelete), s.DeleteCategory)

	admin.POST("/products", s.RequirePermission(authorization.ObjectProduct, authorization.ActionCreate), s.CreateProduct)
	admin.PATCH("/products/:id", s.RequirePermission(authorization.ObjectProduct, authorization.ActionUpdate), s.UpdateProduct)
	admin.DELETE("/products/:id", s.RequirePermission(authorization.ObjectProduct, authorization.ActionDelete), s.DeleteProduct)

	admin.PATCH("/orders/:id/status", s.RequirePermission(authorization.ObjectOrder, authorization.ActionOrderManage), s.UpdateOrderStatus)

	gateways := admin.Group("/gateways", s.RequirePermission(authorization.ObjectGateway, authorization.ActionGatewayManage))
	gateways.POST("", s.CreateGateway)
	gateways.GET("", s.ListGateways)
	gateways.GET("/:id", s.GetGatewayByID)
	gateways.PATCH("/:id", s.UpdateGateway)
	gateways.DELETE("/:id", s.DeleteGateway)

	admin.POST("/payments/:paymentId/refunds", s.RequirePermission(authorization.ObjectPayment, authorization.ActionPaymentSync), s.CreateRefund)
}
