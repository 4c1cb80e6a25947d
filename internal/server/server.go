package server

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	aidomain "github.com/hostwise/nightly/internal/ai/domain"
	"github.com/hostwise/nightly/internal/authorization"
	billingdomain "github.com/hostwise/nightly/internal/billing/domain"
	"github.com/hostwise/nightly/internal/config"
	groupdomain "github.com/hostwise/nightly/internal/group/domain"
	grouprecdomain "github.com/hostwise/nightly/internal/grouprec/domain"
	integrationdomain "github.com/hostwise/nightly/internal/integration/domain"
	signaldomain "github.com/hostwise/nightly/internal/marketsignal/domain"
	"github.com/hostwise/nightly/internal/observability"
	obslogger "github.com/hostwise/nightly/internal/observability/logger"
	obsmetrics "github.com/hostwise/nightly/internal/observability/metrics"
	obstracing "github.com/hostwise/nightly/internal/observability/tracing"
	overridedomain "github.com/hostwise/nightly/internal/override/domain"
	ownerdomain "github.com/hostwise/nightly/internal/owner/domain"
	"github.com/hostwise/nightly/internal/pricing/engine"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	reservationdomain "github.com/hostwise/nightly/internal/reservation/domain"
	syncdomain "github.com/hostwise/nightly/internal/sync/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, registry)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	addr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:    addr,
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
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	authzSvc       authorization.Service
	ownerSvc       ownerdomain.Service
	owners         ownerdomain.Repository
	propertySvc    propertydomain.Service
	groupSvc       groupdomain.Service
	reservationSvc reservationdomain.Service
	overrideSvc    overridedomain.Service
	integrationSvc integrationdomain.Service
	syncSvc        syncdomain.Service
	billingSvc     billingdomain.Service
	aiSvc          aidomain.Service
	signalSvc      signaldomain.Service
	pricingSvc     engine.Service
	recommenderSvc grouprecdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	AuthzSvc       authorization.Service
	OwnerSvc       ownerdomain.Service
	Owners         ownerdomain.Repository
	PropertySvc    propertydomain.Service
	GroupSvc       groupdomain.Service
	ReservationSvc reservationdomain.Service
	OverrideSvc    overridedomain.Service
	IntegrationSvc integrationdomain.Service
	SyncSvc        syncdomain.Service
	BillingSvc     billingdomain.Service
	AISvc          aidomain.Service
	SignalSvc      signaldomain.Service
	PricingSvc     engine.Service
	RecommenderSvc grouprecdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		authzSvc:       p.AuthzSvc,
		ownerSvc:       p.OwnerSvc,
		owners:         p.Owners,
		propertySvc:    p.PropertySvc,
		groupSvc:       p.GroupSvc,
		reservationSvc: p.ReservationSvc,
		overrideSvc:    p.OverrideSvc,
		integrationSvc: p.IntegrationSvc,
		syncSvc:        p.SyncSvc,
		billingSvc:     p.BillingSvc,
		aiSvc:          p.AISvc,
		signalSvc:      p.SignalSvc,
		pricingSvc:     p.PricingSvc,
		recommenderSvc: p.RecommenderSvc,
	}

	s.registerWebhookRoutes()
	s.registerAPIRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	// Webhooks authenticate by signature, not by bearer token.
	s.engine.POST("/webhooks/billing", s.HandleBillingWebhook)
}

func (s *Server) registerAPIRoutes() {
	authed := s.engine.Group("", s.AuthRequired())

	users := authed.Group("/users")
	{
		users.GET("/profile", s.GetProfile)
		users.PUT("/profile", s.UpdateProfile)
		users.GET("/ai-quota", s.GetAIQuota)
	}

	// Billing stays reachable for revoked owners so they can recover.
	authed.POST("/checkout/create-session",
		s.Authorize(authorization.ObjectBilling, authorization.ActionManage), s.CreateCheckoutSession)
	authed.GET("/billing/subscription",
		s.Authorize(authorization.ObjectBilling, authorization.ActionView), s.GetSubscription)

	api := authed.Group("", s.AccessRequired())

	properties := api.Group("/properties")
	{
		properties.GET("", s.Authorize(authorization.ObjectProperty, authorization.ActionView), s.ListProperties)
		properties.POST("", s.Authorize(authorization.ObjectProperty, authorization.ActionManage), s.CreateProperty)
		properties.GET("/:id", s.Authorize(authorization.ObjectProperty, authorization.ActionView), s.GetProperty)
		properties.PUT("/:id", s.Authorize(authorization.ObjectProperty, authorization.ActionManage), s.UpdateProperty)
		properties.DELETE("/:id", s.Authorize(authorization.ObjectProperty, authorization.ActionManage), s.DeleteProperty)
		properties.PUT("/:id/strategy", s.Authorize(authorization.ObjectProperty, authorization.ActionManage), s.UpdatePropertyStrategy)
		properties.PUT("/:id/rules", s.Authorize(authorization.ObjectProperty, authorization.ActionManage), s.UpdatePropertyRules)
		properties.PUT("/:id/status", s.Authorize(authorization.ObjectProperty, authorization.ActionManage), s.UpdatePropertyStatus)
		properties.GET("/:id/logs", s.Authorize(authorization.ObjectProperty, authorization.ActionView), s.ListPropertyLogs)
		properties.GET("/:id/price-overrides", s.Authorize(authorization.ObjectOverride, authorization.ActionView), s.ListPriceOverrides)
		properties.PUT("/:id/price-overrides", s.Authorize(authorization.ObjectOverride, authorization.ActionManage), s.PutPriceOverrides)
		properties.DELETE("/:id/price-overrides/:date", s.Authorize(authorization.ObjectOverride, authorization.ActionManage), s.DeletePriceOverride)
	}

	groups := api.Group("/groups")
	{
		groups.GET("", s.Authorize(authorization.ObjectGroup, authorization.ActionView), s.ListGroups)
		groups.POST("", s.Authorize(authorization.ObjectGroup, authorization.ActionManage), s.CreateGroup)
		groups.GET("/:id", s.Authorize(authorization.ObjectGroup, authorization.ActionView), s.GetGroup)
		groups.PUT("/:id", s.Authorize(authorization.ObjectGroup, authorization.ActionManage), s.UpdateGroup)
		groups.DELETE("/:id", s.Authorize(authorization.ObjectGroup, authorization.ActionManage), s.DeleteGroup)
		groups.PUT("/:id/properties", s.Authorize(authorization.ObjectGroup, authorization.ActionManage), s.AddGroupProperties)
		groups.DELETE("/:id/properties", s.Authorize(authorization.ObjectGroup, authorization.ActionManage), s.RemoveGroupProperties)
	}

	integrations := api.Group("/integrations")
	{
		integrations.GET("", s.Authorize(authorization.ObjectIntegration, authorization.ActionView), s.ListIntegrations)
		integrations.POST("/test-connection", s.Authorize(authorization.ObjectIntegration, authorization.ActionManage), s.TestConnection)
		integrations.POST("/connect", s.Authorize(authorization.ObjectIntegration, authorization.ActionManage), s.ConnectIntegration)
		integrations.POST("/sync-properties", s.Authorize(authorization.ObjectIntegration, authorization.ActionManage), s.SyncProperties)
		integrations.POST("/import-properties", s.Authorize(authorization.ObjectIntegration, authorization.ActionManage), s.ImportProperties)
		integrations.DELETE("/:id", s.Authorize(authorization.ObjectIntegration, authorization.ActionManage), s.DisconnectIntegration)
		integrations.POST("/:id/pull", s.Authorize(authorization.ObjectIntegration, authorization.ActionManage), s.PullIntegration)
		integrations.POST("/:id/push", s.Authorize(authorization.ObjectIntegration, authorization.ActionManage), s.PushIntegration)
	}

	bookings := api.Group("/bookings")
	{
		bookings.GET("", s.Authorize(authorization.ObjectReservation, authorization.ActionView), s.ListBookings)
		bookings.POST("", s.Authorize(authorization.ObjectReservation, authorization.ActionManage), s.CreateBooking)
		bookings.PUT("/:id", s.Authorize(authorization.ObjectReservation, authorization.ActionManage), s.UpdateBooking)
		bookings.DELETE("/:id", s.Authorize(authorization.ObjectReservation, authorization.ActionManage), s.DeleteBooking)
	}

	api.POST("/pricing/run", s.Authorize(authorization.ObjectPricing, authorization.ActionManage), s.RunPricing)
	api.POST("/reports/analyze-date", s.Authorize(authorization.ObjectPricing, authorization.ActionView), s.AnalyzeDate)
	api.GET("/news", s.GetNews)

	recommendations := api.Group("/recommendations")
	{
		recommendations.GET("/groups", s.Authorize(authorization.ObjectRecommendation, authorization.ActionView), s.ListGroupRecommendations)
		recommendations.POST("/groups/accept", s.Authorize(authorization.ObjectGroup, authorization.ActionManage), s.AcceptGroupRecommendation)
	}
}
