package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/identity-api/internal/handler"
	"github.com/jwalitptl/identity-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
}

type Router struct {
	engine *gin.Engine
	h      *handler.Handler
	userH  Handler
	cfg    RouterConfig
}

func NewRouter(h *handler.Handler, userH Handler, cfg RouterConfig) *Router {
	return &Router{
		engine: gin.New(),
		h:      h,
		userH:  userH,
		cfg:    cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	middleware.RegisterValidationNames()

	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger())
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.ErrorHandler())

	if r.cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  r.cfg.RateLimit,
			Burst: r.cfg.RateBurst,
		})
		r.engine.Use(limiter.RateLimit())
	}

	r.engine.GET("/health/live", r.h.LivenessCheck)
	r.engine.GET("/health/ready", r.h.ReadinessCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	r.userH.RegisterRoutes(api)

	return r.engine
}
