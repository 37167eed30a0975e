package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/middleware"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log        logrus.FieldLogger
	Similarity SimilarityService
	// DB and Records are nil when no database is configured; the record
	// routes are not registered then.
	DB           HealthChecker
	Records      RecordRepository
	CORSOrigins  []string
	Version      string
	MaxBodyBytes int64
}

const defaultMaxBodyBytes = 64 << 20

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(r *gin.Engine, deps *RouterDeps) {
	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(middleware.AccessLog(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.APIHeaders())
	r.Use(middleware.MaxBodySize(maxBody))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.Prometheus())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all route handlers.
func registerRoutes(r *gin.Engine, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.DB, deps.Records, log, deps.Version)
	sim := NewSimilarityHandler(deps.Similarity, log)

	// Path of the original web client.
	r.POST("/graph-similarity", sim.Compute)

	api := r.Group("/api/v1")
	api.GET("/health", health.Liveness)
	api.POST("/similarity", sim.Compute)

	if deps.Records != nil {
		records := NewRecordHandler(deps.Records, deps.Similarity, log)

		api.GET("/records", records.Get)
		api.GET("/entities/:id/records", records.MappedTo)
		api.POST("/similarity/records", records.Similarity)
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(r, deps)
	registerRoutes(r, deps)

	return r
}
