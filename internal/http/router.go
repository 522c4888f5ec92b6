package http

import (
	"log/slog"
	"time"

	"github.com/casahub/casahub/internal/config"
	"github.com/casahub/casahub/internal/http/handlers"
	"github.com/casahub/casahub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/casahub/casahub/internal/observability"
)

const maxJSONBodyBytes = 1 << 20

// Deps carries everything the route tree needs. main builds one of these;
// tests build smaller ones by hand.
type Deps struct {
	Cfg config.Config
	Log *slog.Logger

	Auth     *handlers.AuthHandler
	Users    *handlers.UsersHandler
	Listings *handlers.ListingsHandler
	Upload   *handlers.UploadHandler
	Health   *handlers.HealthHandler

	AuthMW *middlewares.AuthMiddleware

	Prom     *observability.Prom
	Registry *prometheus.Registry
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.CORSOrigins))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	r.Use(otelgin.Middleware("casahub-api"))
	r.Use(middlewares.RequireJSON("/api/upload"))

	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	r.GET("/healthz", d.Health.Healthz)
	r.GET("/readyz", d.Health.Readyz)

	api := r.Group("/api")
	api.Use(middlewares.MaxBodyBytes(maxJSONBodyBytes))

	// credential endpoints share one brute-force window per client IP
	authLimiter := middlewares.NewRateLimiter(20, time.Minute)

	authGroup := api.Group("/auth")
	authGroup.Use(authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		authGroup.POST("/signup", d.Auth.SignUp)
		authGroup.POST("/signin", d.Auth.SignIn)
		authGroup.POST("/google", d.Auth.Google)
		authGroup.POST("/signout", d.Auth.SignOut)
	}

	userGroup := api.Group("/user")
	{
		userGroup.GET("/:id", d.Users.GetUser)

		protected := userGroup.Group("")
		protected.Use(d.AuthMW.RequireAuth())
		{
			protected.PUT("/update/:id", d.Users.UpdateUser)
			protected.DELETE("/delete/:id", d.Users.DeleteUser)
			protected.GET("/listings/:id", d.Users.GetUserListings)
		}
	}

	listingGroup := api.Group("/listing")
	{
		listingGroup.GET("/get/:id", d.Listings.GetListing)
		listingGroup.GET("/get", d.Listings.SearchListings)

		protected := listingGroup.Group("")
		protected.Use(d.AuthMW.RequireAuth())
		{
			protected.POST("/create", d.Listings.CreateListing)
			protected.POST("/update/:id", d.Listings.UpdateListing)
			protected.DELETE("/delete/:id", d.Listings.DeleteListing)
		}
	}

	// registered outside the api group so the JSON body cap does not apply;
	// the image bytes plus multipart framing need the larger limit
	r.POST("/api/upload",
		middlewares.MaxBodyBytes(maxUploadBodyBytes),
		d.AuthMW.RequireAuth(),
		d.Upload.Upload,
	)

	return r
}

const maxUploadBodyBytes = 6 << 20
