package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/auth"
	"github.com/ShivpalBellway/DevBhakti/internal/http/handlers"
	"github.com/ShivpalBellway/DevBhakti/internal/metrics"
	"github.com/ShivpalBellway/DevBhakti/internal/middleware"
	"github.com/ShivpalBellway/DevBhakti/internal/model"
	"github.com/ShivpalBellway/DevBhakti/internal/repo"
	"github.com/ShivpalBellway/DevBhakti/internal/upload"
)

// Rate limit budgets per client IP
var (
	SendOTPBudget   = middleware.Budget{Window: 10 * time.Minute, MaxReqs: 10}
	VerifyOTPBudget = middleware.Budget{Window: 10 * time.Minute, MaxReqs: 20}
	LoginBudget     = middleware.Budget{Window: 10 * time.Minute, MaxReqs: 20}
	RegisterBudget  = middleware.Budget{Window: time.Hour, MaxReqs: 5}
)

// Deps are the collaborators the router wires into handlers
type Deps struct {
	Auth        *handlers.AuthHandler
	Institution *handlers.InstitutionHandler
	Catalog     *handlers.CatalogHandler
	Health      *handlers.HealthHandler

	JWT      *auth.JWTService
	Accounts repo.AccountRepo
	Limiters *middleware.LimiterFactory
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	UploadDir   string
	CORSOrigins []string
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(d.Metrics.InstrumentHandler)

	r.Get("/health", d.Health.ServeHTTP)
	r.Handle("/metrics", d.Metrics.Handler())
	if d.UploadDir != "" {
		fs := http.StripPrefix(upload.PublicPrefix+"/", http.FileServer(http.Dir(d.UploadDir)))
		r.Handle(upload.PublicPrefix+"/*", fs)
	}

	authenticated := middleware.AuthMiddleware(d.JWT, d.Accounts)
	limit := func(bucket string, b middleware.Budget) func(http.Handler) http.Handler {
		d.Logger.Debug("rate limit", zap.String("bucket", bucket), zap.Stringer("budget", b))
		return middleware.RateLimitMiddleware(d.Limiters.New(bucket, b), bucket, middleware.GetIPKey, d.Metrics, d.Logger)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(limit("send_otp", SendOTPBudget)).Post("/send-otp", d.Auth.HandleSendOTP)
			r.With(limit("verify_otp", VerifyOTPBudget)).Post("/verify-otp", d.Auth.HandleVerifyOTP)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Get("/me", d.Auth.HandleMe)
				r.Put("/profile", d.Auth.HandleUpdateProfile)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(limit("admin_login", LoginBudget)).Post("/auth/login", d.Auth.HandleAdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Use(middleware.RequireRole(model.RoleAdmin))

				r.Get("/institutions", d.Institution.HandleList)
				r.Post("/institutions", d.Institution.HandleAdminCreate)
				r.Put("/institutions/{id}", d.Institution.HandleAdminUpdate)
				r.Delete("/institutions/{id}", d.Institution.HandleAdminDelete)
				r.Patch("/institutions/{id}/status", d.Institution.HandleToggleStatus)

				r.Post("/poojas", d.Catalog.HandleCreatePooja)
				r.Delete("/poojas/{id}", d.Catalog.HandleDeletePooja)
			})
		})

		r.Route("/institution", func(r chi.Router) {
			r.With(limit("institution_login", LoginBudget)).Post("/auth/login", d.Auth.HandleInstitutionLogin)
			r.With(limit("register", RegisterBudget)).Post("/temples/register", d.Institution.HandleRegister)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Use(middleware.RequireRole(model.RoleInstitution))

				r.Get("/temples/me", d.Institution.HandleGetMyTemple)
				r.Put("/temples/me", d.Institution.HandleUpdateMyTemple)
				r.Post("/poojas", d.Catalog.HandleCreatePooja)
				r.Delete("/poojas/{id}", d.Catalog.HandleDeletePooja)
			})
		})

		r.Route("/temples", func(r chi.Router) {
			r.Get("/", d.Catalog.HandleListTemples)
			r.Get("/{id}/poojas", d.Catalog.HandleListTemplePoojas)
			r.Get("/poojas/{id}", d.Catalog.HandleGetPooja)
		})
	})

	return r
}
