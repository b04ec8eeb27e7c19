// Package httpapi exposes the auth, feature, and PII operations over HTTP.
// Handlers are thin: they parse, call a service, and map sentinel errors to
// status codes.
package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"schoolorbit/backend/internal/audit"
	"schoolorbit/backend/internal/authz"
	"schoolorbit/backend/internal/feature"
	"schoolorbit/backend/internal/identity"
	"schoolorbit/backend/internal/pii"
	"schoolorbit/backend/internal/security"
)

// PIIRepository resolves the stored encrypted identifier envelope for a user.
// An empty envelope means none is on file.
type PIIRepository interface {
	GetNationalIDEnvelope(ctx context.Context, userID string) (string, error)
}

// Server holds the wired dependencies behind the HTTP surface.
type Server struct {
	identity *identity.Service
	tokens   *security.TokenProvider
	authz    *authz.Facade
	runtime  *feature.Runtime
	cipher   *pii.Cipher
	piiRepo  PIIRepository
	cookies  CookieWriter
	audit    audit.Emitter
}

// NewServer wires the HTTP surface. emitter may be audit.Nop{}.
func NewServer(
	identitySvc *identity.Service,
	tokens *security.TokenProvider,
	facade *authz.Facade,
	runtime *feature.Runtime,
	cipher *pii.Cipher,
	piiRepo PIIRepository,
	cookies CookieWriter,
	emitter audit.Emitter,
) *Server {
	if emitter == nil {
		emitter = audit.Nop{}
	}
	return &Server{
		identity: identitySvc,
		tokens:   tokens,
		authz:    facade,
		runtime:  runtime,
		cipher:   cipher,
		piiRepo:  piiRepo,
		cookies:  cookies,
		audit:    emitter,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("schoolorbit-backend"))

	r.GET("/healthz", s.health)

	auth := r.Group("/auth")
	{
		auth.POST("/login", s.login)
		auth.POST("/refresh", s.refresh)
		auth.POST("/logout", s.logout)
		auth.GET("/me", s.requireAuth(), s.me)
	}

	r.GET("/menu", s.requireAuth(), s.menu)

	api := r.Group("/api", s.requireAuth())
	{
		api.GET("/features", s.listFeatures)
		api.GET("/pii/national-id/:userId", s.nationalID)

		admin := api.Group("/admin/features", s.requireCSRF())
		{
			admin.GET("", s.adminListFeatures)
			admin.PATCH("/:code", s.adminSetFeature)
			admin.PUT("/:code/states/:state", s.adminSetState)
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
