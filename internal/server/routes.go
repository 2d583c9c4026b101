// Package server wires the HTTP routes.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lcsmdq/MyPlan/internal/auth"
	"github.com/lcsmdq/MyPlan/internal/config"
	"github.com/lcsmdq/MyPlan/internal/events"
	"github.com/lcsmdq/MyPlan/internal/favorites"
	"github.com/lcsmdq/MyPlan/internal/logging"
	"github.com/lcsmdq/MyPlan/internal/marks"
	"github.com/lcsmdq/MyPlan/internal/models"
	"github.com/lcsmdq/MyPlan/internal/users"
	"github.com/lcsmdq/MyPlan/internal/web"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the dependencies of the HTTP layer.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *zap.Logger

	// UserStoreOpts tune the identity store. Tests lower the hash cost.
	UserStoreOpts []users.StoreOptArgs
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	web.UseJSONFieldNames()

	tokens, err := auth.NewTokenService(auth.TokenServiceArgs{
		Secret: deps.Config.JWTSecret,
		TTL:    deps.Config.TokenExpiry,
	})
	if err != nil {
		return nil, err
	}

	userStore := users.New(deps.DB, deps.UserStoreOpts...)
	eventStore := events.NewStore(events.StoreArgs{DB: deps.DB})
	markLedger := marks.NewLedger(marks.LedgerArgs{DB: deps.DB})
	favoriteLedger := favorites.NewLedger(favorites.LedgerArgs{DB: deps.DB})

	authHandler := auth.NewHandler(userStore, tokens, deps.Logger)
	userHandler := users.NewHandler(userStore, deps.Logger)
	eventHandler := events.NewHandler(eventStore, deps.Logger)
	markHandler := marks.NewHandler(markLedger, deps.Logger)
	favoriteHandler := favorites.NewHandler(favoriteLedger, deps.Logger)

	r := gin.New()
	r.Use(logging.Middleware(deps.Logger), gin.Recovery())
	r.Use(web.CORSMiddleware(deps.Config.CORSAllowedOrigins))

	requireAuth := auth.RequireAuth(tokens, userStore, deps.Logger)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public Routes
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/change-password", requireAuth, authHandler.ChangePassword)
	}

	userGroup := r.Group("/users")
	{
		userGroup.GET("/me", requireAuth, userHandler.Me)
		userGroup.PATCH("/me", requireAuth, userHandler.UpdateMe)
		userGroup.DELETE("/me", requireAuth, userHandler.DeleteMe)
		userGroup.GET("/:id", userHandler.Profile)
	}

	eventGroup := r.Group("/events")
	{
		eventGroup.GET("/", eventHandler.List)
		eventGroup.GET("/:id", eventHandler.Get)
		eventGroup.GET("/:id/stats", markHandler.Stats)

		eventGroup.POST("/", requireAuth, auth.RequireRole(models.RoleOrganizer), eventHandler.Create)
		eventGroup.PATCH("/:id", requireAuth, eventHandler.Update)
		eventGroup.DELETE("/:id", requireAuth, eventHandler.Delete)

		// MARKS
		eventGroup.POST("/:id/assist", requireAuth, markHandler.Toggle(models.MarkAssist))
		eventGroup.POST("/:id/like", requireAuth, markHandler.Toggle(models.MarkLike))
	}

	r.GET("/assists/my-marks", requireAuth, markHandler.MyMarks)

	// Protected Routes
	favoriteGroup := r.Group("/favorites")
	favoriteGroup.Use(requireAuth)
	{
		favoriteGroup.POST("/", favoriteHandler.Create)
		favoriteGroup.GET("/", favoriteHandler.List)
		favoriteGroup.GET("/ids", favoriteHandler.IDs)
		favoriteGroup.GET("/count", favoriteHandler.Count)
		favoriteGroup.GET("/history", favoriteHandler.History)
		favoriteGroup.GET("/check/:category_id", favoriteHandler.Check)
		favoriteGroup.DELETE("/:category_id", favoriteHandler.Delete)
		favoriteGroup.POST("/:category_id/restore", favoriteHandler.Restore)
		favoriteGroup.GET("/users/:user_id", auth.RequireRole(models.RoleAdmin), favoriteHandler.ListForUser)
	}

	return r, nil
}
