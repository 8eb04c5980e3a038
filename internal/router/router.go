package router

import (
	"log/slog"
	"time"

	"healthtrack-api/internal/handlers"
	"healthtrack-api/internal/middleware"
	"healthtrack-api/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services bundles what the routes need.
type Services struct {
	Auth   *services.AuthService
	Users  *services.UserService
	Habits *services.HabitService
	Chat   *services.ChatService
}

// Options configures the engine.
type Options struct {
	CORSOrigins []string
	Logger      *slog.Logger
}

// Setup builds the gin engine with every route of the API.
func Setup(svc Services, opts Options) *gin.Engine {
	handlers.RegisterValidation()
	log := opts.Logger
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:8000"}
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "x-token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authH := handlers.NewAuthHandler(svc.Auth, log)
	userH := handlers.NewUserHandler(svc.Users, log)
	habitH := handlers.NewHabitHandler(svc.Habits, log)
	chatH := handlers.NewChatHandler(svc.Chat, log)
	requireAuth := middleware.RequireAuth(svc.Auth, log)

	r.GET("/", handlers.Root)
	r.GET("/health", handlers.Health)

	api := r.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	{
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
		auth.POST("/verify-token", authH.VerifyToken)
		auth.POST("/change-password", requireAuth, authH.ChangePassword)
	}
	api.POST("/usuarios", userH.Create)
	api.POST("/usuarios/login", authH.LocalLogin)
	api.POST("/habitos-recomendados", handlers.Recommendations)

	// Protected routes
	protected := api.Group("")
	protected.Use(requireAuth)
	{
		usuarios := protected.Group("/usuarios")
		usuarios.GET("", userH.List)
		usuarios.GET("/username/:username", userH.GetByUsername)
		usuarios.PUT("/perfil/:username", userH.UpdateProfile)
		usuarios.PUT("/admin/update/:username", userH.UpdateAdmin)
		usuarios.PUT("/assign/:uid", userH.AssignProfessional)
		usuarios.GET("/:id", userH.Get)
		usuarios.PUT("/:id", userH.UpdateIdentity)
		usuarios.DELETE("/:id", userH.Delete)

		protected.POST("/habito-definicion", habitH.CreateDefinition)
		protected.GET("/habito-definicion", habitH.ListDefinitions)
		protected.GET("/habito-definicion/:username", habitH.ListDefinitions)
		protected.DELETE("/habito-definicion/:id", habitH.DeleteDefinition)
		protected.POST("/habito-registro", habitH.RegisterEntry)
		protected.GET("/habito-registro", habitH.ListRegistrations)
		protected.GET("/habito-registro/:username", habitH.ListRegistrations)

		habitos := protected.Group("/habitos")
		habitos.GET("", habitH.ListGoals)
		habitos.POST("", habitH.CreateGoal)
		habitos.GET("/:id", habitH.GetGoal)
		habitos.PUT("/:id", habitH.UpdateGoal)
		habitos.DELETE("/:id", habitH.DeleteGoal)

		chat := protected.Group("/chat")
		chat.GET("/:uid", chatH.ListMessages)
		chat.POST("/:uid", chatH.SendMessage)
		chat.GET("/:uid/resumen", chatH.Summary)
	}

	r.NoRoute(handlers.NotFound)
	return r
}
