package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"esocial/internal/infra/config"
	"esocial/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	User           UserHTTP
	Message        MessageHTTP
	Post           PostHTTP
	Comment        CommentHTTP
	Group          GroupHTTP
	Mentorship     MentorshipHTTP
	Upload         UploadHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
		api.POST("/auth/verify-email", h.Auth.VerifyEmail)
		api.POST("/auth/forgot-password", h.Auth.ForgotPassword)
		api.POST("/auth/reset-password", h.Auth.ResetPassword)
	}
	if h.User != nil {
		api.GET("/users/search", h.User.Search)
		api.GET("/users/:id", h.User.Profile)
		api.PUT("/users/me", h.User.UpdateProfile)
		api.POST("/users/me/heartbeat", h.User.Heartbeat)
	}
	if h.Message != nil {
		api.POST("/messages", h.Message.Send)
		api.GET("/messages/conversations", h.Message.Conversations)
		api.GET("/messages/with/:userId", h.Message.Thread)
		api.PUT("/messages/:id/read", h.Message.MarkRead)
		api.DELETE("/messages/:id", h.Message.Delete)
	}
	if h.Post != nil {
		api.POST("/posts", h.Post.Create)
		api.GET("/posts", h.Post.Feed)
		api.GET("/posts/:id", h.Post.Get)
		api.PUT("/posts/:id", h.Post.Update)
		api.DELETE("/posts/:id", h.Post.Delete)
		api.POST("/posts/:id/like", h.Post.ToggleLike)
		api.POST("/posts/:id/repost", h.Post.ToggleRepost)
	}
	if h.Comment != nil {
		api.POST("/posts/:id/comments", h.Comment.Add)
		api.GET("/posts/:id/comments", h.Comment.List)
		api.POST("/posts/:id/comments/:commentId/like", h.Comment.ToggleLike)
		api.DELETE("/posts/:id/comments/:commentId", h.Comment.Delete)
	}
	if h.Group != nil {
		groupRoutes := api.Group("/groups")
		groupRoutes.POST("", h.Group.Create)
		groupRoutes.GET("", h.Group.List)
		groupRoutes.GET("/:id", h.Group.Get)
		groupRoutes.PUT("/:id", h.Group.Update)
		groupRoutes.POST("/:id/join", h.Group.Join)
		groupRoutes.POST("/:id/leave", h.Group.Leave)
		groupRoutes.POST("/:id/invite-code", h.Group.RotateInviteCode)
	}
	if h.Mentorship != nil {
		mentorshipRoutes := api.Group("/mentorships")
		mentorshipRoutes.POST("", h.Mentorship.Request)
		mentorshipRoutes.GET("", h.Mentorship.List)
		mentorshipRoutes.GET("/:id", h.Mentorship.Get)
		mentorshipRoutes.POST("/:id/accept", h.Mentorship.Accept)
		mentorshipRoutes.POST("/:id/complete", h.Mentorship.Complete)
		mentorshipRoutes.POST("/:id/cancel", h.Mentorship.Cancel)
		mentorshipRoutes.POST("/:id/notes", h.Mentorship.AddNote)
		mentorshipRoutes.POST("/:id/rate", h.Mentorship.Rate)
	}
	if h.Upload != nil {
		api.POST("/uploads", h.Upload.Upload)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
