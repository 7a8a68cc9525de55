package devserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/threatflux/violetearClient/internal/models"
)

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.health)
	s.router.GET("/config.json", s.clientConfig)

	v1 := s.router.Group("/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", s.login)
			auth.POST("/register", s.register)
			auth.POST("/logout", s.authMW.RequireAuthentication(), s.logout)
		}

		protected := v1.Group("")
		protected.Use(s.authMW.RequireAuthentication())
		{
			protected.GET("/profiles", s.listProfiles)
			protected.POST("/reports/create", s.createReport)
			protected.GET("/reports/:id/tasks", s.listTasks)
			protected.GET("/reports/:id/events", s.reportEvents)
		}
	}

	s.router.NoRoute(func(c *gin.Context) {
		s.errorResponse(c, http.StatusNotFound, "route not found", nil)
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{Status: "ok", Version: s.version})
}

func (s *Server) clientConfig(c *gin.Context) {
	c.JSON(http.StatusOK, models.Config{APIURL: s.PublicURL()})
}
