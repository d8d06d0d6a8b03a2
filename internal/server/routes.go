package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes builds the gin engine with middleware and all API routes.
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(s.logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Content-Type"},
	}))

	r.GET("/health", s.healthHandler)

	gen := r.Group("/generate")
	{
		gen.GET("/email", s.generateEmailHandler)
		gen.GET("/number", s.generateNumberHandler)
	}

	r.GET("/get_messages/:id", s.getMessagesHandler)
	r.GET("/check_sms/:session_id", s.checkSMSHandler)
	r.POST("/cancel/:id", s.cancelHandler)

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "up"})
}
