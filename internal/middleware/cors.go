package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the storefront and admin panel origins. Extra origins come from CORS_ORIGINS.
func CORS(extraOrigins ...string) gin.HandlerFunc {
	origins := []string{
		"http://localhost:3000", // storefront
		"http://localhost:5173", // admin panel (vite)
	}
	for _, o := range extraOrigins {
		if o != "" {
			origins = append(origins, o)
		}
	}

	config := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(config)
}
