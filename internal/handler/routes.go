package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler of the API.
type Handlers struct {
	Auth           *AuthHandler
	SignupRequests *SignupRequestHandler
	Org            *OrgHandler
	Metrics        *MetricsHandler
}

// RegisterRoutes mounts the API on r. authRequired guards the routes that act
// on behalf of a user.
func RegisterRoutes(r gin.IRouter, h Handlers, authRequired gin.HandlerFunc) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	auth := r.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.GET("/user/:id", h.Auth.UserDetails)

	me := auth.Group("/me", authRequired)
	me.GET("", h.Auth.Me)
	me.PATCH("", h.Auth.UpdateMe)
	me.DELETE("", h.Auth.DeleteMe)

	requests := auth.Group("/requests")
	requests.GET("", authRequired, h.SignupRequests.List)
	requests.GET("/:id", h.SignupRequests.Get)
	requests.GET("/:id/sse", h.SignupRequests.Stream)
	requests.PATCH("/:id/accept", authRequired, h.SignupRequests.Accept)
	requests.PATCH("/:id/reject", authRequired, h.SignupRequests.Reject)

	schools := r.Group("/schools")
	schools.POST("", h.Org.CreateSchool)
	schools.GET("/:uniqueName", h.Org.GetSchool)

	classes := r.Group("/classes")
	classes.POST("", h.Org.CreateClass)
	classes.GET("/:school", h.Org.ListClasses)
}
