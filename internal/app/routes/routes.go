package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/yigit/diplomaregistry/internal/app/controllers"
	"github.com/yigit/diplomaregistry/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	studentController *controllers.StudentController,
	healthController *controllers.HealthController,
	authMiddleware *middleware.AuthMiddleware,
) {
	router.GET("/health", healthController.Health)
	router.GET("/ping", healthController.Ping)

	// API version group
	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/login", authController.Login)
	}

	// Registry reads are public
	students := v1.Group("/students")
	{
		students.GET("", studentController.ListStudents)
		students.GET("/:id", studentController.GetStudent)
	}

	// --- Registrar routes ---
	registrar := v1.Group("")
	registrar.Use(authMiddleware.JWTAuth())
	{
		registrar.POST("/students", studentController.SubmitEnrollment)
		registrar.POST("/students/:id/credentials", studentController.MintCredential)
		registrar.DELETE("/students/:id", studentController.RemoveStudent)
		registrar.GET("/issuances/:id", studentController.GetIssuance)
	}
}
