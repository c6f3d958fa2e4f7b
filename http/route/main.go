package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/http/controller"
	middlewares "github.com/mytorahtale/my-torah-complete-admin-dashboard/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}
	r.Use(middles.CORSMiddleware)

	// Provider callbacks authenticate with an HMAC signature, not a JWT.
	r.POST("/webhooks/model", ctrl.HandleModelWebhook)

	apiRoutes := r.Group("/api/v1/storybook")
	{
		apiRoutes.Use(middles.AuthMiddleware)

		userRoutes := apiRoutes.Group("/users")
		{
			userRoutes.POST("/", ctrl.CreateUser)
			userRoutes.GET("/", ctrl.ListUsers)
			userRoutes.GET("/:id", ctrl.GetUser)
			userRoutes.PUT("/:id", ctrl.UpdateUser)
			userRoutes.DELETE("/:id", ctrl.DeleteUser)

			userRoutes.POST("/:id/photos", ctrl.UploadReferencePhoto)
			userRoutes.GET("/:id/photos", ctrl.ListReferencePhotos)
			userRoutes.DELETE("/:id/photos/:photo_id", ctrl.DeleteReferencePhoto)
		}

		bookRoutes := apiRoutes.Group("/books")
		{
			bookRoutes.POST("/", ctrl.CreateBook)
			bookRoutes.GET("/", ctrl.ListBooks)
			bookRoutes.GET("/:id", ctrl.GetBook)
			bookRoutes.PUT("/:id", ctrl.UpdateBook)
			bookRoutes.DELETE("/:id", ctrl.DeleteBook)

			bookRoutes.POST("/:id/pages", ctrl.CreatePage)
			bookRoutes.PUT("/:id/pages/:page_id", ctrl.UpdatePage)
			bookRoutes.PUT("/:id/pages/:page_id/asset", ctrl.SelectPageAsset)
		}

		jobRoutes := apiRoutes.Group("/jobs")
		{
			jobRoutes.POST("/training", ctrl.StartTraining)
			jobRoutes.POST("/generation", ctrl.StartStorybook)
			jobRoutes.GET("/", ctrl.ListJobs)
			jobRoutes.GET("/:id", ctrl.GetJob)
			jobRoutes.GET("/:id/status", ctrl.GetJobStatus)
			jobRoutes.POST("/:id/cancel", ctrl.CancelJob)
		}

		apiRoutes.GET("/stream", ctrl.StreamJobUpdates)
		apiRoutes.GET("/dashboard", ctrl.GetDashboard)
	}

	return r
}
