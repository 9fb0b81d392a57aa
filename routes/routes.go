package routes

import (
	"github.com/evopanel/evopanel/controllers"
	"github.com/evopanel/evopanel/session"
	"github.com/gin-gonic/gin"
)

// SetupRoutes wires every controller behind the session middleware.
// Page-level routes redirect anonymous callers to the login entry
// point; the /ajax group answers JSON envelopes instead.
func SetupRoutes(
	router *gin.Engine,
	sessions *session.Manager,
	auth *controllers.AuthController,
	instances *controllers.InstanceController,
	admin *controllers.AdminController,
	webhooks *controllers.WebhookController,
	tutorials *controllers.TutorialController,
) {
	router.Use(sessions.Middleware())

	router.GET("/login", auth.LoginPage)
	router.POST("/login", auth.Login)
	router.POST("/logout", sessions.RequireAuth(), auth.Logout)
	router.POST("/forgot-password", auth.ForgotPassword)
	router.POST("/reset-password", auth.ResetPassword)
	router.POST("/change-password", sessions.RequireAuth(), auth.ChangePassword)

	router.GET("/dashboard", sessions.RequireAuth(), instances.Dashboard)

	instanceGroup := router.Group("/instances", sessions.RequireAuth())
	{
		instanceGroup.POST("", instances.Create)
		instanceGroup.GET("/:name", instances.Show)
		instanceGroup.POST("/settings", instances.UpdateSettings)
		instanceGroup.POST("/delete", instances.Delete)

		instanceGroup.GET("/:name/webhook", webhooks.GetWebhook)
		instanceGroup.POST("/webhook", webhooks.SetWebhook)
		instanceGroup.GET("/:name/chatwoot", webhooks.GetChatwoot)
		instanceGroup.POST("/chatwoot", webhooks.SetChatwoot)
	}

	ajax := router.Group("/ajax", sessions.RequireAuthJSON())
	{
		ajax.POST("/check_connection", instances.CheckConnection)
		ajax.POST("/disconnect_instance", instances.Disconnect)
		ajax.POST("/get_qrcode", instances.GetQRCode)
		ajax.POST("/sync_settings", instances.SyncSettings)
		ajax.POST("/send_test", instances.SendTest)
	}

	adminGroup := router.Group("/admin", sessions.RequireAdmin())
	{
		adminGroup.GET("/users", admin.ListUsers)
		adminGroup.POST("/users", admin.CreateUser)
		adminGroup.POST("/users/:id", admin.UpdateUser)
		adminGroup.POST("/users/:id/deactivate", admin.DeactivateUser)
		adminGroup.POST("/instances/delete", admin.DeleteInstance)
	}

	router.GET("/tutorials", sessions.RequireAuth(), tutorials.List)
	tutorialAdmin := router.Group("/tutorials", sessions.RequireAdmin())
	{
		tutorialAdmin.POST("", tutorials.Create)
		tutorialAdmin.POST("/:id", tutorials.Update)
		tutorialAdmin.POST("/:id/delete", tutorials.Delete)
	}
}
