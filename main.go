package main

import (
	"log"
	"net/http"

	"github.com/evopanel/evopanel/config"
	"github.com/evopanel/evopanel/controllers"
	"github.com/evopanel/evopanel/database"
	"github.com/evopanel/evopanel/gateway"
	"github.com/evopanel/evopanel/logger"
	"github.com/evopanel/evopanel/mailer"
	"github.com/evopanel/evopanel/routes"
	"github.com/evopanel/evopanel/security"
	"github.com/evopanel/evopanel/session"
	"github.com/gin-gonic/gin"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		log.Fatal("Error loading configuration:", err)
	}

	appLog := logger.New(env.LogFile)
	defer appLog.Close()

	pgClient, err := database.NewPostgresClient(env.DBHost, env.DBUser, env.DBPassword, env.DBName, env.DBPort)
	if err != nil {
		log.Fatal("Error connecting to database:", err)
	}
	if err := database.AutoMigrate(pgClient); err != nil {
		log.Fatal("Error migrating database:", err)
	}

	redisClient, err := database.GetRedisClient(env.RedisAddr, env.RedisPass, env.RedisDB)
	if err != nil {
		log.Fatal("Error connecting to redis:", err)
	}

	apiClient, err := gateway.NewClient(env.APIBaseURL, env.APIKey, appLog)
	if err != nil {
		log.Fatal("Error configuring gateway client:", err)
	}

	sessions := session.NewManager(redisClient, pgClient, env.SessionLifetime)
	sec := security.NewService(pgClient, env.MaxLoginAttempts, env.LoginLockoutTime)
	mail := mailer.NewSMTPMailer(env.SMTPHost, env.SMTPPort, env.SMTPUser, env.SMTPPass, env.SMTPFrom, env.AppName)

	authController := controllers.NewAuthController(pgClient, sessions, sec, mail, appLog, env.AppURL)
	instanceController := controllers.NewInstanceController(pgClient, sessions, sec, apiClient, appLog)
	adminController := controllers.NewAdminController(pgClient, sessions, sec, apiClient, appLog)
	webhookController := controllers.NewWebhookController(pgClient, sec, apiClient, appLog)
	tutorialController := controllers.NewTutorialController(pgClient, sec, appLog)

	r := gin.Default()

	// Forwarded-for headers are honored only when the request came
	// through one of these hops.
	if err := r.SetTrustedProxies(env.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxy configuration:", err)
	}

	routes.SetupRoutes(r, sessions, authController, instanceController, adminController, webhookController, tutorialController)

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/login")
	})

	appLog.Info("%s starting on port %s", env.AppName, env.Port)
	if err := r.Run(":" + env.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
