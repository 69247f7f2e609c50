package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Gin_postgres_redis_equipment_tool/app"
	"Gin_postgres_redis_equipment_tool/config"
	"Gin_postgres_redis_equipment_tool/routes"
)

func main() {
	config.LoadEnv()
	log := config.GetLogger()

	application := app.MustNew()
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.Bootstrap(ctx, application.Config, application.Repo)
	go application.StartSweeper(ctx)

	routes.RegisterRoutes(application.Router, application)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}
	log.Infof("listening on :%s", port)
	if err := application.Router.Run(":" + port); err != nil {
		log.Fatal("server: ", err)
	}
}
