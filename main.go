package main

import (
	"github.com/lumeha/presence/config"
	"github.com/lumeha/presence/models"
	"github.com/lumeha/presence/routes"
	"github.com/lumeha/presence/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.AttendanceRecord{},
		&models.SessionType{},
		&models.CompanyLocation{},
		&models.FaceTemplate{},
		&models.APIAudit{},
	)

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
