package main

import (
	"log"

	"nexusgate/internal/config"
	"nexusgate/internal/database"
	"nexusgate/internal/erpnext"
	"nexusgate/internal/handlers"
	mw "nexusgate/internal/middleware"
	"nexusgate/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Init DB (tenant directory)
	if err := database.InitDB(cfg.DatabasePath); err != nil {
		log.Fatalf("Failed to init DB: %v", err)
	}

	// 3. Service logger
	logger, err := zap.NewProduction()
	if !cfg.IsProduction() {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 4. Services
	erpClient := erpnext.NewClient(cfg.ERPNextURL, logger.Named("erpnext"))
	dirSvc := services.NewDirectoryService(database.DB)
	benchSvc := services.NewBenchService(cfg, logger.Named("bench"))
	poller := services.NewActivationPoller(erpClient, logger.Named("poller"))
	provisioner := services.NewProvisioner(cfg, dirSvc, benchSvc, poller, erpClient, logger.Named("provisioner"))
	sessionSvc := services.NewSessionService(cfg, dirSvc, erpClient, logger.Named("session"))
	adminSvc := services.NewAdminService(dirSvc, benchSvc, erpClient, logger.Named("admin"))

	// 5. API Server
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(mw.TenantResolver(cfg.RootDomain))

	h := handlers.NewHandler(cfg, sessionSvc, provisioner, adminSvc, dirSvc, benchSvc)
	handlers.RegisterRoutes(e, h)

	log.Printf("NexusGate starting on %s (root domain %s)...", cfg.ListenAddr, cfg.RootDomain)
	e.Logger.Fatal(e.Start(cfg.ListenAddr))
}
