package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jumanahj/NextPay/internal/config"
	"github.com/jumanahj/NextPay/internal/db"
	"github.com/jumanahj/NextPay/internal/handlers"
	"github.com/jumanahj/NextPay/internal/repository"
	"github.com/jumanahj/NextPay/internal/service"
)

func main() {
	// 1. Load configuration
	cfg := config.LoadConfig()
	log.Println("✓ Configuration loaded")

	// 2. Initialize database connection
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	// 3. Initialize layers
	accountRepo := repository.NewAccountRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	instrumentRepo := repository.NewInstrumentRepository(pool)
	otpRepo := repository.NewOTPRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)

	var notifier service.Notifier
	if cfg.SMTPHost != "" {
		notifier = service.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		log.Println("SMTP not configured, codes will be logged to stdout")
		notifier = service.NewLogMailer()
	}

	var settlement service.SettlementPublisher = service.NoopSettlementNotifier{}
	if cfg.SettlementWebhookURL != "" {
		settlement = service.NewWebhookSettlementNotifier(cfg.SettlementWebhookURL)
	}

	engine := service.NewTransferService(accountRepo, instrumentRepo, orderRepo, paymentRepo)
	paymentService := service.NewPaymentService(
		otpRepo,
		orderRepo,
		accountRepo,
		paymentRepo,
		engine,
		notifier,
		service.NewFallbackLog(cfg.OTPFallbackFile),
		settlement,
		time.Duration(cfg.QueryTimeoutSeconds)*time.Second,
	)

	paymentHandler := handlers.NewPaymentHandler(paymentService)
	healthHandler := handlers.NewHealthHandler(pool)

	// 4. Setup Gin router
	router := gin.Default()
	paymentHandler.RegisterRoutes(router)
	healthHandler.RegisterRoutes(router)

	// 5. Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Println("🚀 Server starting on :" + cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("✓ Server exited")
}
