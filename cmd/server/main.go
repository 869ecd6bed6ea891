package main

import (
	"context"
	"log"
	"os"

	"go-raffle-engine/config"
	"go-raffle-engine/internal/database"
	"go-raffle-engine/internal/gateway"
	"go-raffle-engine/internal/handler"
	"go-raffle-engine/internal/notifier"
	"go-raffle-engine/internal/queue"
	"go-raffle-engine/internal/repository"
	"go-raffle-engine/internal/service"
	"go-raffle-engine/internal/sweeper"
	"go-raffle-engine/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.LoadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	hostname, _ := os.Hostname()
	paymentQueue, err := queue.NewRedisStreamPaymentQueue(rdb, hostname, nil)
	if err != nil {
		log.Fatalf("Failed to initialize payment queue: %v", err)
	}

	raffleRepo := repository.NewRaffleRepository(pool)
	numberRepo := repository.NewNumberRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	referralRepo := repository.NewReferralRepository(pool)
	prizeRepo := repository.NewPrizeRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	pixGateway := gateway.NewPixGateway(cfg.Gateway)
	whatsApp := notifier.NewWhatsAppNotifier(cfg.Notifier)
	telegram := notifier.NewTelegramNotifier(cfg.Notifier)

	prizeService := service.NewPrizeService(pool, prizeRepo, numberRepo)
	raffleService := service.NewRaffleService(pool, raffleRepo, numberRepo, orderRepo)
	referralService := service.NewReferralService(pool, referralRepo, numberRepo)
	orderService := service.NewOrderService(pool, orderRepo, raffleRepo, numberRepo, referralRepo, prizeService, pixGateway, cfg.Engine.ReservationWindow)
	paymentService := service.NewPaymentService(pool, orderRepo, raffleRepo, numberRepo, userRepo, prizeService, referralService, whatsApp, telegram)

	paymentWorker := worker.NewPaymentWorker(paymentService, paymentQueue)
	if err := paymentWorker.Start(ctx); err != nil {
		log.Fatalf("Failed to start payment worker: %v", err)
	}

	sweep := sweeper.NewSweeper(pool, numberRepo, orderRepo, cfg.Engine.SweepInterval)
	go sweep.Run(ctx)

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.NewRaffleHandler(raffleService, prizeService).RegisterRoutes(router)
	handler.NewOrderHandler(orderService).RegisterRoutes(router)
	handler.NewReferralHandler(referralService).RegisterRoutes(router)
	handler.NewWebhookHandler(paymentQueue).RegisterRoutes(router)
	handler.NewAdminHandler(sweep).RegisterRoutes(router)

	router.Run()
}
