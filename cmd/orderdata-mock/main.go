package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/config"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/dataservice/memory"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/events"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/httpapi"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/websocket"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	logger := cfg.Log.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub("orderdata-mock", logger)
	go hub.Run(ctx)

	opts := []memory.Option{memory.WithPublisher(hub)}
	if cfg.MockServe.PublishKafka {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka publisher")
		}
		defer publisher.Close()
		go publisher.Run(ctx)
		opts = append(opts, memory.WithPublisher(publisher))
		logger.WithFields(logrus.Fields{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.Topic,
		}).Info("Publishing changes to Kafka")
	}

	backend := memory.New(logger, opts...)
	seed(backend, cfg.MockServe.SeedOrders, logger)

	router := mux.NewRouter()
	httpapi.NewHandler(backend, logger).Register(router)
	router.HandleFunc("/ws", hub.HandleWebSocket)
	router.Use(httpapi.LoggingMiddleware(logger))

	srv := &http.Server{
		Addr:         ":" + cfg.MockServe.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.MockServe.Port).Info("Starting mock order data service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	cancel()

	logger.Info("Server gracefully stopped")
}

// seed stores n sample orders numbered PEF-00001 onwards.
func seed(backend *memory.Service, n int, logger *logrus.Logger) {
	backend.SetRates(models.CurrencyRates{
		"EUR": decimal.RequireFromString("4.30"),
		"USD": decimal.RequireFromString("3.95"),
		"GBP": decimal.RequireFromString("5.05"),
	})

	currencies := []string{"EUR", "USD", "GBP", "PLN"}
	sources := []models.ServiceType{models.ServiceForwarding, models.ServicePurchase, models.ServiceConsolidation, models.ServiceExport}
	for i := 0; i < n; i++ {
		value := decimal.NewFromInt(int64(250 * (i + 1)))
		orderID := backend.Seed(models.Aggregate{
			Status: models.OrderStatus{
				Source:        sources[i%len(sources)],
				CustomerName:  fmt.Sprintf("Customer %d", i+1),
				CustomerEmail: fmt.Sprintf("customer%d@example.com", i+1),
			},
			Items: []models.Item{
				{Name: "Leather boots", Value: value, Quantity: 1, Weight: decimal.RequireFromString("1.8")},
				{Name: "Amber necklace", Value: decimal.NewFromInt(120), Quantity: 2, Weight: decimal.RequireFromString("0.2")},
			},
			Payment: &models.Payment{
				Currency:      currencies[i%len(currencies)],
				MethodCode:    "bank_transfer",
				ServiceFeePct: decimal.NewFromInt(7),
				PaymentFeePct: decimal.RequireFromString("3.9"),
				ItemsValue:    value.Add(decimal.NewFromInt(240)),
				ShippingValue: decimal.NewFromInt(95),
				AmountCosts:   decimal.NewFromInt(60),
			},
		}, []models.Quote{
			{
				CarrierKey:   "dhl",
				CarrierLabel: "DHL Express",
				Price:        decimal.NewFromInt(95),
				DaysMin:      2,
				DaysMax:      4,
				Status:       models.QuoteProposed,
				ExpiresAt:    time.Now().AddDate(0, 0, 7),
			},
		})
		logger.WithField("order_id", orderID).Debug("Seeded order")
	}
	logger.WithField("orders", n).Info("Mock data seeded")
}
