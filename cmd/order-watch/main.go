package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/aggregate"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/config"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/dataservice"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/dataservice/postgres"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/finance"
	"github.com/PolandExportFlow/polandexportflow-git-sub001/internal/realtime"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	order := flag.String("order", "", "order number or id to watch")
	flag.Parse()
	lookup := *order
	if lookup == "" && flag.NArg() > 0 {
		lookup = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	logger := cfg.Log.Logger()
	if lookup == "" {
		logger.Fatal("An order number or id is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open data service")
	}
	defer closeBackend()

	service := dataservice.NewGuarded(backend, cfg.Breaker.Template(), logger)
	ctrl := aggregate.New(service, logger,
		aggregate.WithThrottleInterval(cfg.Realtime.Throttle),
		aggregate.WithResources(cfg.Realtime.Resources),
	)
	defer ctrl.Close()

	r := &reporter{ctrl: ctrl, logger: logger}
	ctrl.OnChange(r.changed)

	if err := ctrl.Load(ctx, lookup); err != nil {
		logger.WithError(err).WithField("lookup", lookup).Fatal("Failed to open order")
	}
	r.changed()

	src, closeSource, err := changeSource(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to set up change feed")
	}
	defer closeSource()
	if src != nil {
		if err := ctrl.Listen(src); err != nil {
			logger.WithError(err).Fatal("Failed to listen for changes")
		}
		logger.WithField("transport", cfg.Realtime.Transport).Info("Watching order for changes")
	} else {
		logger.Info("No change transport configured, showing a single snapshot")
		stop()
	}

	<-ctx.Done()

	for _, s := range service.Breakers().Snapshots() {
		logger.WithFields(logrus.Fields{
			"breaker":  s.Name,
			"state":    s.State,
			"requests": s.TotalRequests,
			"failures": s.TotalFailures,
			"rejected": s.TotalRejected,
		}).Info("Circuit breaker summary")
	}
	logger.Info("Order watch stopped")
}

func openBackend(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (dataservice.Service, func(), error) {
	switch cfg.Data.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Data.DSN, cfg.Data.DBWait, logger)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	default:
		return dataservice.NewClient(cfg.Data.BaseURL, cfg.Data.Timeout, logger), func() {}, nil
	}
}

func changeSource(cfg *config.Config, logger *logrus.Logger) (realtime.Source, func(), error) {
	noop := func() {}
	switch cfg.Realtime.Transport {
	case config.TransportNone:
		return nil, noop, nil
	case config.TransportPoll:
		return realtime.PollSource{Interval: cfg.Realtime.PollInterval}, noop, nil
	case config.TransportWebSocket:
		return &realtime.WebSocketSource{URL: cfg.Realtime.WebSocketURL, Logger: logger}, noop, nil
	case config.TransportKafka:
		return &realtime.KafkaSource{
			Brokers: strings.Join(cfg.Kafka.Brokers, ","),
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
			Logger:  logger,
		}, noop, nil
	case config.TransportRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return &realtime.RedisSource{Client: client, Prefix: cfg.Redis.Prefix, Logger: logger}, func() { client.Close() }, nil
	case config.TransportPostgres:
		return &realtime.PostgresSource{DSN: cfg.Data.DSN, Logger: logger}, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown realtime transport %q", cfg.Realtime.Transport)
}

// reporter logs the order summary whenever it differs from the last one.
type reporter struct {
	ctrl   *aggregate.Controller
	logger *logrus.Logger

	mutex sync.Mutex
	last  string
}

func (r *reporter) changed() {
	snap := r.ctrl.Snapshot()
	if snap.Loading || snap.OrderID == "" {
		return
	}
	t := snap.Totals
	fields := logrus.Fields{
		"order_id":      snap.OrderID,
		"order_number":  snap.Status.Number,
		"status":        snap.Status.Status,
		"source":        snap.Status.Source,
		"total":         finance.Format(t.Breakdown.Total, finance.BaseCurrency),
		"total_display": finance.Format(t.Converted.Total, t.Currency),
		"received":      finance.Format(t.Received, finance.BaseCurrency),
		"balance_due":   finance.Format(t.BalanceDue, finance.BaseCurrency),
		"due_display":   finance.Format(t.ConvertedBalanceDue, t.Currency),
		"profit":        finance.Format(t.Profit, finance.BaseCurrency),
		"ledger_total":  finance.Format(t.LedgerTotal, finance.BaseCurrency),
		"ledger_diff":   finance.Format(t.LedgerDivergence, finance.BaseCurrency),
		"items":         len(snap.Items),
		"attachments":   len(snap.Attachments),
		"quotes":        len(snap.Quotes),
		"transactions":  len(snap.Payment.Transactions),
	}
	if snap.Payment.Payment != nil {
		fields["payment_status"] = snap.Payment.Payment.Status
	}

	key := fmt.Sprint(fields)
	r.mutex.Lock()
	if key == r.last {
		r.mutex.Unlock()
		return
	}
	r.last = key
	r.mutex.Unlock()

	r.logger.WithFields(fields).Info("Order snapshot")
}
