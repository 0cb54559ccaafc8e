// cmd/receipts/main.go regenerates missing receipts for paid orders. With
// -listen it stays up and retries receipts announced on the orders topic.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/marketplace-backend/internal/app"
	"github.com/javajoker/marketplace-backend/internal/config"
	"github.com/javajoker/marketplace-backend/internal/events"
	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/services"
)

func main() {
	listen := flag.Bool("listen", false, "consume receipt.failed events and retry them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}
	app.ConfigureLogging(cfg)

	deps, err := app.New(cfg)
	if err != nil {
		logrus.Fatal("Failed to initialize dependencies: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	backfill := services.NewReceiptBackfill(deps.Store.Orders(), deps.Receipts)

	var code int
	if *listen {
		code = runListener(ctx, cfg, backfill)
	} else {
		code = runBackfill(ctx, backfill)
	}

	stop()
	deps.Close()
	os.Exit(code)
}

func runBackfill(ctx context.Context, backfill *services.ReceiptBackfill) int {
	ok := color.New(color.FgGreen).SprintFunc()
	failed := color.New(color.FgRed).SprintFunc()

	backfill.OnResult = func(order models.Order, err error) {
		if err != nil {
			fmt.Printf("%s  order %d: %v\n", failed("FAILED"), order.ID, err)
			return
		}
		fmt.Printf("%s      order %d\n", ok("OK"), order.ID)
	}

	result, err := backfill.Run(ctx)
	if err != nil {
		color.Red("Backfill aborted: %v", err)
		return 1
	}

	fmt.Printf("Done. success=%d failed=%d\n", result.Success, result.Failed)
	if result.Failed > 0 {
		return 1
	}
	return 0
}

func runListener(ctx context.Context, cfg *config.Config, backfill *services.ReceiptBackfill) int {
	if !cfg.Kafka.Enabled() {
		color.Red("-listen requires KAFKA_BROKERS")
		return 1
	}

	consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.OrdersTopic)
	logrus.WithField("topic", cfg.Kafka.OrdersTopic).Info("Listening for receipt failures")

	err := consumer.Run(ctx, events.EventReceiptFailed, func(ctx context.Context, env events.Envelope) error {
		var payload events.ReceiptFailedPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			logrus.WithError(err).WithField("event_id", env.EventID).Warn("Dropping malformed receipt event")
			return nil
		}

		generated, err := backfill.Retry(ctx, payload.OrderID)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"order_id":  payload.OrderID,
			"generated": generated,
		}).Info("Receipt retry handled")
		return nil
	})
	if err != nil {
		logrus.WithError(err).Error("Consumer stopped")
		return 1
	}
	return 0
}
