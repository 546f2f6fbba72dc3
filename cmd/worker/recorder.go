package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmehdipour/swap-gateway/internal/config"
	"github.com/jmehdipour/swap-gateway/internal/db"
	"github.com/jmehdipour/swap-gateway/internal/kafka"
	"github.com/jmehdipour/swap-gateway/internal/repository"
	swapsvc "github.com/jmehdipour/swap-gateway/internal/service/swap"
	"github.com/jmehdipour/swap-gateway/internal/worker"
)

var recorderCmd = &cobra.Command{
	Use:   "recorder",
	Short: "Run swap-event recorder (Kafka -> ClickHouse)",
	RunE:  runRecorder,
}

func runRecorder(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2) ClickHouse connection
	chDB, err := db.ConnectClickHouse(cfg.ClickHouse)
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	defer func() { _ = chDB.Close() }()

	// 3) kafka consumer
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "swapgw-recorder"
	}

	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          swapsvc.SwapCreatedTopic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	w := worker.NewRecorder(consumer, repository.NewCHSwapsRepository(chDB))

	// 4) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf(">> recorder started topic=%s group=%s workers=%d batchSize=%d batchWait=%s",
		swapsvc.SwapCreatedTopic, groupID, w.Workers, w.BatchSize, w.BatchWait)

	return w.Run(ctx)
}
