/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/orderdesk/apiserver/internal/mq"
	"github.com/orderdesk/apiserver/internal/storage"
	"github.com/orderdesk/apiserver/internal/worker"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Archives order receipts from the event stream",
	Long: `Consumes order events and writes a JSON receipt per order to object
storage. Requires MQ_BACKEND and STORAGE_BACKEND. Usage:

	orderdesk worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if cfg.MQ.Backend == "" || cfg.Storage.Backend == "" {
			return errors.New("worker requires MQ_BACKEND and STORAGE_BACKEND")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer queue.Close()

		objects, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer objects.Close()

		err = worker.NewReceiptArchiver(objects, logger).Run(ctx, queue)
		if err != nil && ctx.Err() == nil {
			return err
		}
		logger.Info(ctx, "receipt archiver stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
