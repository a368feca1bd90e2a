package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartsum/backend/internal/app"
	"github.com/smartsum/backend/internal/config"
	"github.com/smartsum/backend/internal/queue"
	"github.com/smartsum/backend/pkg/logger"
	"github.com/smartsum/backend/pkg/logger/console"
)

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	stack, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize application", "err", err)
	}
	defer stack.Close()

	// Init rabbitmq
	conn, err := queue.Connect(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to queue", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queueName := cfg.Queue.Name
	if err := queue.SetupQueues(ch, queueName); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	// prefetch=1: one document at a time per worker
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := ch.Consume(
		queueName,
		queueName+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queueName, "err", err)
	}

	logger.Info("Listening for messages", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queueName)
				return
			}

			startTime := time.Now()
			logger.Info("Received message", "queue", queueName)

			job, err := queue.DecodeJob(msg.Body)
			if err == nil {
				_, err = stack.Runner.Run(ctx, job)
			}

			// If there was an error send to retry or dead-letter, otherwise ack the message
			if err != nil {
				logger.Error("Error processing message", "queue", queueName, "err", err)
				queue.HandleFailure(ch, msg, queueName, err)
			} else {
				if err := msg.Ack(false); err != nil {
					logger.Error("Failed to ack message", "err", err)
				}
				logger.Info("Message processed successfully", "queue", queueName, "document", job.DocumentID)
			}

			metrics := stack.AI.GetMetrics()
			logger.Info(
				"AI Metrics",
				"requests", metrics.Requests,
				"input_tokens", metrics.InputTokens,
				"output_tokens", metrics.OutputTokens,
				"total_tokens", metrics.TotalTokens,
				"duration", formatDuration(time.Duration(metrics.DurationMs)*time.Millisecond),
			)
			logger.Info("Processing time", "duration", formatDuration(time.Since(startTime)))
			logger.Info("Waiting for next message")
			stack.AI.ResetMetrics()
		}
	}
}
