// dlqreplay reports parked jobs and moves them back onto their queue.
//
//	go run ./cmd/dlqreplay -queue jobs:email -max 50
//	go run ./cmd/dlqreplay -dry-run
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"zedcmms/internal/config"
	"zedcmms/internal/infra"
	"zedcmms/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	queue := flag.String("queue", worker.QueueEmail, "queue whose dead letters are replayed")
	max := flag.Int("max", 0, "maximum jobs to replay, 0 for all")
	dryRun := flag.Bool("dry-run", false, "only report the DLQ length")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	rdb, err := infra.NewRedis(cfg.RedisURL, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	b := worker.NewRedisBroker(rdb)
	n, err := worker.DLQLength(ctx, b, *queue)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read dlq length")
	}
	log.Info().Str("queue", *queue).Int64("parked", n).Msg("dead letter queue")
	if *dryRun || n == 0 {
		return
	}

	replayed, err := worker.ReplayDLQ(ctx, b, *queue, *max)
	if err != nil {
		log.Fatal().Err(err).Int("replayed", replayed).Msg("replay failed")
	}
}
