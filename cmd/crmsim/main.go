package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dennisdiepolder/salesboard/internal/crmsim"
)

func main() {
	var (
		port     = flag.String("port", "8090", "Listen port")
		count    = flag.Int("tasks", 500, "Number of tasks to generate")
		seed     = flag.Int64("seed", 1, "Random seed for task generation")
		token    = flag.String("token", os.Getenv("QONTAK_API_TOKEN"), "Bearer token to require (empty disables the check)")
		logLevel = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Str("service", "crmsim").
		Logger()

	if *count < 0 || *count > crmsim.MaxTasks {
		logger.Fatal().Int("tasks", *count).Int("max", crmsim.MaxTasks).Msg("task count out of range")
	}

	tasks := crmsim.NewGenerator(*seed).GenerateTasks(*count, time.Now())
	logger.Info().Int("tasks", len(tasks)).Int64("seed", *seed).Msg("tasks generated")

	server := crmsim.NewServer(tasks, *token, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx, ":"+*port)
	})

	printUsage(*port)

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("CRM simulator failed")
	}
	logger.Info().Interface("stats", server.Stats()).Msg("CRM simulator stopped")
}

func printUsage(port string) {
	fmt.Println()
	fmt.Println("CRM simulator endpoints:")
	fmt.Printf("  GET    http://localhost:%s/health\n", port)
	fmt.Printf("  GET    http://localhost:%s%s?filter=alltask&page=1&per_page=1000\n", port, crmsim.TasksPath)
	fmt.Printf("  GET    http://localhost:%s/stats\n", port)
	fmt.Printf("  POST   http://localhost:%s/regenerate  {\"count\":500,\"seed\":2}\n", port)
	fmt.Printf("  PUT    http://localhost:%s/fault       {\"status\":503}\n", port)
	fmt.Printf("  DELETE http://localhost:%s/fault\n", port)
	fmt.Println()
	fmt.Printf("Point the server at it with QONTAK_BASE_URL=http://localhost:%s\n", port)
	fmt.Println()
}
