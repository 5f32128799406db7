package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"ability-server/internal/agent"
	"ability-server/internal/ai"
	"ability-server/internal/catalog"
	"ability-server/internal/client"
	"ability-server/pkg/logger"
)

func main() {
	var (
		addr        string
		name        string
		count       int
		catalogPath string
		logLevel    string
	)
	flag.StringVar(&addr, "addr", "http://localhost:8080", "Server base URL")
	flag.StringVar(&name, "name", "Агент", "Agent name prefix")
	flag.IntVar(&count, "n", 1, "Number of agents")
	flag.StringVar(&catalogPath, "catalog", "", "Path to catalog YAML (must match the server)")
	flag.StringVar(&logLevel, "log", "info", "Log level")
	flag.Parse()

	logger.Init(logLevel, "text")

	cat, err := catalog.Default()
	if catalogPath != "" {
		cat, err = catalog.Load(catalogPath)
	}
	if err != nil {
		logger.Log.Fatal("Catalog error: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := 1; i <= count; i++ {
		agentName := name
		if count > 1 {
			agentName = fmt.Sprintf("%s-%d", name, i)
		}

		session, err := client.Dial(ctx, cat, client.Options{BaseURL: addr, Name: agentName})
		if err != nil {
			logger.Log.WithError(err).WithField("name", agentName).Error("Connect failed")
			continue
		}

		bot := agent.NewBot(session, cat, ai.DefaultProfile(30))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bot.Run(ctx); err != nil {
				logger.Log.WithError(err).WithField("name", agentName).Warn("Agent disconnected")
			}
		}()
	}

	wg.Wait()
}
