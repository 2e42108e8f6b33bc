package main

import (
	"os"

	"budgetbook/cmd/budgetctl/commands"
	"budgetbook/internal/logger"
)

func main() {
	logger.Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	if err := commands.Execute(); err != nil {
		logger.Get().Fatalf("budgetctl: %v", err)
	}
}
