package main

import (
	"contentops/cmd/handlers"
	"contentops/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
