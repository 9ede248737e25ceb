package main

import (
	"github.com/h2theoran1984/Spaghetti-990/internal/server"
	"github.com/h2theoran1984/Spaghetti-990/internal/util"
	"github.com/h2theoran1984/Spaghetti-990/pkg/logger"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := logger.NewConsole(logger.ConsoleParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
