package main

import (
	app "crm-segment-engine/internal/app/server"
	"crm-segment-engine/internal/config"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Server.LogLevel)
	app.Run(cfg)
}
