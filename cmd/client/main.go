package main

import (
	"context"
	"os"

	"github.com/noodlevault/noodlevault/internal/buildinfo"
	"github.com/noodlevault/noodlevault/internal/client/cli"
	"github.com/noodlevault/noodlevault/internal/client/config"
	"github.com/noodlevault/noodlevault/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	log := logging.NewDefault()

	app := cli.NewApp(cfg, log)
	app.Run(ctx)
}
