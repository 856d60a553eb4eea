package main

import (
	"cftracker/internal/di"
	"cftracker/internal/structures"
	"flag"
	"fmt"
	"os"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "path to the YAML config file")
	flag.StringVar(&flags.EnvPath, "env", ".env", "optional .env file loaded before the config")
	flag.BoolVar(&flags.DebugMode, "debug", false, "mirror logs to stdout")
	flag.Parse()

	if _, err := di.InitApp(flags); err != nil {
		fmt.Fprintf(os.Stderr, "cftracker: %s\n", err)
		os.Exit(1)
	}
}
