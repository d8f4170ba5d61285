package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/doipscope/internal/config"
	"github.com/danmuck/doipscope/internal/logging"
	"github.com/danmuck/doipscope/internal/render"
)

func main() {
	configPath := flag.String("config", "", "path to a doipscope TOML config")
	inputFormat := flag.String("input", "", "input format: binary | hex | pcap (overrides config)")
	outputFormat := flag.String("format", "", "output format: text | json | yaml (overrides config)")
	showRegistry := flag.Bool("registry", false, "print the field registry before decoding")
	showMetrics := flag.Bool("metrics", false, "log decode outcome totals when done")
	lenient := flag.Bool("lenient", false, "accept headers with a mismatched inverse version")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "doipscope: %v\n", err)
		os.Exit(2)
	}
	if *inputFormat != "" {
		f, err := config.ParseInputFormat(*inputFormat)
		if err != nil {
			fmt.Fprintf(os.Stderr, "doipscope: %v\n", err)
			os.Exit(2)
		}
		cfg.Input.Format = f
	}
	if *outputFormat != "" {
		f, err := render.ParseFormat(*outputFormat)
		if err != nil {
			fmt.Fprintf(os.Stderr, "doipscope: %v\n", err)
			os.Exit(2)
		}
		cfg.Output.Format = f
	}
	if *showRegistry {
		cfg.Output.ShowRegistry = true
	}
	if *showMetrics {
		cfg.Output.Metrics = true
	}
	if *lenient {
		cfg.Input.Limits.StrictHeader = false
	}

	logging.ConfigureWith(cfg.Log)
	logger := logging.Component("doipscope")
	logger.Debug().Str("level", config.LevelName(cfg.Log.Level)).Str("input", string(cfg.Input.Format)).Str("output", string(cfg.Output.Format)).Msg("configured")

	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{"-"}
	}
	if err := run(cfg, logger, paths, os.Stdin, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("doipscope failed")
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}
