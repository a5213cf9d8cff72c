package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"soon/internal/calendar"
	"soon/internal/config"
	appLog "soon/internal/log"
)

type flagConfig struct {
	configPath string
	logLevel   string
}

func main() {
	flags := parseFlags()

	cfg, err := config.LoadOrCreate(flags.configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	level, err := appLog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	appLog.SetLevel(level)

	name, args := "ui", flag.Args()
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Printf("unknown command %q\n\n", name)
		flag.Usage()
		os.Exit(2)
	}

	// The full-screen UI owns the terminal, so its log lines go to a file.
	if name == "ui" && cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Printf("failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		appLog.SetOutput(f)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	a, err := openApp(ctx, cfg, calendar.SystemClock{})
	if err != nil {
		fmt.Printf("failed to open database: %v\n", err)
		os.Exit(1)
	}

	err = cmd.run(ctx, a, args, os.Stdout)
	a.close()
	if err != nil {
		fmt.Printf("failed to %s: %v\n", cmd.verb, err)
		os.Exit(1)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", config.ResolveConfigPath(), "Path to config file")
	flag.StringVar(&cfg.logLevel, "log-level", "", "debug, info or error (overrides config)")
	flag.Usage = usage

	flag.Parse()

	return cfg
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: soon [flags] [command] [args]\n\ncommands:\n")
	for _, name := range commandOrder {
		fmt.Fprintf(out, "  %-8s %s\n", name, commands[name].help)
	}
	fmt.Fprintf(out, "\nflags:\n")
	flag.PrintDefaults()
}
