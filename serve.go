package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"DialogueRuntime/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dialogues to web clients",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.String("addr", "", "address to listen on (e.g., 127.0.0.1:8080); default $DIALOGUE_ADDR or :8080")
	f.String("assets", "", "directory of dialogue documents; default $DIALOGUE_ASSETS or the built-in demo")
	f.String("config", "", "path to the YAML or JSON world config; default $DIALOGUE_CONFIG")
	f.String("store", "", "ledger store: memory, redis, sqlite or postgres; default $DIALOGUE_STORE")
	f.Int64("seed", 0, "seed for shuffles and random timeouts (0 uses the clock)")
	f.String("skin", "", "override the default skin")
	f.String("skip-key", "", "override the default skip key")
	f.Float64("cps", 0, "override typewriter characters per second")
	f.Bool("typewriter", true, "override whether lines type out")
	f.Float64("revisit-opacity", 0, "override the opacity of revisited choices (0-1)")
	f.Float64("tick-hz", 0, "override the simulation tick rate")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := server.DefaultAppConfig()
	f := cmd.Flags()

	if v, _ := f.GetString("addr"); v != "" {
		cfg.Addr = v
	}
	if v, _ := f.GetString("assets"); v != "" {
		cfg.AssetsDir = v
	}
	if v, _ := f.GetString("config"); v != "" {
		cfg.WorldPath = v
	}
	if v, _ := f.GetString("store"); v != "" {
		cfg.Store.Backend = v
	}
	if f.Changed("seed") {
		cfg.Seed, _ = f.GetInt64("seed")
	}

	// Only flags given on the command line override the world file.
	var o server.Overrides
	if f.Changed("skin") {
		v, _ := f.GetString("skin")
		o.Skin = &v
	}
	if f.Changed("skip-key") {
		v, _ := f.GetString("skip-key")
		o.SkipKey = &v
	}
	if f.Changed("cps") {
		v, _ := f.GetFloat64("cps")
		o.CharactersPerSecond = &v
	}
	if f.Changed("typewriter") {
		v, _ := f.GetBool("typewriter")
		o.Typewriter = &v
	}
	if f.Changed("revisit-opacity") {
		v, _ := f.GetFloat64("revisit-opacity")
		o.RevisitChoiceOpacity = &v
	}
	if f.Changed("tick-hz") {
		v, _ := f.GetFloat64("tick-hz")
		o.TickHz = &v
	}
	cfg.Overrides = o

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.StartApp(ctx, cfg)
}
