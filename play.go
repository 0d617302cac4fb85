package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"DialogueRuntime/internal/game"
	"DialogueRuntime/internal/server"
	"DialogueRuntime/internal/store"
	"DialogueRuntime/internal/typewriter"
)

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <dialogue>",
		Short: "Play a dialogue in the terminal",
		Long: `Plays one dialogue in the terminal. Press enter to continue, type a
number to pick a choice, or q to quit. Revisits are saved to the configured
ledger store under the given player id.`,
		Args: cobra.ExactArgs(1),
		RunE: runPlay,
	}
	cmd.Flags().String("assets", "", "directory of dialogue documents; default $DIALOGUE_ASSETS or the built-in demo")
	cmd.Flags().String("config", "", "path to the YAML or JSON world config; default $DIALOGUE_CONFIG")
	cmd.Flags().String("player", "console", "player id ledgers are saved under")
	cmd.Flags().String("name", "", "player name dialogue text can refer to")
	return cmd
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg := server.DefaultAppConfig()
	if v, _ := cmd.Flags().GetString("assets"); v != "" {
		cfg.AssetsDir = v
	}
	if v, _ := cmd.Flags().GetString("config"); v != "" {
		cfg.WorldPath = v
	}
	playerID, _ := cmd.Flags().GetString("player")
	name, _ := cmd.Flags().GetString("name")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	log := server.NewLogger("warn")
	lib, err := server.LoadLibrary(cfg.AssetsDir)
	if err != nil {
		return err
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	hub, settings := newConsoleHub(cfg, lib, st, log)

	player := game.NewPlayer(playerID, name)
	if err := hub.RestorePlayer(ctx, player); err != nil {
		return err
	}
	room := hub.GetRoom("console")
	if err := room.Join(player); err != nil {
		return err
	}
	if _, err := room.StartDialogue(player.ID, args[0]); err != nil {
		return err
	}

	input := make(chan string)
	go func() {
		defer close(input)
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			input <- sc.Text()
		}
	}()

	err = playLoop(ctx, room, player, settings.TickHz, input, newConsole(cmd.OutOrStdout()))
	if flushErr := hub.Flush(context.Background()); flushErr != nil && err == nil {
		err = flushErr
	}
	return err
}

// newConsoleHub builds a hub from the same world file and overrides serve
// uses. The console prints whole lines, so the typewriter is off.
func newConsoleHub(cfg server.AppConfig, lib *game.Library, st store.LedgerStore, log *slog.Logger) (*game.Hub, server.Settings) {
	settings := server.ResolveSettings(cfg, log)
	defaults := settings.Presentation
	defaults.TypewriterEnabled = false
	hub := game.NewHub(lib,
		game.WithStore(st),
		game.WithLogger(log),
		game.WithDefaults(defaults),
		game.WithTickRate(settings.TickHz),
	)
	return hub, settings
}

func playLoop(ctx context.Context, room *game.Room, p *game.Player, hz float64, input <-chan string, c *console) error {
	tick := time.NewTicker(time.Duration(float64(time.Second) / hz))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = room.Abandon(p.ID)
			return nil
		case text, ok := <-input:
			if !ok {
				_ = room.Abandon(p.ID)
				return nil
			}
			if err := c.command(room, p.ID, text); err != nil {
				c.printf("  (%v)\n", err)
			}
		case <-tick.C:
			room.Tick()
			room.Mu.Lock()
			view, _ := room.ViewLocked(p.ID)
			busy := p.Busy()
			room.Mu.Unlock()
			c.render(view)
			if !busy {
				return nil
			}
		}
	}
}

// console prints a player's view as plain text, once per line and choice set.
type console struct {
	out      io.Writer
	lastLine string
	choices  []game.ChoiceView // the set on screen, in display order
}

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *console) render(v game.View) {
	if v.Line != nil && v.Session+v.Line.Node != c.lastLine {
		c.lastLine = v.Session + v.Line.Node
		text := typewriter.New(v.Line.Full).Plain()
		if v.Line.Speaker != "" {
			c.printf("%s: %s\n", v.Line.Speaker, text)
		} else {
			c.printf("%s\n", text)
		}
	}
	if v.Line == nil {
		c.lastLine = ""
	}

	if len(v.Choices) == 0 {
		c.choices = nil
		return
	}
	if c.choices == nil {
		for i, ch := range v.Choices {
			mark := ""
			if ch.Disabled {
				mark = " (unavailable)"
			}
			c.printf("  %d) %s%s\n", i+1, typewriter.New(ch.Text).Plain(), mark)
		}
		if v.Deadline > 0 {
			c.printf("  (answer before t=%.1fs)\n", v.Deadline)
		}
	}
	c.choices = v.Choices
}

// command applies one line of terminal input.
func (c *console) command(room *game.Room, playerID, text string) error {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return room.Skip(playerID)
	case text == "q":
		return room.Abandon(playerID)
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("type a choice number, enter or q")
	}
	if n < 1 || n > len(c.choices) {
		return fmt.Errorf("no choice %d", n)
	}
	return room.Choose(playerID, c.choices[n-1].Index)
}
