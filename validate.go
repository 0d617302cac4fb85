package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"DialogueRuntime/internal/asset"
	"DialogueRuntime/internal/dialogue"
	"DialogueRuntime/internal/game"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file or dir>...",
		Short: "Check dialogue documents and optionally convert them",
		Long: `Builds every dialogue document given, or found below a given directory,
and reports the first error of each. With --export the built dialogues are
written to stdout in the given format (yaml, toml or json).`,
		Args: cobra.MinimumNArgs(1),
		RunE: runValidate,
	}
	cmd.Flags().String("export", "", "write the dialogues to stdout as yaml, toml or json")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	export, _ := cmd.Flags().GetString("export")

	var all []*dialogue.Dialogue
	failed := 0
	for _, path := range args {
		ds, err := loadPath(path)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", path, err)
			continue
		}
		for _, d := range ds {
			fmt.Fprintf(cmd.ErrOrStderr(), "ok   %s (%d nodes, %d actors)\n", d.ID, len(d.Nodes), len(d.Actors))
		}
		all = append(all, ds...)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d paths failed", failed, len(args))
	}

	if export == "" {
		return nil
	}
	for _, d := range all {
		data, err := asset.Encode(asset.FromDialogue(d), asset.Format(export))
		if err != nil {
			return err
		}
		if export == string(asset.FormatYAML) {
			fmt.Fprintln(cmd.OutOrStdout(), "---")
		}
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return err
		}
	}
	return nil
}

func loadPath(path string) ([]*dialogue.Dialogue, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return asset.LoadDir(path, game.Binder{})
	}
	d, err := asset.LoadFile(path, game.Binder{})
	if err != nil {
		return nil, err
	}
	return []*dialogue.Dialogue{d}, nil
}
