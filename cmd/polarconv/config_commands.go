package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"polarconv/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the polarconv configuration",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample config",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := configTarget(targetPath)
			if err != nil {
				return err
			}
			if !force {
				_, statErr := os.Stat(target)
				switch {
				case statErr == nil:
					return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
				case !errors.Is(statErr, fs.ErrNotExist):
					return fmt.Errorf("inspect %s: %w", target, statErr)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(cmd.OutOrStdout(), "Set notifications.ntfy_topic to receive a push when a conversion finishes.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the config (default ~/.config/polarconv/config.toml)")
	cmd.Flags().BoolVar(&force, "overwrite", false, "Replace an existing config file")
	return cmd
}

// configTarget expands an explicit path or falls back to the default location.
func configTarget(path string) (string, error) {
	if path = strings.TrimSpace(path); path == "" {
		target, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return target, nil
	}
	target, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the config and print the settings a conversion would use",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			source := path
			if !exists {
				source = path + " (missing, defaults applied)"
			}
			notify := "disabled"
			if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
				notify = topic
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderPairs([][2]string{
				{"Config", source},
				{"State directory", cfg.Paths.StateDir},
				{"Log file", cfg.LogPath()},
				{"Compression", fmt.Sprintf("%s (%s)", cfg.Convert.Compression, cfg.Convert.ZstdLevel)},
				{"Overwrite existing", strconv.FormatBool(cfg.Convert.OverwriteExisting)},
				{"Open folder on success", strconv.FormatBool(cfg.Convert.OpenOnSuccess)},
				{"Free space reserve", fmt.Sprintf("%d MiB", cfg.Convert.MinFreeMiB)},
				{"ntfy", notify},
			}))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
