package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"polarconv/internal/polar"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "inspect <file.polar>",
		Short:       "Validate a Polar container and summarize its contents",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open container: %w", err)
			}
			defer file.Close()

			info, err := polar.ReadInfo(file)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderPairs([][2]string{
				{"Format version", strconv.Itoa(int(info.Version))},
				{"Data version", strconv.Itoa(int(info.DataVersion))},
				{"Compression", info.Compression.String()},
				{"Stored size", humanize.IBytes(uint64(info.CompressedLen))},
				{"Payload size", humanize.IBytes(uint64(info.PayloadLen))},
				{"Section range", fmt.Sprintf("%d..%d", info.MinSection, info.MaxSection)},
				{"Chunks", humanize.Comma(int64(info.Chunks))},
				{"Non-empty sections", humanize.Comma(int64(info.Sections))},
				{"Block entities", humanize.Comma(int64(info.BlockEntities))},
			}))
			return nil
		},
	}
}
