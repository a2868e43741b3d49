package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/discovery"
)

func newScanCommand(cmdCtx *commandContext) *cobra.Command {
	var recursiveFlag bool

	cmd := &cobra.Command{
		Use:   "scan [input-dir]",
		Short: "List discoverable media files without processing them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			root := cfg.Paths.InputDir
			if len(args) == 1 {
				root = config.ExpandPath(args[0])
			}
			if root == "" {
				return fmt.Errorf("no input directory: pass one as an argument or set paths.input_dir")
			}

			items, err := discovery.Scan(root, recursiveFlag, cfg.Processing.Extensions)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No media files found.")
				return nil
			}

			var totalBytes int64
			rows := make([][]string, 0, len(items))
			for _, count := range discovery.Summarize(items) {
				rows = append(rows, []string{
					count.Extension,
					fmt.Sprintf("%d", count.Count),
					formatBytes(count.Bytes),
				})
				totalBytes += count.Bytes
			}
			rows = append(rows, []string{"total", fmt.Sprintf("%d", len(items)), formatBytes(totalBytes)})

			fmt.Println(renderTable(
				[]string{"Extension", "Files", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursiveFlag, "recursive", "r", true, "Scan recursively")
	return cmd
}
