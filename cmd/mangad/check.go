package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(opts *options) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether ffmpeg/ffprobe are available for video items",
		RunE: func(cmd *cobra.Command, args []string) error {
			rep := opts.cfg.Tool().Check()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return err
			}
			if rep.Error != "" {
				opts.log.Warn().Str("error", rep.Error).Msg("video tools missing; videos will show a placeholder frame")
				if strict {
					return fmt.Errorf("%s", rep.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when a tool is missing")
	return cmd
}
