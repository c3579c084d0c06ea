package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mangad/internal/loader"
	"mangad/internal/media"
	"mangad/internal/registry"
	"mangad/pkg/types"
)

func newScanCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "scan [dir]",
		Short:   "List supported media in natural order with header dimensions",
		Example: "  mangad scan ~/manga/ch01\n  mangad scan ~/manga/ch01 --json",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := mediaDir(opts, args)
			if err != nil {
				return err
			}
			items, err := registry.LoadDir(dir)
			if err != nil {
				return err
			}
			codec := media.NewCodec(opts.cfg.Tool())
			probeItems(cmd.Context(), codec, items, func(it types.MediaItem, err error) {
				opts.log.Debug().Err(err).Str("path", it.Path).Msg("probe failed")
			})
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tNAME\tKIND\tSIZE")
			for _, it := range items {
				size := "?"
				if it.Width > 0 {
					size = fmt.Sprintf("%dx%d", it.Width, it.Height)
				}
				kind := it.Kind
				if kind == "" {
					kind = it.Class
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", it.Index, it.Name, kind, size)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print items as JSON")
	return cmd
}

// probeItems fills Width/Height/Kind in place. Failures leave the item
// unprobed and are reported through onErr.
func probeItems(ctx context.Context, p loader.Prober, items []types.MediaItem, onErr func(types.MediaItem, error)) {
	if ctx == nil {
		ctx = context.Background()
	}
	for i := range items {
		d, err := p.Probe(ctx, items[i].Path)
		if err != nil {
			if onErr != nil {
				onErr(items[i], err)
			}
			continue
		}
		items[i].Width, items[i].Height, items[i].Kind = d.Width, d.Height, d.Kind.String()
	}
}
