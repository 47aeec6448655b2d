package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/usher/internal/player"
)

func newPlayCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "play ITEM_ID",
		Short: "Resolve an item's stream and print its URL for an external player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(flags)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			item, err := s.getItem(ctx, args[0])
			if err != nil {
				return err
			}
			mgr := player.New(item, player.ServerProvider(s.client, item))
			defer mgr.Close()

			if err := settle(ctx, mgr); err != nil {
				return err
			}
			pi, ok := mgr.PlaybackItem()
			if !ok {
				return fmt.Errorf("no playable source for %s", item.DisplayName())
			}
			mgr.Respond(player.Stop{})

			out := cmd.OutOrStdout()
			src := pi.MediaSource
			fmt.Fprintf(out, "%s\n", item.DisplayName())
			if src.Container != "" {
				fmt.Fprintf(out, "  container %s\n", src.Container)
			}
			if src.Bitrate > 0 {
				fmt.Fprintf(out, "  bitrate   %s\n", humanize.SI(float64(src.Bitrate), "bps"))
			}
			if src.Size > 0 {
				fmt.Fprintf(out, "  size      %s\n", humanize.Bytes(uint64(src.Size)))
			}
			fmt.Fprintln(out, pi.StreamURL)
			return nil
		},
	}
}
