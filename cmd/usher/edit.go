package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/usher/internal/editor"
	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/metadata"
)

func newTagsCmd(flags *rootFlags) *cobra.Command {
	var (
		add    []string
		remove []string
		search string
	)
	cmd := &cobra.Command{
		Use:   "tags ITEM_ID",
		Short: "Show or edit an item's tags",
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
			ed := editor.NewTags(item, s.client, s.bus)
			defer ed.Close()

			out := cmd.OutOrStdout()
			if search != "" {
				ed.Respond(editor.Refresh{})
				if err := settle(ctx, ed); err != nil {
					return err
				}
				ed.Respond(editor.Search{Term: search})
				if err := settle(ctx, ed); err != nil {
					return err
				}
				for _, tag := range ed.Matches() {
					fmt.Fprintln(out, tag)
				}
				return nil
			}

			if len(remove) > 0 {
				ed.Respond(editor.Remove[string]{Elements: remove})
				if err := settle(ctx, ed); err != nil {
					return err
				}
			}
			if len(add) > 0 {
				ed.Respond(editor.Add[string]{Elements: add})
				if err := settle(ctx, ed); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "%s: %s\n", ed.Item().DisplayName(), strings.Join(ed.Item().Tags, ", "))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&add, "add", nil, "tags to add")
	cmd.Flags().StringSliceVar(&remove, "remove", nil, "tags to remove")
	cmd.Flags().StringVar(&search, "search", "", "search the server's tags instead of editing")
	return cmd
}

func newStudiosCmd(flags *rootFlags) *cobra.Command {
	var (
		add    []string
		remove []string
	)
	cmd := &cobra.Command{
		Use:   "studios ITEM_ID",
		Short: "Show or edit an item's studios",
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
			ed := editor.NewStudios(item, s.client, s.bus)
			defer ed.Close()

			if len(remove) > 0 {
				ed.Respond(editor.Remove[jellyfin.NameIDPair]{Elements: studioPairs(remove)})
				if err := settle(ctx, ed); err != nil {
					return err
				}
			}
			if len(add) > 0 {
				// Reuse the server's id for studios it already knows.
				ed.Respond(editor.Refresh{})
				if err := settle(ctx, ed); err != nil {
					return err
				}
				ed.Respond(editor.Add[jellyfin.NameIDPair]{Elements: resolveStudios(add, ed.Population())})
				if err := settle(ctx, ed); err != nil {
					return err
				}
			}

			names := make([]string, 0, len(ed.Item().Studios))
			for _, st := range ed.Item().Studios {
				names = append(names, st.Name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", ed.Item().DisplayName(), strings.Join(names, ", "))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&add, "add", nil, "studio names to add")
	cmd.Flags().StringSliceVar(&remove, "remove", nil, "studio names to remove")
	return cmd
}

func studioPairs(names []string) []jellyfin.NameIDPair {
	out := make([]jellyfin.NameIDPair, 0, len(names))
	for _, name := range names {
		out = append(out, jellyfin.NameIDPair{Name: name})
	}
	return out
}

func resolveStudios(names []string, known []jellyfin.NameIDPair) []jellyfin.NameIDPair {
	out := studioPairs(names)
	for i := range out {
		for _, k := range known {
			if strings.EqualFold(k.Name, out[i].Name) {
				out[i] = k
				break
			}
		}
	}
	return out
}

func newRefreshCmd(flags *rootFlags) *cobra.Command {
	var (
		mode            string
		replaceMetadata bool
		replaceImages   bool
	)
	cmd := &cobra.Command{
		Use:   "refresh ITEM_ID",
		Short: "Refresh an item's metadata and wait for the server to finish",
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
			r := metadata.New(item, s.client, s.bus, metadata.Options{})
			defer r.Close()

			r.Respond(metadata.RefreshMetadata{
				MetadataMode:    mode,
				ImageMode:       mode,
				ReplaceMetadata: replaceMetadata,
				ReplaceImages:   replaceImages,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "refreshing %s...\n", item.DisplayName())
			if err := settle(ctx, r); err != nil {
				return err
			}
			fresh := r.Item()
			when := ""
			if fresh.DateLastRefreshed != nil {
				when = " at " + fresh.DateLastRefreshed.Local().Format("15:04:05")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refreshed %s%s\n", fresh.DisplayName(), when)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "FullRefresh", "refresh mode (Default, ValidationOnly, FullRefresh)")
	cmd.Flags().BoolVar(&replaceMetadata, "replace-metadata", false, "replace all metadata")
	cmd.Flags().BoolVar(&replaceImages, "replace-images", false, "replace all images")
	return cmd
}
