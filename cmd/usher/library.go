package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/library"
	"github.com/five82/usher/internal/paging"
)

func (s *session) catalog(pageSize int) *library.Catalog {
	if pageSize <= 0 {
		pageSize = s.env.Prefs.PageSize
	}
	return library.NewCatalog(s.client, library.Options{
		PageSize: pageSize,
		Sort:     library.Sort{By: s.env.Prefs.SortBy, Order: s.env.Prefs.SortOrder},
	})
}

func newItemsCmd(flags *rootFlags) *cobra.Command {
	var (
		search   string
		parentID string
		types    []string
		nextUp   bool
		resume   bool
		seasons  string
		episodes string
		limit    int
		pages    int
	)
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List library items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if nextUp && resume {
				return fmt.Errorf("--next-up and --resume are exclusive")
			}
			s, err := newSession(flags)
			if err != nil {
				return err
			}
			defer s.Close()

			catalog := s.catalog(limit)
			var lib *library.Library
			switch {
			case nextUp:
				lib = catalog.NextUp()
			case resume:
				lib = catalog.Resume()
			case search != "":
				lib = catalog.Search(search)
			case seasons != "":
				lib = catalog.Seasons(seasons)
			case episodes != "":
				lib = catalog.Episodes(episodes)
			default:
				lib = catalog.Items(library.Params{ParentID: parentID, ItemTypes: types})
			}
			defer lib.Close()

			ctx := cmd.Context()
			lib.Respond(paging.Refresh{})
			if err := settle(ctx, lib); err != nil {
				return err
			}
			for page := 1; page < pages && lib.HasNextPage(); page++ {
				lib.Respond(paging.NextPage{})
				if err := settle(ctx, lib); err != nil {
					return err
				}
			}

			printItems(cmd.OutOrStdout(), lib.Items())
			if lib.HasNextPage() {
				fmt.Fprintf(cmd.OutOrStdout(), "(more available, use --pages)\n")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "search term")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent folder id")
	cmd.Flags().StringSliceVar(&types, "type", nil, "item types to include (Movie, Series, Episode, ...)")
	cmd.Flags().BoolVar(&nextUp, "next-up", false, "list next up episodes")
	cmd.Flags().BoolVar(&resume, "resume", false, "list items in progress")
	cmd.Flags().StringVar(&seasons, "seasons", "", "list the seasons of this series id")
	cmd.Flags().StringVar(&episodes, "episodes", "", "list the episodes of this season id")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (default from prefs)")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

func printItems(w io.Writer, items []jellyfin.Item) {
	fmt.Fprintf(w, "%-34s %-9s %-3s %-8s %s\n", "ID", "TYPE", "WCH", "RUNTIME", "NAME")
	for _, item := range items {
		watched := ""
		if item.Played() {
			watched = "yes"
		}
		runtime := ""
		if d := item.RunTime(); d > 0 {
			runtime = d.Round(time.Minute).String()
		}
		fmt.Fprintf(w, "%-34s %-9s %-3s %-8s %s\n", item.ID, item.Type, watched, runtime, item.DisplayName())
	}
	fmt.Fprintf(w, "%s items\n", humanize.Comma(int64(len(items))))
}

func newRandomCmd(flags *rootFlags) *cobra.Command {
	var (
		parentID string
		types    []string
	)
	cmd := &cobra.Command{
		Use:   "random",
		Short: "Pick a random library item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(flags)
			if err != nil {
				return err
			}
			defer s.Close()

			lib := s.catalog(0).Items(library.Params{ParentID: parentID, ItemTypes: types})
			defer lib.Close()

			lib.Respond(paging.RandomItem{})
			if err := settle(cmd.Context(), lib); err != nil {
				return err
			}
			for _, ev := range drain(lib.Events()) {
				switch ev := ev.(type) {
				case paging.GotRandomItem[jellyfin.Item]:
					printItems(cmd.OutOrStdout(), []jellyfin.Item{ev.Item})
					return nil
				case paging.Failed:
					return ev.Err
				}
			}
			return fmt.Errorf("no random item returned")
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "parent folder id")
	cmd.Flags().StringSliceVar(&types, "type", []string{"Movie", "Series"}, "item types to pick from")
	return cmd
}

func newWatchedCmd(flags *rootFlags) *cobra.Command {
	var unset bool
	cmd := &cobra.Command{
		Use:   "watched ITEM_ID",
		Short: "Mark an item watched or unwatched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(flags)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.catalog(0).MarkPlayed(cmd.Context(), nil, args[0], !unset); err != nil {
				return err
			}
			state := "watched"
			if unset {
				state = "unwatched"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s marked %s\n", args[0], state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "mark unwatched instead")
	return cmd
}
