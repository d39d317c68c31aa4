package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/cyberattack-map/internal/domain"
	"github.com/couchcryptid/cyberattack-map/internal/geocache"
)

func newCacheCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and edit the geocode cache",
	}
	cmd.AddCommand(newCacheListCommand(a))
	cmd.AddCommand(newCacheForgetCommand(a))
	cmd.AddCommand(newCachePruneCommand(a))
	return cmd
}

func newCacheListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every cached place",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := geocache.Open(a.cfg.CachePath, a.logger)
			out := cmd.OutOrStdout()
			for _, key := range store.Keys() {
				coords, _ := store.Get(key)
				if coords == nil {
					fmt.Fprintf(out, "%s\tunresolvable\n", key)
					continue
				}
				fmt.Fprintf(out, "%s\t%.6f,%.6f\n", key, coords.Lat, coords.Lon)
			}
			fmt.Fprintf(out, "%d entries in %s\n", store.Len(), store.Path())
			return nil
		},
	}
}

func newCacheForgetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <place>...",
		Short: "Remove places so the next run looks them up again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := geocache.Open(a.cfg.CachePath, a.logger)
			out := cmd.OutOrStdout()
			removed := 0
			for _, place := range args {
				key := domain.PlaceKey(place)
				if store.Delete(key) {
					removed++
					fmt.Fprintf(out, "forgot %s\n", key)
				} else {
					fmt.Fprintf(out, "not cached: %s\n", place)
				}
			}
			if removed == 0 {
				return nil
			}
			return store.Save()
		},
	}
}

func newCachePruneCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove every unresolvable marker so those places are retried",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := geocache.Open(a.cfg.CachePath, a.logger)
			removed := geocache.Prune(store)
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d unresolvable entries\n", len(removed))
			if len(removed) == 0 {
				return nil
			}
			return store.Save()
		},
	}
}
