// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ik5/wavereel/cache"
	"github.com/ik5/wavereel/fingerprint"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or drop cached waveform envelopes",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "invalidate <file>...",
			Short: "Drop the cached envelope of each file",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				caches, closeCaches, err := openCaches(cmd.Context(), a.cfg, a.log)
				if err != nil {
					return err
				}
				defer closeCaches()

				for _, path := range args {
					slot := fingerprint.Slot(path)
					if err := caches(path).Invalidate(cmd.Context(), slot); err != nil {
						return fmt.Errorf("invalidate %s: %w", path, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s (slot %s)\n", path, slot)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "inspect <file>",
			Short: "Show the cached envelope header of a file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				caches, closeCaches, err := openCaches(cmd.Context(), a.cfg, a.log)
				if err != nil {
					return err
				}
				defer closeCaches()

				path := args[0]
				c := caches(path)
				ins, ok := c.(cache.Inspector)
				if !ok {
					return fmt.Errorf("cache backend %q cannot be inspected", a.cfg.Cache.Backend)
				}

				entry, found, err := cache.Inspect(cmd.Context(), ins, fingerprint.Slot(path))
				if err != nil {
					return err
				}

				printEntry(cmd.OutOrStdout(), path, entry, found)
				return nil
			},
		},
	)

	return cmd
}

func printEntry(w io.Writer, path string, e cache.Entry, found bool) {
	fmt.Fprintf(w, "file:        %s\n", path)
	fmt.Fprintf(w, "slot:        %s\n", fingerprint.Slot(path))
	if !found {
		fmt.Fprintln(w, "entry:       none")
		return
	}

	fmt.Fprintf(w, "schema:      %d\n", e.Schema)
	fmt.Fprintf(w, "fingerprint: %s\n", e.Fingerprint)
	fmt.Fprintf(w, "resolution:  %g samples/s\n", e.Resolution)
	fmt.Fprintf(w, "duration:    %.3f s\n", e.Duration)
	fmt.Fprintf(w, "samples:     %d\n", e.Count)
	fmt.Fprintf(w, "size:        %d bytes\n", e.Size)
}
