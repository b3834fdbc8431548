// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"image/png"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ik5/wavereel/episode"
)

func newFrameCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "frame <file> <index>",
		Short: "Render a single frame of a file as PNG",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("frame index %q: %w", args[1], err)
			}

			titles, err := episode.Load(a.cfg.Assets.TitlesFile)
			if err != nil {
				return err
			}

			r, closeCaches, err := a.newRenderer(cmd, titles, nil)
			if err != nil {
				return err
			}
			defer closeCaches()

			img, err := r.RenderFrame(cmd.Context(), args[0], index)
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("%s_frame_%06d.png", episode.SanitizeFilename(episode.Stem(args[0])), index)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("%w", err)
			}
			if err := png.Encode(f, img); err != nil {
				f.Close()
				return fmt.Errorf("encode %s: %w", out, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("%w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output PNG (default: <stem>_frame_<index>.png)")

	return cmd
}
