package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/EchoCommand/pkg/echocommand"
	"github.com/himanishpuri/EchoCommand/pkg/echocommand/text"
)

func newInstructionsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "instructions",
		Short: "Print the instruction list in play order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items := opts.cfg.Instructions
			if len(items) == 0 {
				items = echocommand.DefaultInstructions
			}
			reg := echocommand.NewRegistry(items)
			out := cmd.OutOrStdout()
			for i, item := range reg.All() {
				fmt.Fprintf(out, "%2d. %s\n", i, item)
			}
			return nil
		},
	}
}

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <text>...",
		Short: "Show the canonical form used for matching",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), text.Normalize(strings.Join(args, " ")))
			return nil
		},
	}
}

func newCheckCmd(opts *cliOptions) *cobra.Command {
	var (
		index     int
		guess     string
		audioPath string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Store a recording and check a transcript against an instruction",
		Example: `  echocommand check --index 9 --guess "um keep going i guess" --audio attempt.webm
  echocommand --oracle local check -i 4 -g "don't look back" -a take2.webm`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(audioPath)
			if err != nil {
				return fmt.Errorf("opening audio: %w", err)
			}
			defer f.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			svc, err := opts.service(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			v, err := svc.HandleUpload(ctx, echocommand.UploadRequest{
				Transcript: guess,
				Index:      index,
				Audio:      f,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			verdict := "NO MATCH"
			if v.IsMatch {
				verdict = "MATCH"
			}
			fmt.Fprintf(out, "%s\n", verdict)
			fmt.Fprintf(out, "   Expected: %s\n", v.ExpectedNormalized)
			fmt.Fprintf(out, "   Heard:    %s\n", v.ActualNormalized)
			fmt.Fprintf(out, "   Stored:   %s\n", v.AudioURL)
			return nil
		},
	}

	cmd.Flags().IntVarP(&index, "index", "i", 0, "Zero-based instruction index")
	cmd.Flags().StringVarP(&guess, "guess", "g", "", "Transcript of what was said")
	cmd.Flags().StringVarP(&audioPath, "audio", "a", "", "Recording of the attempt")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Overall timeout")
	_ = cmd.MarkFlagRequired("guess")
	_ = cmd.MarkFlagRequired("audio")
	return cmd
}

func newMergeCmd(opts *cliOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "merge <ref>...",
		Short: "Concatenate stored clips, in order, into one new clip",
		Long: `Concatenate stored clips into one merged file in the media directory.

References use the public form (/media/<name>). References that do not
point at an existing clip are skipped with a warning.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			svc, err := opts.service(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			clip, err := svc.HandleMerge(ctx, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Merged %d of %d clips\n", len(clip.Sources), len(args))
			fmt.Fprintf(out, "   URL:      %s\n", clip.URL)
			fmt.Fprintf(out, "   File:     %s\n", clip.Path)
			fmt.Fprintf(out, "   Duration: %s\n", time.Duration(clip.DurationMs)*time.Millisecond)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall timeout")
	return cmd
}

func newClipsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clips",
		Short: "List clips in the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			clips, err := svc.ListClips()
			if err != nil {
				return fmt.Errorf("listing clips: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(clips) == 0 {
				fmt.Fprintln(out, "No clips stored.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tURL\tSIZE\tDURATION\tINDEX\tCREATED")
			for _, c := range clips {
				idx := "-"
				if c.Kind == echocommand.ClipUpload {
					idx = fmt.Sprint(c.InstructionIndex)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					c.Kind, c.URL, humanize.Bytes(uint64(c.SizeBytes)),
					time.Duration(c.DurationMs)*time.Millisecond, idx, humanize.Time(c.CreatedAt))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nTotal: %d clips\n", len(clips))
			return nil
		},
	}
}
