package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/capgenie/capgenie/internal/config"
	"github.com/capgenie/capgenie/internal/export"
	"github.com/capgenie/capgenie/internal/projects"
	"github.com/capgenie/capgenie/internal/timeline"
)

func createCmd() *cobra.Command {
	var (
		overwrite    bool
		manifestPath string
		templateDir  string
	)
	cmd := &cobra.Command{
		Use:   "create <dir>",
		Short: "Scaffold a new draft project from a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]any{}
			if manifestPath != "" {
				overrides[config.KeyTemplateManifest] = manifestPath
			}
			if templateDir != "" {
				overrides[config.KeyTemplateDir] = templateDir
			}
			a, err := newApp(overrides)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.service.Create(cmd.Context(), projects.CreateRequest{Dir: args[0], Overwrite: overwrite})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s at %s (%d files, %d folders)\n",
				result.Name, result.Dir, len(result.Files), len(result.Folders))
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "write into an existing directory")
	cmd.Flags().StringVar(&manifestPath, "template-manifest", "", "YAML template manifest to scaffold from")
	cmd.Flags().StringVar(&templateDir, "template-dir", "", "existing draft directory to use as the template")
	cmd.MarkFlagsMutuallyExclusive("template-manifest", "template-dir")

	return cmd
}

func syncCmd() *cobra.Command {
	var noProgress bool
	cmd := &cobra.Command{
		Use:   "sync <project> <sequences.json>",
		Short: "Replace the project timeline with the sequences in a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			req := projects.SyncRequest{Dir: args[0], InputPath: args[1]}
			progress := &syncProgress{w: cmd.ErrOrStderr(), logger: a.logger}
			if !noProgress {
				req.Progress = progress.update
			}

			result, err := a.service.Sync(cmd.Context(), req)
			progress.finish()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d segments on %d tracks (%.3fs) into %v\n",
				result.Segments, result.Tracks, timeline.MicrosToSeconds(result.Duration), result.Files)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")

	return cmd
}

// syncProgress draws a bar sized on the first update. Render failures are
// logged at debug and never fail the sync.
type syncProgress struct {
	w      io.Writer
	logger *slog.Logger
	bar    *progressbar.ProgressBar
}

func (p *syncProgress) update(done, total int) {
	if p.bar == nil {
		p.bar = newProgressBar(p.w, total, "Syncing timeline")
	}
	if err := p.bar.Set(done); err != nil {
		p.logger.Debug("progress bar update failed", "error", err)
	}
}

func (p *syncProgress) finish() {
	if p.bar == nil {
		return
	}
	if err := p.bar.Finish(); err != nil {
		p.logger.Debug("progress bar finish failed", "error", err)
	}
	fmt.Fprintln(p.w)
}

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(description),
		progressbar.OptionClearOnFinish(),
	)
}

func exportCmd() *cobra.Command {
	var (
		format    string
		frameRate float64
		title     string
	)
	cmd := &cobra.Command{
		Use:   "export <project> <output>",
		Short: "Export the project timeline as sequences JSON or an EDL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format, args[1])
			if err != nil {
				return err
			}
			a, err := newApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.service.Export(cmd.Context(), projects.ExportRequest{
				Dir:        args[0],
				OutputPath: args[1],
				Format:     f,
				FrameRate:  frameRate,
				Title:      title,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d clips as %s to %s\n", resp.ClipCount, resp.Format, resp.OutputPath)
			for _, s := range resp.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped segment %s on %s: material %s not found\n", s.SegmentID, s.TrackID, s.MaterialID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "output format: json or edl (default from file extension)")
	cmd.Flags().Float64Var(&frameRate, "frame-rate", export.DefaultFrameRate, "EDL frame rate")
	cmd.Flags().StringVar(&title, "title", "", "EDL title (default output file name)")

	return cmd
}

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append one clip to a project without resetting its timeline",
	}
	cmd.AddCommand(addKindCmd(timeline.KindVideo))
	cmd.AddCommand(addKindCmd(timeline.KindAudio))
	return cmd
}

func addKindCmd(kind timeline.Kind) *cobra.Command {
	var (
		start, end          float64
		sourceIn, sourceOut float64
		volume              float64
		track               int
		fadeIn, fadeOut     float64
	)
	cmd := &cobra.Command{
		Use:   string(kind) + " <project> <media>",
		Short: fmt.Sprintf("Append a %s clip", kind),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := timeline.AddOptions{
				Path:            args[1],
				StartTime:       start,
				EndTime:         end,
				FadeInDuration:  fadeIn,
				FadeOutDuration: fadeOut,
			}
			flags := cmd.Flags()
			if flags.Changed("source-in") {
				opts.SourceIn = &sourceIn
			}
			if flags.Changed("source-out") {
				opts.SourceOut = &sourceOut
			}
			if flags.Changed("volume") {
				opts.Volume = &volume
			}
			if flags.Changed("track") {
				opts.TrackIndex = &track
			}

			a, err := newApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.service.Append(cmd.Context(), args[0], opts.Sequence(kind))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s clip to %s (project duration %.3fs)\n",
				kind, result.TrackID, timeline.MicrosToSeconds(result.Duration))
			return nil
		},
	}

	cmd.Flags().Float64Var(&start, "start", 0, "timeline start in seconds")
	cmd.Flags().Float64Var(&end, "end", 0, "timeline end in seconds")
	cmd.Flags().Float64Var(&sourceIn, "source-in", 0, "source in point in seconds")
	cmd.Flags().Float64Var(&sourceOut, "source-out", 0, "source out point in seconds")
	cmd.Flags().Float64Var(&volume, "volume", 1.0, "clip volume")
	cmd.Flags().IntVar(&track, "track", kind.DefaultTrackIndex(), "track index")
	cmd.Flags().Float64Var(&fadeIn, "fade-in", 0, "fade-in duration in seconds")
	cmd.Flags().Float64Var(&fadeOut, "fade-out", 0, "fade-out duration in seconds")
	cmd.MarkFlagRequired("end")

	return cmd
}

func inspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <project>",
		Short: "Show the tracks and clips of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.service.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTimeline(args[0], result))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the exported sequences as JSON")

	return cmd
}

func runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent create, sync, export and append runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.service.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRuns(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")

	return cmd
}
