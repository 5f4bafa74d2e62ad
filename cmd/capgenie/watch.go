package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capgenie/capgenie/internal/projects"
	"github.com/capgenie/capgenie/internal/watcher"
)

func watchCmd() *cobra.Command {
	var initial bool
	cmd := &cobra.Command{
		Use:   "watch <project> <sequences.json>",
		Short: "Resync the project whenever the sequences file changes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			dir, input := args[0], args[1]
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			resync := func() {
				result, err := a.service.Sync(ctx, projects.SyncRequest{Dir: dir, InputPath: input})
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "sync failed: %v\n", err)
					return
				}
				fmt.Fprintf(out, "Synced %d segments on %d tracks\n", result.Segments, result.Tracks)
			}

			w, err := watcher.New(a.cfg.WatchDebounce(), a.logger)
			if err != nil {
				return err
			}
			defer w.Stop()

			w.OnChange(func(path string, event watcher.EventType) {
				if event == watcher.EventDelete {
					a.logger.Info("sequences file removed, waiting for it to return", "path", path)
					return
				}
				resync()
			})
			if err := w.Watch(ctx, input); err != nil {
				return err
			}

			if initial {
				resync()
			}
			fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", input)
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&initial, "initial", true, "sync once before waiting for changes")

	return cmd
}
