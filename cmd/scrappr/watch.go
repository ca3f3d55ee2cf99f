package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/logger"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &suggestOptions{}
	cmd := &cobra.Command{
		Use:   "watch [query...]",
		Short: "Re-rank whenever the notes file changes",
		Long: `watch prints the suggestions for a query, then prints them again each time
the notes file is saved. Stop it with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(args)
			if err != nil {
				return err
			}
			svc, store, err := root.open()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			log := logger.WithComponent("watch")
			run := func() {
				result, err := svc.Suggest(ctx, req)
				if err != nil {
					log.Error("suggestion failed", "error", err)
					return
				}
				if err := render(out, result, opts.json, opts.explain); err != nil {
					log.Error("render failed", "error", err)
				}
			}

			run()
			log.Info("watching notes file", "path", store.Path())
			return store.Watch(ctx, func(all []notes.Note) {
				fmt.Fprintf(out, "\n-- %s changed (%d notes) --\n", store.Path(), len(all))
				run()
			})
		},
	}
	opts.register(cmd)
	return cmd
}
