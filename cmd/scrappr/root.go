package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes/filestore"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest/ranker"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/logger"
)

type rootOptions struct {
	verbose    bool
	configPath string
	notesPath  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "scrappr",
		Short: "Suggest relevant notes for what you are reading or writing",
		Long: `scrappr ranks saved notes by TF-IDF similarity to a query, boosts notes
that contain the query verbatim or were edited recently, and falls back to
the latest notes when nothing matches.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "info"
			if opts.verbose {
				level = "debug"
			}
			logger.SetupWriter(os.Stderr, level, "text")
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file with ranking weights and view limits")
	cmd.PersistentFlags().StringVarP(&opts.notesPath, "notes", "n", "", "YAML or JSON notes file (defaults to notes.file from config)")

	cmd.AddCommand(newSuggestCmd(opts), newWatchCmd(opts), newTokensCmd(opts))
	return cmd
}

// open loads the config and the notes file and builds a suggestion service
// over it.
func (o *rootOptions) open() (*suggest.Service, *filestore.Store, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	path := o.notesPath
	if path == "" {
		path = cfg.Notes.File
	}
	if path == "" {
		return nil, nil, errors.New("no notes file: pass --notes or set notes.file in the config")
	}
	store, err := filestore.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return suggest.NewService(store, ranker.WeightsFromConfig(cfg.Ranking), cfg.Suggest), store, nil
}
