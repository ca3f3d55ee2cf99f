package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest/ranker"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest/tokenizer"
)

type termWeight struct {
	Term string  `json:"term"`
	TF   int     `json:"tf"`
	IDF  float64 `json:"idf,omitempty"`
}

func newTokensCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tokens [text...]",
		Short: "Show the terms the ranker extracts from text",
		Long: `tokens prints each term of the text with its count. When a notes file is
given, the IDF weight of each term across the notes is shown too.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			freqs := tokenizer.TermFrequencies(text)

			var idf map[string]float64
			if root.notesPath != "" {
				_, store, err := root.open()
				if err != nil {
					return err
				}
				all, err := store.List(cmd.Context(), "")
				if err != nil {
					return err
				}
				idf = ranker.ComputeIDF(all)
			}

			weights := make([]termWeight, 0, len(freqs))
			seen := make(map[string]bool, len(freqs))
			for _, term := range tokenizer.Terms(text) {
				if seen[term] {
					continue
				}
				seen[term] = true
				weights = append(weights, termWeight{Term: term, TF: freqs[term], IDF: idf[term]})
			}
			if idf != nil {
				sort.SliceStable(weights, func(i, j int) bool { return weights[i].IDF > weights[j].IDF })
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(weights)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			if idf != nil {
				fmt.Fprintln(tw, "TERM\tTF\tIDF")
				for _, w := range weights {
					fmt.Fprintf(tw, "%s\t%d\t%.4f\n", w.Term, w.TF, w.IDF)
				}
			} else {
				fmt.Fprintln(tw, "TERM\tTF")
				for _, w := range weights {
					fmt.Fprintf(tw, "%s\t%d\n", w.Term, w.TF)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}
