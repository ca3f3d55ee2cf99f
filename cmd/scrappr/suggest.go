package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest"
)

const previewRunes = 72

type suggestOptions struct {
	view    string
	word    string
	limit   int
	json    bool
	explain bool
}

func (o *suggestOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.view, "view", "full", "View to rank for: full, summary or inline")
	cmd.Flags().StringVar(&o.word, "word", "", "Word under the cursor (inline view)")
	cmd.Flags().IntVar(&o.limit, "limit", 0, "Maximum results (0 uses the view default)")
	cmd.Flags().BoolVar(&o.json, "json", false, "Output in JSON format")
	cmd.Flags().BoolVar(&o.explain, "explain", false, "Show the score components of each suggestion")
}

func (o *suggestOptions) request(args []string) (suggest.Request, error) {
	view, err := suggest.ParseView(o.view)
	if err != nil {
		return suggest.Request{}, err
	}
	if o.limit < 0 {
		return suggest.Request{}, fmt.Errorf("--limit must not be negative")
	}
	return suggest.Request{
		Owner: notes.DefaultOwner,
		View:  view,
		Query: strings.Join(args, " "),
		Word:  o.word,
		Limit: o.limit,
	}, nil
}

func newSuggestCmd(root *rootOptions) *cobra.Command {
	opts := &suggestOptions{}
	cmd := &cobra.Command{
		Use:   "suggest [query...]",
		Short: "Rank notes against a query",
		Example: `  scrappr suggest --notes notes.yaml buy milk
  scrappr suggest -n notes.yaml --view inline --word dentist call the dentist`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(args)
			if err != nil {
				return err
			}
			svc, _, err := root.open()
			if err != nil {
				return err
			}
			result, err := svc.Suggest(cmd.Context(), req)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), result, opts.json, opts.explain)
		},
	}
	opts.register(cmd)
	return cmd
}

// render prints result as indented JSON or as a numbered list.
func render(w io.Writer, result *suggest.Result, asJSON, explain bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	title := "suggestions"
	if result.Mode == suggest.ModeLatest {
		title = "latest notes"
	}
	fmt.Fprintf(w, "%s (%s view, %d of %d notes)\n", title, result.View, len(result.Results), result.Candidates)
	for i, r := range result.Results {
		if result.Mode == suggest.ModeLatest {
			fmt.Fprintf(w, "%3d. [%s] %s\n", i+1, r.Note.ID, preview(r.Note.Content))
			continue
		}
		fmt.Fprintf(w, "%3d. [%s] %.4f  %s\n", i+1, r.Note.ID, r.Score, preview(r.Note.Content))
		if explain {
			fmt.Fprintf(w, "       cosine=%.4f substring=%.1f recency=%.4f\n", r.Cosine, r.Substring, r.Recency)
		}
	}
	return nil
}

// preview returns the first line of content, shortened to previewRunes.
func preview(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	if utf8.RuneCountInString(line) <= previewRunes {
		return line
	}
	runes := []rune(line)
	return string(runes[:previewRunes-1]) + "…"
}
