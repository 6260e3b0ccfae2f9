package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"askdocs/internal/answer"
	"askdocs/internal/config"
	"askdocs/internal/domain"
	"askdocs/internal/logging"
	"askdocs/internal/service"
	"askdocs/internal/tui"
)

type rootOptions struct {
	configPath string
	user       string
	files      []string
	topK       int
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "askdocs",
		Short:        "Ask questions about your documents",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config file (defaults to ./config.yaml or ~/.config/askdocs/config.yaml)")
	cmd.PersistentFlags().StringVarP(&opts.user, "user", "u", "", "User whose documents are searched (overrides config)")

	cmd.AddCommand(
		newIngestCmd(opts),
		newAskCmd(opts),
		newSearchCmd(opts),
		newListCmd(opts),
		newDeleteCmd(opts),
		newTUICmd(opts),
	)
	return cmd
}

func addFileFlag(cmd *cobra.Command, opts *rootOptions) {
	cmd.Flags().StringSliceVarP(&opts.files, "file", "f", nil, "Files or globs to ingest before running (needed with the memory store)")
}

func loadConfig(opts *rootOptions) (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if opts.configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(opts.configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.user != "" {
		cfg.User = opts.user
	}
	return cfg, nil
}

// setup loads config, builds the logger and the service, and ingests any
// --file arguments.
func setup(ctx context.Context, opts *rootOptions, quiet bool) (*app, *config.AppConfig, func(), error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, nil, err
	}
	log := zap.NewNop()
	if !quiet || len(cfg.Log.OutputPaths) > 0 {
		if log, err = logging.New(cfg.Log); err != nil {
			return nil, nil, nil, err
		}
	}
	a, err := build(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, err
	}
	log.Debug("components ready", zap.Stringer("tier", a.tier), zap.String("store", cfg.Store.Type))
	cleanup := func() {
		a.Close(context.Background())
		_ = log.Sync()
	}
	if len(opts.files) > 0 {
		if _, err := a.svc.IngestFiles(ctx, cfg.User, opts.files); err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("ingest failed: %w", err)
		}
	}
	return a, cfg, cleanup, nil
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Extract, chunk, embed and store documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, cleanup, err := setup(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer cleanup()
			docs, err := a.svc.IngestFiles(cmd.Context(), cfg.User, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range docs {
				fmt.Fprintf(out, "%s\t%s\t%d chunks\t%s\n", d.ID, d.Filename, len(d.Chunks), d.Provider)
			}
			return nil
		},
	}
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Answer a question from the stored documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, cleanup, err := setup(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer cleanup()
			ans, err := a.svc.Ask(cmd.Context(), cfg.User, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printAnswer(cmd.OutOrStdout(), ans)
			return nil
		},
	}
	addFileFlag(cmd, opts)
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search QUESTION",
		Short: "Show ranked passages without generating an answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, cleanup, err := setup(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer cleanup()
			res, err := a.svc.Search(cmd.Context(), cfg.User, strings.Join(args, " "), opts.topK)
			out := cmd.OutOrStdout()
			if errors.Is(err, domain.ErrNoRelevantResult) {
				fmt.Fprintf(out, "status: %s\n%s\n", res.Status, answer.NoResultAnswer)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "status: %s\n", res.Status)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, c := range res.Candidates {
				fmt.Fprintf(tw, "%.4f\t%s\t%s#%d\t%s\n", c.Score, c.Method, c.Filename, c.ChunkIndex, preview(c.Content, 60))
			}
			return tw.Flush()
		},
	}
	addFileFlag(cmd, opts)
	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "Number of passages (defaults to retrieval.top_k)")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cfg, cleanup, err := setup(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer cleanup()
			docs, err := a.svc.Documents(cmd.Context(), cfg.User)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", d.ID, d.Filename, len(d.Chunks), d.Provider, d.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, cleanup, err := setup(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer cleanup()
			return a.svc.DeleteDocument(cmd.Context(), cfg.User, args[0])
		},
	}
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui [FILE...]",
		Short: "Interactive question answering",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.files = append(opts.files, args...)
			// stderr logging would draw over the terminal UI
			a, cfg, cleanup, err := setup(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			defer cleanup()
			docs, err := a.svc.Documents(cmd.Context(), cfg.User)
			if err != nil {
				return err
			}
			summary := fmt.Sprintf("%d documents for %s, %s embeddings", len(docs), cfg.User, a.tier)
			_, err = tea.NewProgram(tui.New(a.svc, cfg.User, summary)).Run()
			return err
		},
	}
	addFileFlag(cmd, opts)
	return cmd
}

func printAnswer(w io.Writer, ans *service.Answer) {
	fmt.Fprintln(w, ans.Text)
	if len(ans.Sources) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for _, s := range ans.Sources {
		fmt.Fprintf(w, "  %s#%d  %.3f\n", s.Filename, s.ChunkIndex, s.Score)
	}
}

func preview(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
