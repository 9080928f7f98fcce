package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	service "github.com/okian/gamesdesk/internal/app"
	"github.com/okian/gamesdesk/internal/auth"
	"github.com/okian/gamesdesk/internal/config"
	"github.com/okian/gamesdesk/pkg/logger"
)

type flags struct {
	configPath string
	fetchAll   bool
	skipIngest bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "gamesdesk",
		Short:         "Ingest, grade and pick winners for newsletter games",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "YAML config file (overrides GAMESDESK_CONFIG)")
	root.Flags().BoolVar(&f.fetchAll, "fetch-all", false, "ignore the ingestion boundary and read every labelled message")
	root.Flags().BoolVar(&f.skipIngest, "skip-ingest", false, "run cleanup, grading and winners without reading mail")

	root.AddCommand(newAuthorizeCmd(f), newLabelsCmd(f))
	return root
}

func load(ctx context.Context, f *flags) (*config.Config, error) {
	cfg, err := config.Load(ctx, f.configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

func run(ctx context.Context, f *flags) error {
	cfg, err := load(ctx, f)
	if err != nil {
		return err
	}
	if f.fetchAll {
		cfg.FetchAll = true
	}
	if f.skipIngest {
		cfg.SkipIngest = true
	}
	svc, err := service.Build(ctx, cfg)
	if err != nil {
		return err
	}
	_, err = svc.Run(ctx)
	return err
}

func newAuthorizeCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "authorize",
		Short: "Run the OAuth consent flow and save the token file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd.Context(), f)
			if err != nil {
				return err
			}
			oc, err := auth.LoadConfig(cfg.CredentialsFile)
			if err != nil {
				return err
			}
			if err := auth.Authorize(cmd.Context(), oc, cfg.TokenFile, cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "token saved to", cfg.TokenFile)
			return nil
		},
	}
}

func newLabelsCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List mail labels and mark the ones assigned to games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := load(ctx, f)
			if err != nil {
				return err
			}
			google, err := service.GoogleClient(ctx, cfg)
			if err != nil {
				return err
			}
			src, err := service.MailSourceFor(ctx, cfg, google)
			if err != nil {
				return err
			}
			labels, err := src.Labels(ctx)
			if err != nil {
				return err
			}
			games := map[string][]string{}
			for game, id := range cfg.Labels {
				games[id] = append(games[id], game)
			}
			sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tGAME")
			for _, l := range labels {
				g := games[l.ID]
				sort.Strings(g)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.ID, l.Name, strings.ToLower(l.Type), strings.Join(g, ", "))
			}
			return w.Flush()
		},
	}
}
