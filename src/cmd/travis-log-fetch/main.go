// Package main provides the travis-log-fetch command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"travis-log-fetch/src/config"
	"travis-log-fetch/src/contracts"
	"travis-log-fetch/src/fetch"
	"travis-log-fetch/src/logtemplate"
	"travis-log-fetch/src/provider"
	"travis-log-fetch/src/storage"
	"travis-log-fetch/src/target"
	"travis-log-fetch/src/tui"
)

// options holds the command line flags.
type options struct {
	configPath  string
	dir         string
	accessToken string
	travisToken string
	api         string
	format      string
	verbose     bool
	refresh     bool
	forks       bool
	force       bool
	all         bool
	old         bool
	self        bool
	wait        bool
	sleep       int
	count       int
	tui         bool
	ledgerDSN   string
	brokers     []string
	topic       string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	var (
		cfg  *config.Config
		tmpl *logtemplate.Template
	)

	rootCmd := &cobra.Command{
		Use:   "travis-log-fetch [flags] [target ...]",
		Short: "Download Travis CI job logs",
		Long: `travis-log-fetch downloads the logs of Travis CI jobs into a local tree.

Targets may be repository slugs (user/project), extended slugs
(user/project/10.1, user/project@<build id>, user/project:<job id>) or
Travis URLs. Builds whose logs are already stored are skipped unless
--force is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, tmpl, err = loadConfig(cmd, opts)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !opts.refresh && !opts.self {
				return fmt.Errorf("no targets given; pass targets, --refresh or --self")
			}
			return runFetch(cmd, cfg, tmpl, fetchOptions(cfg, opts, args), opts)
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config file read after ~/.travisrc and ./.travisrc")
	f.StringVarP(&opts.dir, "dir", "d", "", "root of the stored log tree (default ~/.travis)")
	f.StringVar(&opts.accessToken, "access-token", "", "GitHub access token (env GITHUB_ACCESS_TOKEN)")
	f.StringVar(&opts.travisToken, "travis-token", "", "Travis API token (env TRAVIS_TOKEN)")
	f.StringVar(&opts.api, "api", "", `Travis API: "org", "pro" or a base URL`)
	f.StringVar(&opts.format, "format", "", "stored log filename template (default "+logtemplate.DefaultTemplate+")")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug messages")
	f.StringVar(&opts.ledgerDSN, "ledger-dsn", "", "Postgres DSN of the fetch ledger (env LEDGER_DSN)")
	f.StringSliceVar(&opts.brokers, "brokers", nil, "Redpanda seed brokers (env REDPANDA_BROKERS)")
	f.StringVar(&opts.topic, "topic", "", "topic receiving fetched log events (default "+contracts.TopicLogsFetched+")")

	rf := rootCmd.Flags()
	rf.BoolVarP(&opts.refresh, "refresh", "r", false, "add every repository already stored")
	rf.BoolVar(&opts.forks, "forks", false, "add the forks of every target")
	rf.BoolVarP(&opts.force, "force", "f", false, "fetch builds that are already stored")
	rf.BoolVarP(&opts.all, "all", "a", false, "fetch the whole build history of every target")
	rf.BoolVarP(&opts.old, "old", "o", false, "fetch the --count newest builds of every target")
	rf.BoolVarP(&opts.self, "self", "s", false, "add the repositories of the authenticated user")
	rf.BoolVarP(&opts.wait, "wait", "w", false, "wait for pending jobs to finish")
	rf.IntVar(&opts.sleep, "sleep", 0, "seconds between polls of pending jobs (default 30)")
	rf.IntVar(&opts.count, "count", 0, "builds per repository taken by --old (default 10)")
	rf.BoolVar(&opts.tui, "tui", false, "show progress in a terminal UI")

	rootCmd.AddCommand(newParseCmd(), newStoredCmd(&cfg, &tmpl, opts), newEventsCmd(&cfg, opts))
	return rootCmd
}

// loadConfig layers the config files, the environment and the flags set on
// the command line, then validates the result.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, *logtemplate.Template, error) {
	paths := config.DefaultPaths()
	if opts.configPath != "" {
		if _, err := os.Stat(opts.configPath); err != nil {
			return nil, nil, fmt.Errorf("config file: %w", err)
		}
		paths = append(paths, opts.configPath)
	}

	cfg, err := config.Load(paths...)
	if err != nil {
		return nil, nil, err
	}
	applyFlags(cmd, cfg, opts)

	tmpl, err := cfg.Validate()
	if err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, tmpl, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config, opts *options) {
	changed := cmd.Flags().Changed
	if changed("dir") {
		cfg.Dir = opts.dir
	}
	if changed("access-token") {
		cfg.AccessToken = opts.accessToken
	}
	if changed("travis-token") {
		cfg.TravisToken = opts.travisToken
	}
	if changed("api") {
		cfg.API = opts.api
	}
	if changed("format") {
		cfg.Format = opts.format
	}
	if changed("sleep") {
		cfg.Sleep = opts.sleep
	}
	if changed("count") {
		cfg.Count = opts.count
	}
	if changed("ledger-dsn") {
		cfg.LedgerDSN = opts.ledgerDSN
	}
	if changed("brokers") {
		cfg.Brokers = opts.brokers
	}
	if changed("topic") {
		cfg.Topic = opts.topic
	}
}

func fetchOptions(cfg *config.Config, opts *options, args []string) fetch.Options {
	return fetch.Options{
		Targets: args,
		Refresh: opts.refresh,
		Self:    opts.self,
		Forks:   opts.forks,
		All:     opts.all,
		Old:     opts.old,
		Count:   cfg.Count,
		Force:   opts.force,
		Wait:    opts.wait,
		Sleep:   cfg.SleepDuration(),
	}
}

func runFetch(cmd *cobra.Command, cfg *config.Config, tmpl *logtemplate.Template, fo fetch.Options, opts *options) error {
	ctx := cmd.Context()
	env, backends, err := buildEnv(ctx, cfg, tmpl, opts.verbose, opts.tui)
	if err != nil {
		return provider.WrapError(err)
	}
	defer backends.Close()

	var summary *fetch.Summary
	if opts.tui {
		summary, err = tui.Run(ctx, env, fo, webURL(cfg.API))
	} else {
		summary, err = fetch.Run(ctx, env, fo)
	}
	if summary != nil {
		printSummary(cmd, summary)
	}
	return provider.WrapError(err)
}

func printSummary(cmd *cobra.Command, s *fetch.Summary) {
	out := cmd.OutOrStdout()
	for _, r := range s.Records {
		if r.Skipped {
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", r.JobNumber, r.State, r.Path)
	}
	fmt.Fprintf(out, "run %s: %d targets, %d jobs, %d written, %d already stored\n",
		s.RunID, len(s.Targets), s.Jobs, s.Written, s.Skipped)
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse target...",
		Short: "Print the canonical form of each target",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				t, err := target.Parse(arg)
				if err != nil {
					return provider.WrapError(fmt.Errorf("%q: %w", arg, err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", arg, t)
			}
			return nil
		},
	}
}

func newStoredCmd(cfg **config.Config, tmpl **logtemplate.Template, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stored [slug]",
		Short: "List stored repositories, or the stored builds of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := openIndex(*cfg, *tmpl, opts.verbose)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				t, err := target.ParseSimpleSlug(args[0])
				if err != nil {
					return provider.WrapError(err)
				}
				builds, err := index.StoredBuildsForRepo(t.Slug())
				if err != nil {
					return err
				}
				if len(builds) == 0 {
					fmt.Fprintf(out, "%s: none\n", t.Slug())
					return nil
				}
				fmt.Fprintln(out, storage.Describe(builds))
				return nil
			}

			slugs, err := index.StoredRepoSlugs()
			if err != nil {
				return err
			}
			for _, slug := range slugs {
				fmt.Fprintln(out, slug)
			}
			return nil
		},
	}
}

func newEventsCmd(cfg **config.Config, opts *options) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print fetched log events as they are published",
		Long: `Subscribe to the fetched log topic and print one line per event.

Requires Redpanda brokers (--brokers or REDPANDA_BROKERS); stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len((*cfg).Brokers) == 0 {
				return fmt.Errorf("events needs Redpanda brokers; set --brokers or REDPANDA_BROKERS")
			}
			ctx := cmd.Context()
			backends, err := openBackends(ctx, *cfg, newLogger(opts.verbose, false))
			if err != nil {
				return err
			}
			defer backends.Close()

			records, err := backends.Events.Records(ctx, group)
			if err != nil {
				return fmt.Errorf("failed to subscribe: %w", err)
			}
			for r := range records {
				fmt.Fprintln(cmd.OutOrStdout(), formatRecord(r))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&group, "group", "travis-log-fetch-events", "consumer group id")
	return cmd
}

func formatRecord(r contracts.FetchRecord) string {
	state := r.State
	if r.Skipped {
		state += " (kept)"
	}
	return strings.Join([]string{r.FetchedAt, r.Slug, r.JobNumber, state, r.Path}, "\t")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
