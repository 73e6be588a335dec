package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pbaille/tags/internal/config"
	"github.com/pbaille/tags/internal/logging"
	"github.com/pbaille/tags/internal/store"
	"github.com/pbaille/tags/internal/tagging"
)

var (
	configPath  string
	dbPath      string
	driver      string
	subjectType string
	partition   string
	verbose     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "tags",
		Short:        "Free-text tagging with occurrence counts and tag clouds",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")
	flags.StringVar(&dbPath, "db", "", "database path (overrides config)")
	flags.StringVar(&driver, "driver", "", "sqlite driver: sqlite3 or sqlite (overrides config)")
	flags.StringVarP(&subjectType, "subject-type", "t", "", "type of the tagged subjects (overrides config)")
	flags.StringVarP(&partition, "partition", "p", "", "partition, e.g. language (overrides config)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log debug events")

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(saveCmd("save", "Replace the tags of a subject", tagging.ModeReplace))
	rootCmd.AddCommand(saveCmd("append", "Add tags to a subject", tagging.ModeAppend))
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(ensureCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(recountCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(cloudCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("db") {
		cfg.DB.Path = dbPath
	}
	if cmd.Flags().Changed("driver") {
		cfg.DB.Driver = driver
	}
	if cmd.Flags().Changed("subject-type") {
		cfg.Tagging.SubjectType = subjectType
	}
	if cmd.Flags().Changed("partition") {
		cfg.Tagging.Partition = partition
	}

	return cfg, cfg.Validate()
}

func getStore(cfg config.Config) (*store.Store, error) {
	// Ensure directory exists
	if cfg.DB.Path != ":memory:" {
		dir := filepath.Dir(cfg.DB.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	return store.New(cfg.StoreConfig())
}

// env holds what a command needs to run against the database
type env struct {
	cmd    *cobra.Command
	cfg    config.Config
	store  *store.Store
	tagger *tagging.Tagger
	log    zerolog.Logger
}

func withEnv(run func(ctx context.Context, e env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		s, err := getStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		log := logging.New(os.Stderr, verbose)
		o := cfg.TaggingOptions()
		o.Logger = &log

		return run(cmd.Context(), env{
			cmd:    cmd,
			cfg:    cfg,
			store:  s,
			tagger: tagging.New(s, o),
			log:    log,
		}, args)
	}
}

func parseCmd() *cobra.Command {
	var separator string

	cmd := &cobra.Command{
		Use:   "parse [tag string]",
		Short: "Show how a tag string is parsed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("separator") {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				separator = cfg.Tagging.Separator
			}

			tags := tagging.Parse(args[0], separator)
			if len(tags) == 0 {
				fmt.Println("No tags.")
				return nil
			}

			for _, t := range tags {
				if t.Identifier != "" {
					fmt.Printf("%-20s %-12s %s\n", t.Name, t.Identifier, t.Key)
				} else {
					fmt.Printf("%-20s %-12s %s\n", t.Name, "-", t.Key)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&separator, "separator", "s", tagging.DefaultSeparator, "tag separator")
	return cmd
}

func saveCmd(use, short string, mode tagging.Mode) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [subject] [tag string]",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: withEnv(func(ctx context.Context, e env, args []string) error {
			ids, err := e.tagger.SaveTags(ctx, args[1], args[0], e.cfg.Tagging.Partition, mode)
			if err != nil {
				return err
			}

			e.log.Info().Str("subject", args[0]).Str("mode", string(mode)).Int("tags", len(ids)).Msg("saved tags")
			return printSubject(ctx, e, args[0])
		}),
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [subject] [tag field]",
		Short: "Apply the tag field of a saved subject using the configured mode",
		Long: "Apply the tag field of a saved subject using the configured mode.\n" +
			"An empty field removes the tags of the subject when delete_tags_on_empty_field is set.",
		Args: cobra.ExactArgs(2),
		RunE: withEnv(func(ctx context.Context, e env, args []string) error {
			if err := e.tagger.Sync(ctx, args[0], e.cfg.Tagging.Partition, args[1]); err != nil {
				return err
			}

			return printSubject(ctx, e, args[0])
		}),
	}
}

func ensureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure [tag string]",
		Short: "Create tags without tagging anything",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(ctx context.Context, e env, args []string) error {
			ids, err := e.tagger.EnsureTags(ctx, args[0])
			if err != nil {
				return err
			}

			for _, id := range ids {
				fmt.Println(id)
			}

			return nil
		}),
	}
}

func printSubject(ctx context.Context, e env, subject string) error {
	s, err := e.tagger.TagString(ctx, subject, e.cfg.Tagging.Partition)
	if err != nil {
		return err
	}

	if s == "" {
		fmt.Printf("%s has no tags.\n", subject)
		return nil
	}

	fmt.Printf("%s: %s\n", subject, s)
	return nil
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [subject]",
		Short: "Show the tags of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(ctx context.Context, e env, args []string) error {
			return printSubject(ctx, e, args[0])
		}),
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [subject]",
		Short: "Remove all tags of a subject, in every partition",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(ctx context.Context, e env, args []string) error {
			if err := e.tagger.DeleteAllAssociationsForSubject(ctx, args[0]); err != nil {
				return err
			}

			e.log.Info().Str("subject", args[0]).Msg("cleared tags")
			return nil
		}),
	}
}

func recountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recount [tag id...]",
		Short: "Refresh the cached occurrence of tags (all tags when none given)",
		RunE: withEnv(func(ctx context.Context, e env, args []string) error {
			ids := args
			if len(ids) == 0 {
				tags, err := e.store.ListTags(ctx)
				if err != nil {
					return err
				}

				for _, t := range tags {
					ids = append(ids, t.ID)
				}
			}

			if err := e.tagger.Recount(ctx, ids); err != nil {
				return err
			}

			e.log.Info().Int("tags", len(ids)).Msg("recounted")
			return nil
		}),
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tags",
		RunE: withEnv(func(ctx context.Context, e env, args []string) error {
			tags, err := e.store.ListTags(ctx)
			if err != nil {
				return err
			}

			if len(tags) == 0 {
				fmt.Println("No tags yet. Use 'tags save' to create some.")
				return nil
			}

			for _, t := range tags {
				name := t.Name
				if t.Identifier != "" {
					name = t.Identifier + ":" + t.Name
				}

				fmt.Printf("%s  %-30s %d\n", t.ID[:8], name, t.Occurrence)
			}

			return nil
		}),
	}
}
