package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pbaille/tags/internal/cloud"
	"github.com/pbaille/tags/internal/store"
)

func cloudCmd() *cobra.Command {
	var (
		asHTML     bool
		limit      int
		identifier string
		scoped     bool
		shuffle    bool
	)

	cmd := &cobra.Command{
		Use:   "cloud",
		Short: "Show the weighted tag cloud",
		RunE: withEnv(func(ctx context.Context, e env, args []string) error {
			o := store.TopTagsOptions{Limit: limit, Identifier: identifier}
			if scoped {
				o.SubjectType = e.cfg.Tagging.SubjectType
			}

			entries, err := e.store.TopTags(ctx, o)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No tags in use.")
				return nil
			}

			display := e.cfg.DisplayOptions()
			if e.cmd.Flags().Changed("shuffle") {
				display.Shuffle = shuffle
			}

			if asHTML {
				if err := cloud.Display(os.Stdout, entries, display); err != nil {
					return err
				}

				fmt.Println()
				return nil
			}

			minSize, maxSize := e.cfg.Weights()
			entries, err = cloud.MapWeights(entries, minSize, maxSize)
			if err != nil {
				return err
			}

			if display.Shuffle {
				cloud.Shuffle(entries, nil)
			}

			for _, c := range entries {
				fmt.Printf("%-30s %6d %4d\n", c.Name, c.Occurrence, c.Weight)
			}

			return nil
		}),
	}

	cmd.Flags().BoolVar(&asHTML, "html", false, "render HTML links")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of tags")
	cmd.Flags().StringVarP(&identifier, "identifier", "i", "", "only tags with this identifier")
	cmd.Flags().BoolVar(&scoped, "scoped", false, "use the occurrence of the configured subject type")
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "shuffle the cloud (overrides config)")
	return cmd
}
