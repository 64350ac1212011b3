// Package cmd implements the command-line interface for koi.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/koi-cli/koi/catalog"
	"github.com/koi-cli/koi/color"
	"github.com/koi-cli/koi/query"
	"github.com/koi-cli/koi/style"
	"github.com/koi-cli/koi/util"
)

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON object")
	infoCmd.Flags().BoolP("episodes", "e", false, "Include the episode listing")

	infoCmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return query.SuggestMany(toComplete), cobra.ShellCompDirectiveNoFileComp
	}

	infoCmd.SetOut(os.Stdout)
}

// infoCmd displays detailed catalog metadata for the closest title match.
var infoCmd = &cobra.Command{
	Use:   "info [title]",
	Short: "Display detailed catalog metadata for the closest matching title",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		title := strings.Join(args, " ")
		ctx := context.Background()
		client := catalog.New()

		animes, err := client.Search(ctx, title, 1)
		handleErr(err)
		if len(animes) == 0 {
			handleErr(fmt.Errorf("nothing found for %q", title))
		}
		_ = query.Remember(title, len(animes))

		var (
			details  *catalog.Details
			episodes []*catalog.Episode
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			details, err = client.Details(gctx, animes[0].ID)
			return err
		})
		if lo.Must(cmd.Flags().GetBool("episodes")) {
			g.Go(func() error {
				var err error
				episodes, err = client.Episodes(gctx, animes[0].ID, 1)
				return err
			})
		}
		handleErr(g.Wait())

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(struct {
				Details  *catalog.Details   `json:"details"`
				Episodes []*catalog.Episode `json:"episodes,omitempty"`
			}{details, episodes}))
			return
		}

		cmd.Printf("%s\n\n", style.Title(details.Title))

		var meta []string
		if details.Year != 0 {
			meta = append(meta, fmt.Sprint(details.Year))
		}
		if details.Status != "" {
			meta = append(meta, details.Status)
		}
		if details.Episodes != 0 {
			meta = append(meta, util.Quantify(details.Episodes, "episode", "episodes"))
		}
		if details.Score != 0 {
			meta = append(meta, fmt.Sprintf("Score %.2f", details.Score))
		}
		cmd.Println(style.Faint(strings.Join(meta, " | ")))

		if len(details.Genres) > 0 {
			genres := lo.Map(details.Genres, func(g catalog.Genre, _ int) string {
				return g.Name
			})
			cmd.Println(style.Fg(color.Cyan)(strings.Join(genres, ", ")))
		}

		if details.Synopsis != "" {
			width, _, err := util.TerminalSize()
			if err != nil {
				width = 100
			}
			cmd.Printf("\n%s\n", wordwrap.String(details.Synopsis, util.Min(width, 100)))
		}

		for _, episode := range episodes {
			cmd.Printf("%s %s\n", style.Fg(color.Purple)(fmt.Sprintf("%4d", episode.ID)), episode.Title)
		}
	},
}
