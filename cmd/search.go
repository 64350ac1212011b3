// Package cmd implements the command-line interface for koi.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/koi-cli/koi/catalog"
	"github.com/koi-cli/koi/color"
	"github.com/koi-cli/koi/key"
	"github.com/koi-cli/koi/query"
	"github.com/koi-cli/koi/style"
	"github.com/koi-cli/koi/util"
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON array")
	searchCmd.Flags().IntP("page", "p", 1, "Result page to fetch")

	searchCmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return query.SuggestMany(toComplete), cobra.ShellCompDirectiveNoFileComp
	}

	searchCmd.SetOut(os.Stdout)
}

// searchCmd queries the metadata catalog for entries matching a title.
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the metadata catalog for anime matching a title",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		searchQuery := strings.Join(args, " ")
		page := lo.Must(cmd.Flags().GetInt("page"))

		animes, err := catalog.New().Search(context.Background(), searchQuery, page)
		handleErr(err)
		_ = query.Remember(searchQuery, len(animes))

		if limit := viper.GetInt(key.SearchLimit); limit > 0 && len(animes) > limit {
			animes = animes[:limit]
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(animes))
			return
		}

		if len(animes) == 0 {
			cmd.Println(style.Faint("Nothing found"))
			return
		}

		cmd.Printf("%s\n\n", style.Title(util.Quantify(len(animes), "result", "results")))
		for _, anime := range animes {
			var meta []string
			if anime.Year != 0 {
				meta = append(meta, fmt.Sprint(anime.Year))
			}
			if anime.Type != "" {
				meta = append(meta, anime.Type)
			}
			if anime.Score != 0 {
				meta = append(meta, fmt.Sprintf("%.2f", anime.Score))
			}

			cmd.Printf("%s %s\n", style.Fg(color.Purple)(anime.Title), style.Faint(strings.Join(meta, " | ")))
		}
	},
}
