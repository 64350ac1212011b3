// Package cmd implements the command-line interface for koi.
package cmd

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/koi-cli/koi/color"
	"github.com/koi-cli/koi/key"
	"github.com/koi-cli/koi/mirror"
	"github.com/koi-cli/koi/query"
	"github.com/koi-cli/koi/resolve"
	"github.com/koi-cli/koi/style"
	"github.com/koi-cli/koi/util"
)

func init() {
	rootCmd.AddCommand(serversCmd)

	serversCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON array")

	serversCmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return query.SuggestMany(toComplete), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	serversCmd.SetOut(os.Stdout)
}

// serversCmd lists the delivery servers offering an episode.
var serversCmd = &cobra.Command{
	Use:   "servers [title] [episode]",
	Short: "List the delivery servers offering an episode",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		title := strings.TrimSpace(args[0])
		episode, err := strconv.Atoi(args[1])
		handleErr(err)

		ctx := context.Background()
		client := mirror.New()

		episodeID, err := resolve.New(client).Resolve(ctx, title, episode)
		handleErr(err)
		_ = query.Remember(title, 1)

		servers, err := client.Servers(ctx, episodeID)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(servers))
			return
		}

		cmd.Printf("%s\n\n", style.Title(util.Quantify(len(servers), "server", "servers")))

		marker := strings.ToLower(viper.GetString(key.MirrorPreferredServer))
		for _, server := range servers {
			name := server.Name
			if marker != "" && strings.Contains(strings.ToLower(name), marker) {
				name = style.Fg(color.Green)(name + " (preferred)")
			}
			cmd.Println(name)
		}
	},
}
