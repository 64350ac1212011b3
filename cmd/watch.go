// Package cmd implements the command-line interface for koi.
package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/koi-cli/koi/filesystem"
	"github.com/koi-cli/koi/inline"
	"github.com/koi-cli/koi/key"
	"github.com/koi-cli/koi/query"
	"github.com/koi-cli/koi/tui"
	"github.com/koi-cli/koi/watch"
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolP("json", "j", false, "Resolve without the interactive interface and format the output as a JSON object")
	watchCmd.Flags().StringP("output", "o", "", "Specify a file path to write the command output")
	watchCmd.Flags().StringP("server", "s", "", "Server name marker preferred as the first fallback candidate")
	lo.Must0(viper.BindPFlag(key.MirrorPreferredServer, watchCmd.Flags().Lookup("server")))

	_ = watchCmd.RegisterFlagCompletionFunc("server", cobra.NoFileCompletions)
	watchCmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return query.SuggestMany(toComplete), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

// watchCmd resolves an episode and plays it with automatic server fallback.
var watchCmd = &cobra.Command{
	Use:   "watch [title] [episode]",
	Short: "Resolve an episode by title and play it with automatic server fallback",
	Long: `Resolve a human-readable anime title against the mirror catalog and play
the requested episode, switching servers automatically when one fails.`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		watchQuery := promptQuery(args)

		if lo.Must(cmd.Flags().GetBool("json")) {
			output := lo.Must(cmd.Flags().GetString("output"))
			var writer io.Writer = os.Stdout
			if output != "" {
				w, err := filesystem.API().Create(output)
				handleErr(err)
				writer = w
			}

			handleErr(inline.Run(context.Background(), &inline.Options{
				Query: watchQuery,
				Json:  true,
				Out:   writer,
			}))
			return
		}

		handleErr(tui.Run(&tui.Options{Query: watchQuery}))
	},
}

// promptQuery assembles the watch request from positional arguments,
// interactively asking for whatever is missing.
func promptQuery(args []string) watch.Query {
	var q watch.Query

	if len(args) >= 1 {
		q.Title = strings.TrimSpace(args[0])
	} else {
		input := survey.Input{
			Message: "What do you want to watch?",
			Suggest: query.SuggestMany,
		}
		handleErr(survey.AskOne(&input, &q.Title, survey.WithValidator(survey.Required)))
	}

	if len(args) >= 2 {
		episode, err := strconv.Atoi(args[1])
		handleErr(err)
		q.Episode = episode
	} else {
		var response string
		input := survey.Input{
			Message: "Episode number?",
			Default: "1",
		}
		handleErr(survey.AskOne(&input, &response))

		episode, err := strconv.Atoi(strings.TrimSpace(response))
		handleErr(err)
		q.Episode = episode
	}

	return q
}

func init() {
	watchCmd.AddCommand(watchSchemaCmd)
}

// watchSchemaCmd generates the JSON schema for structured watch outputs.
var watchSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate the JSON schema for structured watch outputs",
	Run: func(cmd *cobra.Command, args []string) {
		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true
		reflector.Namer = func(t reflect.Type) string {
			name := t.Name()
			switch strings.ToLower(name) {
			case "output", "source", "caption":
				return filepath.Base(t.PkgPath()) + "." + name
			}

			return name
		}

		schema := reflector.Reflect(&inline.Output{})
		handleErr(json.NewEncoder(os.Stdout).Encode(schema))
	},
}
