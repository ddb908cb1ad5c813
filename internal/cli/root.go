package cli

import (
	"cmp"
	"os"

	"github.com/spf13/cobra"
)

const defaultAPIURL = "http://localhost:8080"

// NewRootCmd собирает дерево команд cascade. Вывод идёт в
// OutOrStdout/ErrOrStderr корневой команды.
func NewRootCmd(version string) *cobra.Command {
	var (
		apiURL     string
		jsonOutput bool
	)

	root := &cobra.Command{
		Use:           "cascade",
		Short:         "Cascade CLI — dependency-driven pipeline runner",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&apiURL, "api-url", cmp.Or(os.Getenv("CASCADE_API_URL"), defaultAPIURL), "API server URL (env CASCADE_API_URL)")
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *Client { return NewClient(apiURL) }
	outputFn := func() *Output { return NewOutputTo(root.OutOrStdout(), root.ErrOrStderr(), jsonOutput) }

	root.AddCommand(
		NewRunCmd(outputFn),
		NewValidateCmd(outputFn),
		NewPlanCmd(outputFn),
		NewSubmitCmd(clientFn, outputFn),
		NewRunsCmd(clientFn, outputFn),
	)
	return root
}
