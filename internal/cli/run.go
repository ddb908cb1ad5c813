package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewRunsCmd создаёт группу команд для просмотра runs через API.
func NewRunsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs on the API server",
	}

	cmd.AddCommand(
		newRunsListCmd(clientFn, outputFn),
		newRunsShowCmd(clientFn, outputFn),
		newRunsNodesCmd(clientFn, outputFn),
	)

	return cmd
}

var (
	runHeaders       = []string{"ID", "PIPELINE", "STATUS", "WORKFLOW", "TRIGGER", "CREATED"}
	runDetailHeaders = []string{"ID", "PIPELINE", "STATUS", "WORKFLOW", "TRIGGER", "CREATED", "ERROR"}
)

func runRow(r RunResponse) []string {
	return []string{r.ID, r.Pipeline, r.Status, r.WorkflowStatus, r.Trigger, r.CreatedAt}
}

func newRunsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListRunsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := clientFn().ListRuns(cmd.Context(), opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = runRow(r)
			}

			outputFn().Print(runHeaders, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Pipeline, "pipeline", "", "Filter by pipeline name")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of results to skip")

	return cmd
}

func newRunsShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := clientFn().GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			outputFn().Print(
				runDetailHeaders,
				[][]string{append(runRow(*run), run.Error)},
				run,
			)
			return nil
		},
	}
}

func newRunsNodesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "nodes RUN_ID",
		Short: "List node outcomes of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := clientFn().ListNodes(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, len(nodes))
			for i, n := range nodes {
				d := time.Duration(n.DurationMs) * time.Millisecond
				rows[i] = []string{n.Action, n.Type, n.State, n.Status, durationCell(d)}
			}

			outputFn().Print(nodeHeaders, rows, nodes)
			return nil
		},
	}
}

// NewSubmitCmd создаёт команду отправки pipeline на API сервер.
func NewSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var params []string
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Submit a pipeline to the API server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadPipeline(args[0])
			if err != nil {
				return err
			}
			values, err := ParseParams(params)
			if err != nil {
				return err
			}

			run, err := clientFn().CreateRun(cmd.Context(), CreateRunRequest{
				Pipeline:       spec,
				Params:         values,
				IdempotencyKey: idempotencyKey,
			})
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Run submitted: %s", run.ID))
			out.Print(runHeaders, [][]string{runRow(*run)}, run)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Pipeline parameter as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Deduplicate repeated submissions")

	return cmd
}

// dash заменяет пустое значение на "-".
func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func durationCell(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64) + "s"
}
