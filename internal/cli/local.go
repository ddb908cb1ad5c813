package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/orchestrator"
	"github.com/shaiso/Cascade/internal/pipeline"
	"github.com/shaiso/Cascade/internal/repo"
	"github.com/shaiso/Cascade/internal/steps"
	"github.com/shaiso/Cascade/internal/telemetry"
	"github.com/shaiso/Cascade/internal/worker"
)

var nodeHeaders = []string{"ACTION", "TYPE", "STATE", "STATUS", "DURATION"}

// LocalResult — итог локального выполнения для вывода в JSON.
type LocalResult struct {
	Run   *domain.Run         `json:"run"`
	Nodes []domain.NodeResult `json:"nodes"`
}

// NewRunCmd создаёт команду локального выполнения pipeline.
// Run не требует API сервера: история хранится в памяти процесса.
func NewRunCmd(outputFn func() *Output) *cobra.Command {
	var params []string
	var timeout time.Duration
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Execute a pipeline locally and print node outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			spec, err := loadPipeline(args[0])
			if err != nil {
				return err
			}
			values, err := ParseParams(params)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			level := slog.LevelWarn
			var events orchestrator.EventSink
			if verbose {
				level = slog.LevelDebug
				events = progressSink(out)
			}

			store := repo.NewMemoryRunRepo()
			w := worker.New(worker.Config{
				Store:  store,
				Events: events,
				Logger: telemetry.NewLogger(out.Messages(), level, "text"),
			})
			defer w.Stop()

			run, runErr := w.Execute(ctx, worker.RunRequest{
				Pipeline: spec,
				Params:   values,
				Trigger:  domain.TriggerManual,
			})
			if run == nil {
				return runErr
			}

			nodes, err := store.ListNodes(context.WithoutCancel(ctx), run.ID)
			if err != nil {
				return err
			}

			if out.JSONMode() {
				out.JSON(LocalResult{Run: run, Nodes: nodes})
			} else {
				out.Table(nodeHeaders, nodeRows(nodes))
			}

			if runErr != nil {
				return runErr
			}
			out.Success(fmt.Sprintf("Pipeline %s settled: run %s, workflow %s",
				run.Pipeline, run.ID, dash(string(run.WorkflowStatus))))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Pipeline parameter as KEY=VALUE (repeatable)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort the run after this duration")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print node events and debug logs")

	return cmd
}

// NewValidateCmd создаёт команду проверки pipeline.
func NewValidateCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate pipeline files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			registry := steps.DefaultRegistry()

			var errs []error
			for _, path := range args {
				spec, err := loadPipeline(path)
				if err == nil {
					err = pipeline.Validate(spec, registry)
				}
				if err != nil {
					out.Error(fmt.Sprintf("%s: %v", path, err))
					errs = append(errs, err)
					continue
				}
				out.Success(fmt.Sprintf("%s: pipeline %s is valid (%d actions)", path, spec.Name, len(spec.Actions)))
			}

			if len(errs) > 0 {
				return fmt.Errorf("%d of %d pipelines are invalid", len(errs), len(args))
			}
			return nil
		},
	}
}

// NewPlanCmd создаёт команду вывода плана выполнения.
func NewPlanCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "plan FILE",
		Short: "Show the dependency graph of a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadPipeline(args[0])
			if err != nil {
				return err
			}

			plan, err := pipeline.PlanWith(spec, steps.DefaultRegistry())
			if err != nil {
				return err
			}

			headers := []string{"ACTION", "TYPE", "ALL_IN", "ANY_OF", "WORKFLOW", "SCOPED", "GUARD"}
			rows := make([][]string, len(plan.Nodes))
			for i, n := range plan.Nodes {
				rows[i] = []string{
					n.Action,
					n.Type,
					requirements(n.AllIn),
					requirements(n.AnyOf),
					string(n.NeedsWorkflow),
					strconv.FormatBool(n.InWorkflowScope),
					strconv.FormatBool(n.HasGuard),
				}
			}

			out := outputFn()
			out.Print(headers, rows, plan)
			if !out.JSONMode() {
				out.Success("Order: " + strings.Join(plan.Order, " -> "))
			}
			return nil
		},
	}
}

// ParseParams разбирает параметры KEY=VALUE.
// Значение декодируется как YAML scalar: "3" — число, "true" — bool.
func ParseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	params := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param format %q, expected KEY=VALUE", kv)
		}

		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}
		params[key] = value
	}
	return params, nil
}

func loadPipeline(path string) (*domain.PipelineSpec, error) {
	return pipeline.LoadFile(path)
}

func nodeRows(nodes []domain.NodeResult) [][]string {
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		rows[i] = []string{n.Action, n.Type, string(n.State), string(n.Status), durationCell(n.Duration())}
	}
	return rows
}

func requirements(reqs []pipeline.Requirement) string {
	if len(reqs) == 0 {
		return "-"
	}
	parts := make([]string, len(reqs))
	for i, r := range reqs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// progressSink печатает события выполнения в поток сообщений.
func progressSink(out *Output) orchestrator.EventSink {
	return orchestrator.EventSinkFunc(func(_ context.Context, e orchestrator.Event) {
		switch {
		case e.Kind == orchestrator.EventWorkflowFinalized:
			fmt.Fprintf(out.Messages(), "* workflow finalized: %s\n", e.WorkflowStatus)
		case e.Status != "":
			fmt.Fprintf(out.Messages(), "* %s %s: %s\n", e.Kind, e.Action, e.Status)
		default:
			fmt.Fprintf(out.Messages(), "* %s %s\n", e.Kind, e.Action)
		}
	})
}
