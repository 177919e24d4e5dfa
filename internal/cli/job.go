package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewJobCmd создаёт группу команд для управления jobs.
func NewJobCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage jobs",
	}

	cmd.AddCommand(
		newJobListCmd(clientFn, outputFn),
		newJobPrepareCmd(clientFn, outputFn),
		newJobRunCmd(clientFn, outputFn),
		newJobSubmitCmd(clientFn, outputFn),
		newJobShowCmd(clientFn, outputFn),
		newJobStateCmd(clientFn, outputFn),
		newJobCancelCmd(clientFn, outputFn),
		newJobWatchCmd(clientFn, outputFn),
		newJobLogsCmd(clientFn, outputFn),
		newJobHistoryCmd(clientFn, outputFn),
	)

	return cmd
}

func newJobListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			all, err := client.ListJobs()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "STATE", "CREATED"}
			rows := make([][]string, len(all))
			for i, j := range all {
				rows[i] = []string{j.ID, j.Name, j.State, j.CreatedAt}
			}

			out.Print(headers, rows, all)
			return nil
		},
	}
}

// buildPrepareRequest собирает запрос Prepare из флагов команды.
func buildPrepareRequest(name, pipelineFile string, options []string) (PrepareJobRequest, error) {
	req := PrepareJobRequest{Name: name}

	if pipelineFile != "" {
		data, err := os.ReadFile(pipelineFile)
		if err != nil {
			return req, fmt.Errorf("read pipeline file: %w", err)
		}
		req.Pipeline = data
	}

	if len(options) > 0 {
		req.Options = make(map[string]any)
		for _, kv := range options {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) != 2 {
				return req, fmt.Errorf("invalid option format %q, expected KEY=VALUE", kv)
			}
			req.Options[parts[0]] = parts[1]
		}
	}

	return req, nil
}

func newJobPrepareCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var pipelineFile string
	var options []string

	cmd := &cobra.Command{
		Use:   "prepare NAME",
		Short: "Prepare a new job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req, err := buildPrepareRequest(args[0], pipelineFile, options)
			if err != nil {
				return err
			}

			prep, err := client.PrepareJob(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job prepared: %s", prep.ID))
			out.Print(
				[]string{"ID", "STAGING_TOKEN"},
				[][]string{{prep.ID, prep.StagingToken}},
				prep,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&pipelineFile, "pipeline", "", "Path to pipeline JSON file")
	cmd.Flags().StringSliceVar(&options, "option", nil, "Job options as KEY=VALUE (repeatable)")

	return cmd
}

func newJobRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "run ID",
		Short: "Start a prepared job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			state, err := client.RunJob(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job started: %s (%s)", args[0], state.State))
			return nil
		},
	}
}

func newJobSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var pipelineFile string
	var options []string
	var detach bool

	cmd := &cobra.Command{
		Use:   "submit NAME",
		Short: "Prepare a job, run it and watch until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req, err := buildPrepareRequest(args[0], pipelineFile, options)
			if err != nil {
				return err
			}

			prep, err := client.PrepareJob(req)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Job prepared: %s", prep.ID))

			if _, err := client.RunJob(prep.ID); err != nil {
				return err
			}
			out.Success("Job started")

			if detach {
				out.Print([]string{"ID"}, [][]string{{prep.ID}}, prep)
				return nil
			}

			var last string
			err = client.WatchState(prep.ID, func(state string) error {
				last = state
				out.Line(state)
				return nil
			})
			if err != nil {
				return err
			}

			if last != "DONE" {
				return fmt.Errorf("job finished in state %s", last)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pipelineFile, "pipeline", "", "Path to pipeline JSON file")
	cmd.Flags().StringSliceVar(&options, "option", nil, "Job options as KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&detach, "detach", false, "Do not wait for the job to finish")

	return cmd
}

func newJobShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			job, err := client.GetJob(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "NAME", "STATE", "CREATED"},
				[][]string{{job.ID, job.Name, job.State, job.CreatedAt}},
				job,
			)
			return nil
		},
	}
}

func newJobStateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "state ID",
		Short: "Show current job state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			state, err := client.GetState(args[0])
			if err != nil {
				return err
			}

			out.Print([]string{"STATE"}, [][]string{{state.State}}, state)
			return nil
		},
	}
}

func newJobCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			state, err := client.CancelJob(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job cancelled: %s (%s)", args[0], state.State))
			return nil
		},
	}
}

func newJobWatchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "watch ID",
		Short: "Stream job state transitions until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			return client.WatchState(args[0], func(state string) error {
				out.Line(state)
				return nil
			})
		},
	}
}

func newJobLogsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var jsonMode bool

	cmd := &cobra.Command{
		Use:   "logs ID",
		Short: "Stream the job message stream (logs and states)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			return client.WatchMessages(args[0], func(msg Message) error {
				if jsonMode {
					data, err := json.Marshal(msg)
					if err != nil {
						return err
					}
					out.Line(string(data))
					return nil
				}

				if msg.Log != nil {
					out.Line(fmt.Sprintf("[%s] %s", msg.Log.Severity, msg.Log.Text))
				} else {
					out.Line("state: " + msg.State)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonMode, "raw", false, "Print raw NDJSON lines")

	return cmd
}

func newJobHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "history ID",
		Short: "Show archived job history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			events, err := client.History(args[0])
			if err != nil {
				return err
			}

			headers := []string{"KIND", "STATE", "SEVERITY", "TEXT", "TIME"}
			rows := make([][]string, len(events))
			for i, ev := range events {
				rows[i] = []string{ev.Kind, ev.State, ev.Severity, ev.Text, ev.Time}
			}

			out.Print(headers, rows, events)
			return nil
		},
	}
}
