package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewJobCmd создаёт группу команд для управления задачами.
func NewJobCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage jobs",
	}

	cmd.AddCommand(
		newJobEnqueueCmd(clientFn, outputFn),
		newJobShowCmd(clientFn, outputFn),
		newJobListCmd(clientFn, outputFn),
		newJobCancelCmd(clientFn, outputFn),
	)

	return cmd
}

var jobHeaders = []string{"ID", "TYPE", "DATASET", "CONFIG", "SPLIT", "STATUS", "CREATED"}

func jobRow(j JobResponse) []string {
	return []string{j.ID, j.JobType, j.Dataset, j.Config, j.Split, j.Status, j.CreatedAt}
}

func newJobEnqueueCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req EnqueueRequest

	cmd := &cobra.Command{
		Use:   "enqueue JOB_TYPE",
		Short: "Enqueue a job (no-op if one is already waiting or started)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req.JobType = args[0]
			job, created, err := client.EnqueueJob(cmd.Context(), req)
			if err != nil {
				return err
			}

			if created {
				out.Success(fmt.Sprintf("Job enqueued: %s", job.ID))
			} else {
				out.Success(fmt.Sprintf("Job already %s: %s", job.Status, job.ID))
			}
			out.Print(jobHeaders, [][]string{jobRow(*job)}, job)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Dataset, "dataset", "", "Dataset name")
	cmd.Flags().StringVar(&req.Config, "config", "", "Config name")
	cmd.Flags().StringVar(&req.Split, "split", "", "Split name")
	cmd.MarkFlagRequired("dataset")

	return cmd
}

func newJobShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			job, err := client.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			headers := append(jobHeaders, "STARTED", "FINISHED", "WORKER")
			row := append(jobRow(*job), job.StartedAt, job.FinishedAt, job.WorkerID)
			out.Print(headers, [][]string{row}, job)
			return nil
		},
	}
}

func newJobListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListJobsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			jobs, err := client.ListJobs(cmd.Context(), opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(jobs))
			for i, j := range jobs {
				rows[i] = jobRow(j)
			}

			out.Print(jobHeaders, rows, jobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.JobType, "type", "", "Filter by job type (/splits, /first-rows)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (waiting, started, success, error)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newJobCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel JOB_ID",
		Short: "Cancel a waiting job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().CancelJob(cmd.Context(), args[0]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Job cancelled: %s", args[0]))
			return nil
		},
	}
}
