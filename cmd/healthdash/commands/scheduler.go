package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthdash/backend/internal/scheduler"
	"github.com/healthdash/backend/internal/scheduler/jobs"
)

// schedulerCmd groups scheduler commands
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Scheduled ingestion",
	Long: `Starts the scheduler or manages its jobs.

Subcommands:
  start   - run the scheduler (and the API server with --serve)
  list    - registered jobs and their schedules
  run     - run one job now and wait for it

Example:
  go run ./cmd/healthdash scheduler start
  go run ./cmd/healthdash scheduler list
  go run ./cmd/healthdash scheduler run ingestion`,
}

var (
	schedulerServe bool

	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Starts the scheduler with every registered job.

Registered jobs:
- ingestion: INGEST_SCHEDULE (default every 6 hours)

Stop with Ctrl+C.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job now",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerStartCmd.Flags().BoolVar(&schedulerServe, "serve", false, "also start the API server")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== healthdash Scheduler ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()
	defer sched.Stop()

	PrintSuccess("Scheduler started")
	printJobs(sched)

	if schedulerServe {
		return a.serve(cmd.Context(), "")
	}

	fmt.Println("\nPress Ctrl+C to stop")
	<-cmd.Context().Done()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	printJobs(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunJobSync(cmd.Context(), jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		PrintError(fmt.Sprintf("%s failed after %d attempt(s): %s", jobName, result.Attempts, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}

	PrintSuccess(fmt.Sprintf("%s completed in %s", jobName, result.Duration.Round(time.Millisecond)))
	if report := a.orchestrator.LastReport(); report != nil {
		PrintReport(report)
	}
	return nil
}

func initScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	if err := sched.AddJob(jobs.NewIngestionJob(a.orchestrator, a.cfg.IngestSchedule, a.log)); err != nil {
		return nil, err
	}

	return sched, nil
}

func printJobs(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()

	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.GetAllJobs() {
		line := fmt.Sprintf("  - %-12s %s", name, stats[name].Schedule)
		if next, err := sched.NextRun(name); err == nil && !next.IsZero() {
			line += "  next: " + next.Format("2006-01-02 15:04:05")
		}
		if last, err := sched.History(name, 1); err == nil && len(last) == 1 {
			status := "ok"
			if !last[0].Success {
				status = "failed: " + last[0].Error
			}
			line += fmt.Sprintf("  last: %s (%s)", last[0].StartTime.Format("2006-01-02 15:04:05"), status)
		}
		fmt.Println(line)
	}
}
