package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ember/kernel"
	"ember/trace"
)

func newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "Show the live task table",
		RunE: func(cmd *cobra.Command, args []string) error {
			var tasks []kernel.TaskInfo
			if err := client.get("/api/v1/tasks", &tasks); err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "IDX\tNAME\tSTATUS\tCOST\tBUDGET\tSTRIKES\tBENCH")
			for _, t := range tasks {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%d\n",
					t.Index, t.Name, t.Status,
					humanize.Comma(int64(t.LastCost)), humanize.Comma(int64(t.Budget)),
					t.Violations, t.Cooldown)
			}
			return w.Flush()
		},
	}
}

func newActivationsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activations",
		Short: "Show recent activations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var recs []*trace.Record
			if err := client.get(fmt.Sprintf("/api/v1/activations?limit=%d", limit), &recs); err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SEQ\tTASK\tSTATUS\tCOST\tBUDGET\tAT")
			for _, r := range recs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					r.Seq, r.Task, r.Status,
					humanize.Comma(int64(r.Cost)), humanize.Comma(int64(r.Budget)),
					r.At.Local().Format("15:04:05.000"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum records to fetch")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show per-task totals for this boot",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sums []*trace.TaskSummary
			if err := client.get("/api/v1/summary", &sums); err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tRUNS\tOVERRUNS\tTOTAL CYCLES\tLAST")
			for _, s := range sums {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
					s.Task, s.Activations, s.Overruns,
					humanize.Comma(int64(s.TotalCost)), s.LastStatus)
			}
			return w.Flush()
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the trace API",
		RunE: func(cmd *cobra.Command, args []string) error {
			var body map[string]any
			if err := client.get("/api/v1/health", &body); err != nil {
				return err
			}
			fmt.Printf("status: %v\nboot:   %v\nuptime: %v\n", body["status"], body["boot_id"], body["uptime"])
			return nil
		},
	}
}
