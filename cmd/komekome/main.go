package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"komekome/internal/bootstrap"
	reviewdto "komekome/internal/modules/review/dto"
	"komekome/internal/platform/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".komekome"
	}
	return filepath.Join(home, ".komekome")
}

func newRootCmd() *cobra.Command {
	var dataDir string

	root := &cobra.Command{
		Use:           "komekome",
		Short:         "Spaced-repetition study tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data", defaultDataDir(), "data directory")

	root.AddCommand(newTUICmd(&dataDir))
	root.AddCommand(newSessionCmd(&dataDir))
	root.AddCommand(newDueCmd(&dataDir))
	root.AddCommand(newItemsCmd(&dataDir))
	root.AddCommand(newSyncCmd(&dataDir))
	root.AddCommand(newStatsCmd(&dataDir))
	return root
}

func loadApp(dataDir string) (*bootstrap.App, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	cfg, err := config.New(dataDir)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg)
}

func newTUICmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the study tracker terminal UI",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir)
			if err != nil {
				return err
			}
			defer app.Close()
			return bootstrap.RunTUI(*dataDir, app)
		},
	}
}

func newSessionCmd(dataDir *string) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Review session lifecycle"}

	session.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start a session over today's due items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.ReviewCLI.StartSession(context.Background())
			if err != nil {
				return err
			}
			if out.Total == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "nothing due today")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session started: %s items=%d\n", out.SessionID, out.Total)
			return printCurrent(cmd, app)
		},
	})

	var result, memo string
	var elapsed int
	var mistakes []string
	answer := &cobra.Command{
		Use:   "answer --result <correct|incorrect>",
		Short: "Record the answer for the presented item",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result = strings.TrimSpace(strings.ToLower(result))
			switch result {
			case "o":
				result = "correct"
			case "x":
				result = "incorrect"
			}
			app, err := loadApp(*dataDir)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := context.Background()
			out, err := app.ReviewCLI.SubmitAnswer(ctx, reviewAnswer(result, elapsed, mistakes, memo))
			if err != nil {
				return err
			}
			switch {
			case out.Graduated:
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, item graduated\n", out.ItemID, out.Result)
			case out.CycleCompleted:
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, cycle complete, next review %s\n", out.ItemID, out.Result, out.NextReview)
			case out.Reinserted:
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, re-queued (kome %d)\n", out.ItemID, out.Result, out.KomeTotal)
			default:
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, next review %s\n", out.ItemID, out.Result, out.NextReview)
			}
			if !out.Finished {
				return printCurrent(cmd, app)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "session finished")
			enq, err := app.SyncCLI.EnqueueSessionBatch(ctx, out.SessionID, out.SessionAttemptIDs)
			if err != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sync: %v (batch kept pending)\n", err)
				return nil
			}
			if enq.Delivered {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sync: pushed %d attempts\n", enq.Attempts)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sync: queued %d attempts for later\n", enq.Attempts)
			}
			return nil
		},
	}
	answer.Flags().StringVar(&result, "result", "", "answer result: correct|incorrect (also o|x)")
	answer.Flags().IntVar(&elapsed, "elapsed", 0, "seconds spent on the item")
	answer.Flags().StringSliceVar(&mistakes, "mistakes", nil, "mistake tags for an incorrect answer")
	answer.Flags().StringVar(&memo, "memo", "", "free-form note")
	_ = answer.MarkFlagRequired("result")
	session.AddCommand(answer)

	session.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the active session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.ReviewCLI.SessionStatus(context.Background())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session %s started=%s correct=%d incorrect=%d cycles=%d remaining=%d/%d\n",
				out.SessionID, out.StartedAt.Format("15:04"), out.Correct, out.Incorrect, out.Cycles, out.Remaining, out.Queue)
			return printCurrent(cmd, app)
		},
	})

	session.AddCommand(&cobra.Command{
		Use:   "abort",
		Short: "Abandon the active session (recorded attempts are kept)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.ReviewCLI.AbortSession(context.Background()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "session aborted")
			return nil
		},
	})

	return session
}

func reviewAnswer(result string, elapsed int, mistakes []string, memo string) reviewdto.AnswerInput {
	return reviewdto.AnswerInput{
		Result:         result,
		ElapsedSeconds: elapsed,
		Mistakes:       mistakes,
		Memo:           memo,
	}
}

func printCurrent(cmd *cobra.Command, app *bootstrap.App) error {
	cur, err := app.ReviewCLI.Current(context.Background())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%d/%d] %s", cur.Position, cur.QueueLength, cur.Title)
	if cur.Book != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), " (%s)", cur.Book)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), " stage=%d kome=%d\n", cur.IntervalIndex, cur.KomeTotal)
	return nil
}

func newDueCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "List items due for review today",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir)
			if err != nil {
				return err
			}
			defer app.Close()
			items, err := app.ReviewCLI.DueItems(context.Background())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "nothing due today")
				return nil
			}
			for _, item := range items {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tstage=%d kome=%d\n", item.ID, item.Title, item.IntervalIndex, item.KomeTotal)
			}
			return nil
		},
	}
}

func newItemsCmd(dataDir *string) *cobra.Command {
	items := &cobra.Command{Use: "items", Short: "Item queries"}

	items.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all items with scheduling state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir)
			if err != nil {
				return err
			}
			defer app.Close()
			all, err := app.ReviewCLI.ListItems(context.Background())
			if err != nil {
				return err
			}
			if len(all) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no items (run `komekome sync now` to pull content)")
				return nil
			}
			for _, item := range all {
				state := item.NextReview
				if item.Graduated {
					state = "graduated"
				} else if state == "" {
					state = "new"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tstage=%d next=%s kome=%d\n", item.ID, item.Title, item.IntervalIndex, state, item.KomeTotal)
			}
			return nil
		},
	})
	return items
}

func newSyncCmd(dataDir *string) *cobra.Command {
	sync := &cobra.Command{Use: "sync", Short: "Remote synchronization"}

	sync.AddCommand(&cobra.Command{
		Use:   "now",
		Short: "Pull remote content and attempts, push local attempts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.SyncCLI.SyncNow(context.Background())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", out.Status)
			if out.Message != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", out.Message)
			}
			if out.UsedCache {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "  content served from local cache")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "content: %d created, %d updated\n", out.ContentCreated, out.ContentUpdated)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "attempts: %d adopted, %d pushed, %d batches flushed, %d pending\n",
				out.AttemptsAdopted, out.Pushed, out.BatchesFlushed, out.PendingBatches)
			return nil
		},
	})

	sync.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Retry delivery of queued attempt batches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.SyncCLI.FlushPending(context.Background())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "delivered %d batches, %d remaining\n", out.Delivered, out.Remaining)
			return nil
		},
	})

	sync.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show pending queue and content cache state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.SyncCLI.Status(context.Background())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pending: %d batches (%d attempts)\n", out.PendingBatches, out.PendingAttempts)
			if out.CachedAt.IsZero() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "content cache: empty")
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "content cache: version %d fetched %s\n", out.CachedVersion, out.CachedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	})

	return sync
}

func newStatsCmd(dataDir *string) *cobra.Command {
	stats := &cobra.Command{Use: "stats", Short: "Study statistics"}

	var period string
	overview := &cobra.Command{
		Use:   "overview",
		Short: "Show aggregates for a period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.StatsCLI.Overview(context.Background(), period)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "period: %s", out.Period)
			if out.From != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), " (since %s)", out.From)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "attempts: %d (%d correct, %d incorrect, %d%% accuracy)\n", out.Total, out.Correct, out.Incorrect, out.AccuracyPct)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "study time: %dm %ds over %d items (%d%% of catalog)\n", out.StudySeconds/60, out.StudySeconds%60, out.UniqueItems, out.CoveragePct)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "streak: %d days\n", out.StreakDays)
			if len(out.WeakItems) > 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "weak items:")
				for _, weak := range out.WeakItems {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s\t%s\t%d wrong\n", weak.ItemID, weak.Title, weak.Wrong)
				}
			}
			if len(out.Mistakes) > 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "mistakes:")
				for _, tag := range out.Mistakes {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s\t%d\n", tag.Tag, tag.Count)
				}
			}
			return nil
		},
	}
	overview.Flags().StringVar(&period, "period", "week", "aggregation period: day|week|month|year|all")
	stats.AddCommand(overview)

	stats.AddCommand(&cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the SQLite attempt index from the log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir)
			if err != nil {
				return err
			}
			defer app.Close()
			count, err := app.StatsCLI.Reindex(context.Background())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "indexed %d attempts\n", count)
			return nil
		},
	})

	return stats
}
