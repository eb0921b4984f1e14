package history

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quicktest-hq/quicktest/internal/client"
	"github.com/quicktest-hq/quicktest/internal/conf"
	"github.com/quicktest-hq/quicktest/internal/datastore/repository"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/quicktest"
)

// Command creates the history command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		page     int
		limit    int
		audit    bool
		deleteID uint
	)

	cmd := &cobra.Command{
		Use:   "history <caseID>",
		Short: "List the feedback history of a case, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caseID, err := strconv.ParseUint(args[0], 10, 0)
			if err != nil {
				return fmt.Errorf("invalid case id %q", args[0])
			}

			cl, err := client.New(client.ConfigFromSettings(&settings.Client), logger.Global().Module("client"))
			if err != nil {
				return err
			}
			defer cl.Close()

			ctx := cmd.Context()
			list := quicktest.FeedbackList{}.Apply(quicktest.Fetching{})
			fetched, err := cl.ListFeedback(ctx, uint(caseID), page, limit)
			if err != nil {
				list = list.Apply(quicktest.FetchFailed{Err: err})
				return list.Err
			}
			list = list.Apply(quicktest.Fetched{Page: *fetched})

			if deleteID != 0 {
				if err := cl.DeleteFeedback(ctx, deleteID); err != nil {
					return err
				}
				list = list.Apply(quicktest.Deleted{ID: deleteID})
				fmt.Fprintf(cmd.OutOrStdout(), "deleted feedback %d\n", deleteID)
			}

			out := cmd.OutOrStdout()
			Render(out, list)
			if !audit {
				return nil
			}
			for _, item := range list.Items {
				entries, err := cl.Changelog(ctx, item.ID, 1, repository.MaxPageLimit)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nchangelog of feedback %d:\n", item.ID)
				for _, e := range entries.Items {
					fmt.Fprintf(out, "  %s  %-8s by tester %d  %s\n",
						e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.TesterID, string(e.Changes))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", repository.DefaultPageLimit, "Entries per page (max 100)")
	cmd.Flags().BoolVar(&audit, "audit", false, "Also print the changelog of each entry")
	cmd.Flags().UintVar(&deleteID, "delete", 0, "Delete one of your feedback entries before listing")
	return cmd
}

// Render prints one page of feedback.
func Render(w io.Writer, list quicktest.FeedbackList) {
	m := list.Meta
	fmt.Fprintf(w, "%d entr(ies), page %d of %d\n", m.Total, m.Page, max(m.TotalPages, 1))
	for _, f := range list.Items {
		fmt.Fprintf(w, "  #%-5d %s  tester %-4d %-4s %q\n",
			f.ID, f.CreatedAt.Format("2006-01-02 15:04:05"), f.TesterID, f.Result, f.Comment)
	}
}
