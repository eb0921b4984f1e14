package submit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quicktest-hq/quicktest/internal/client"
	"github.com/quicktest-hq/quicktest/internal/conf"
	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/quicktest"
	"github.com/quicktest-hq/quicktest/internal/status"
)

// Command creates the submit command.
func Command(settings *conf.Settings) *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "submit <sessionID> <caseID> pass|fail",
		Short: "Record a pass or fail for a case",
		Long: `Record feedback for a case as the configured tester.

A first pass is sent with the comment "Marked as pass". A first fail needs
--comment. A change to existing feedback uses --comment when given and keeps
the existing comment otherwise.

The dashboard's saved view state (client.statefile) is carried through
unchanged and its expiry renewed.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := strconv.ParseUint(args[0], 10, 0)
			if err != nil {
				return fmt.Errorf("invalid session id %q", args[0])
			}
			caseID, err := strconv.ParseUint(args[1], 10, 0)
			if err != nil {
				return fmt.Errorf("invalid case id %q", args[1])
			}
			result, err := status.ParseResult(args[2])
			if err != nil {
				return err
			}
			if settings.Client.TesterID == 0 {
				return fmt.Errorf("a tester identity is required: set --tester or client.testerid")
			}

			log := logger.Global().Module("client")
			cl, err := client.New(client.ConfigFromSettings(&settings.Client), log)
			if err != nil {
				return err
			}
			defer cl.Close()

			out := cmd.OutOrStdout()
			notifier := quicktest.NotifierFunc(func(n quicktest.Notification) {
				if n.Level == quicktest.LevelError {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", n.Message, n.Err)
				}
			})
			qlog := logger.Global().Module("quicktest")
			persister := quicktest.NewStatePersister(quicktest.StateStoreFromSettings(&settings.Client, qlog), qlog)
			opts := []quicktest.Option{
				quicktest.WithLogger(qlog),
				quicktest.WithNotifier(notifier),
				quicktest.WithSubmitTimeout(settings.Client.SubmitTimeout),
			}
			// Nothing is shown here, so only a state the dashboard saved is
			// written back.
			if saved, ok := persister.RestoreState(uint(sessionID)); ok {
				opts = append(opts, quicktest.WithStatePersister(persister, func() quicktest.UIState { return saved }))
			}
			ctrl := quicktest.New(cl, uint(sessionID), opts...)
			defer ctrl.Close()

			ctx := cmd.Context()
			if err := ctrl.Reload(ctx); err != nil {
				return err
			}

			var sub *quicktest.Submission
			if comment != "" {
				sub, err = ctrl.Submit(ctx, uint(caseID), result, comment)
			} else {
				sub, err = quickSubmit(ctx, ctrl, uint(caseID), result)
			}
			if err != nil {
				return err
			}

			if err := sub.Wait(ctx); err != nil {
				return err
			}

			vm := ctrl.Snapshot()
			cv, ok := vm.Case(uint(caseID))
			if !ok || cv.MyFeedback == nil {
				fmt.Fprintf(out, "feedback submitted on case %d\n", caseID)
				return nil
			}
			verb := "created"
			if sub.Update {
				verb = "updated"
			}
			fmt.Fprintf(out, "feedback %s %s on case %d: %q\n", cv.MyFeedback.ID, verb, cv.ID, cv.MyFeedback.Comment)
			fmt.Fprintf(out, "case status %s; session progress %d%%, pass rate %d%%\n",
				cv.Status, vm.Stats.ProgressPercentage, vm.Stats.PassRate)
			return nil
		},
	}

	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Comment for the feedback; required for a first fail")
	return cmd
}

// errCommentRequired is returned for a first fail submitted without --comment.
var errCommentRequired = errors.NewStd("a first fail needs a comment: use --comment")

// quickSubmit follows the page's click policy without a comment. An update
// keeps the existing comment; a first fail is refused.
func quickSubmit(ctx context.Context, ctrl *quicktest.Controller, caseID uint, result status.Result) (*quicktest.Submission, error) {
	sub, prompt, err := ctrl.Quick(ctx, caseID, result)
	if err != nil || prompt == nil {
		return sub, err
	}
	if !prompt.Update {
		return nil, errCommentRequired
	}
	return ctrl.Confirm(ctx, prompt, result, prompt.Comment)
}
