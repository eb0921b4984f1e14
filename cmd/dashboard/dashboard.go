package dashboard

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"sync"

	"github.com/spf13/cobra"

	"github.com/quicktest-hq/quicktest/internal/client"
	"github.com/quicktest-hq/quicktest/internal/conf"
	"github.com/quicktest-hq/quicktest/internal/dashboard"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/quicktest"
)

// Command creates the dashboard command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		filter    string
		expandAll bool
	)

	cmd := &cobra.Command{
		Use:   "dashboard <sessionID>",
		Short: "Show a session as the configured tester sees it",
		Long: `Show the personalized quick test dashboard of a session.

On a first visit only the first feature is expanded. Later runs restore the
filter and expansion of the previous one, kept in client.statefile for
client.statettl. The status filter applies to the tester's own feedback, like
the quick test page.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := strconv.ParseUint(args[0], 10, 0)
			if err != nil {
				return fmt.Errorf("invalid session id %q", args[0])
			}
			f, err := quicktest.ParseStatusFilter(filter)
			if err != nil {
				return err
			}

			log := logger.Global().Module("client")
			cl, err := client.New(client.ConfigFromSettings(&settings.Client), log)
			if err != nil {
				return err
			}
			defer cl.Close()

			qlog := logger.Global().Module("quicktest")
			persister := quicktest.NewStatePersister(quicktest.StateStoreFromSettings(&settings.Client, qlog), qlog)
			view := &terminalView{}
			ctrl := quicktest.New(cl, uint(sessionID),
				quicktest.WithLogger(qlog),
				quicktest.WithStatePersister(persister, view.State))
			defer ctrl.Close()
			if err := ctrl.Reload(cmd.Context()); err != nil {
				return err
			}

			vm := ctrl.Snapshot()
			saved, ok := ctrl.RestoreState()
			view.scroll = saved.ScrollPosition
			cancel := quicktest.Apply(vm, saved, ok, view, settings.Client.ScrollDelay)
			defer cancel()

			if cmd.Flags().Changed("filter") {
				view.SetStatusFilter(f)
			}
			if expandAll {
				view.SetExpanded(quicktest.ToggleAll(vm, nil))
			}
			state := view.State()
			Render(cmd.OutOrStdout(), vm, state.StatusFilter, state.ExpandedFeatureIDs)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "all", "Status filter: all, untested, tested, pass, fail")
	cmd.Flags().BoolVar(&expandAll, "expand-all", false, "Show the cases of every feature")
	return cmd
}

// terminalView records what Apply restores. A terminal has no scroll
// position of its own, so the saved one is carried through unchanged.
type terminalView struct {
	mu       sync.Mutex
	filter   quicktest.StatusFilter
	expanded []uint
	scroll   float64
}

func (v *terminalView) SetStatusFilter(f quicktest.StatusFilter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = f
}

func (v *terminalView) SetExpanded(ids []uint) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.expanded = ids
}

func (v *terminalView) ScrollTo(pos float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scroll = pos
}

// State reports the view for the controller to persist.
func (v *terminalView) State() quicktest.UIState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return quicktest.UIState{
		ScrollPosition:     v.scroll,
		ExpandedFeatureIDs: slices.Clone(v.expanded),
		StatusFilter:       v.filter,
	}
}

// Render prints a dashboard.
func Render(w io.Writer, vm *dashboard.ViewModel, filter quicktest.StatusFilter, expanded []uint) {
	s := vm.Stats
	fmt.Fprintf(w, "%s [%s]\n", vm.Session.Title, vm.Session.Status)
	fmt.Fprintf(w, "progress %d%%  pass rate %d%%  tested %d/%d  passed %d  failed %d  testers %d\n\n",
		s.ProgressPercentage, s.PassRate, s.TestedCases, s.TotalCases, s.PassedCases, s.FailedCases, s.ActiveTesters)

	open := make(map[uint]bool, len(expanded))
	for _, id := range expanded {
		open[id] = true
	}

	for _, f := range vm.Features {
		marker := "+"
		if open[f.ID] {
			marker = "-"
		}
		fmt.Fprintf(w, "%s %s  %d/%d tested, %d%%\n", marker, f.Title, f.Stats.Tested, f.Stats.Total, f.Stats.ProgressPercentage)
		if !open[f.ID] {
			continue
		}
		cases := quicktest.FilterCases(f.Cases, filter)
		if len(cases) == 0 {
			fmt.Fprintln(w, "    (no cases match the filter)")
			continue
		}
		for _, c := range cases {
			mine := "not tested by you"
			if c.MyFeedback != nil {
				mine = fmt.Sprintf("you: %s %q", c.MyFeedback.Result, c.MyFeedback.Comment)
			}
			fmt.Fprintf(w, "    #%-5d %-8s %s  (%s)\n", c.ID, c.Status, c.Title, mine)
		}
	}
}
