package seed

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quicktest-hq/quicktest/internal/conf"
	"github.com/quicktest-hq/quicktest/internal/datastore"
	"github.com/quicktest-hq/quicktest/internal/datastore/repository"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/seed"
)

// Command creates the seed command.
func Command(settings *conf.Settings) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load sessions, features and cases from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := seed.Load(args[0])
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d session(s), fixture is valid\n", args[0], len(fixture.Sessions))
				return nil
			}

			db, err := datastore.NewManager(&settings.Database, logger.Global().Module("datastore"))
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			if err := db.Initialize(); err != nil {
				return err
			}

			res, err := seed.Apply(cmd.Context(), repository.NewSessionRepository(db.DB()), fixture)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "organization %q (id %d): %d session(s), %d feature(s), %d case(s)\n",
				fixture.Organization, res.OrganizationID, len(res.Sessions), res.Features, res.Cases)
			for _, s := range res.Sessions {
				fmt.Fprintf(out, "  session %d  %s\n", s.ID, s.Title)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the fixture without writing")
	return cmd
}
