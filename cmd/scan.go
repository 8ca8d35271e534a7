package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/partgraph/internal/presentation"
)

func newScanCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan manifests and report what was registered",
		Long: `Scan every manifest directory and summarize the result.

Manifests that fail to parse or register are listed with their errors and
the command exits non-zero. With a snapshot store configured, manifests whose
content is unchanged since the last run are not parsed again.

Examples:
  partgraph scan
  partgraph scan -m plugins -m vendor/plugins --text
  partgraph scan | jq '.failed'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.openSession(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			report, errs, err := s.scan(cmd.Context())
			if err != nil {
				return err
			}
			dto := presentation.FromScanReport(report, s.svc.Registry().Stats(), errs)
			if err := c.formatter(cmd).FormatScanReport(dto); err != nil {
				return err
			}
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d manifests failed", len(report.Failed))
			}
			return nil
		},
	}
}
