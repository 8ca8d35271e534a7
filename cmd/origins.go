package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/partgraph/internal/presentation"
)

func newOriginsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "origins",
		Short: "List manifests with registered content",
		Long: `List every manifest that contributed types or parts, in scan order, with
the parts each one declares.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.openSession(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.load(cmd.Context(), cmd.ErrOrStderr()); err != nil {
				return err
			}
			return c.formatter(cmd).FormatOrigins(presentation.FromRegistry(s.svc.Registry()))
		},
	}
}
