package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/partgraph/internal/presentation"
	"github.com/zjrosen/partgraph/internal/registry/application"
)

func newPartsCmd(c *cli) *cobra.Command {
	var origin string
	cmd := &cobra.Command{
		Use:   "parts",
		Short: "List registered parts with their exports and imports",
		Long: `List every registered part, the manifest it came from, and its exports and imports.

Examples:
  partgraph parts
  partgraph parts --origin plugins/widgets.yaml
  partgraph parts | jq '.[].exports[].contract'`,
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

			reg := s.svc.Registry()
			dtos := make([]presentation.PartDTO, 0)
			for _, part := range reg.Parts() {
				o, _ := reg.PartOrigin(part.Identity())
				if origin != "" && o != application.FileOrigin(origin) {
					continue
				}
				dtos = append(dtos, presentation.FromDomainPart(part, o))
			}
			return c.formatter(cmd).FormatParts(dtos)
		},
	}
	cmd.Flags().StringVarP(&origin, "origin", "o", "", "only parts from this manifest")
	return cmd
}
