package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/partgraph/internal/presentation"
)

func newTypesCmd(c *cli) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List registered types",
		Long: `List every registered type with its base, interfaces and all reachable ancestors.

Examples:
  partgraph types
  partgraph types --prefix Acme. --text`,
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
			dtos := make([]presentation.TypeDTO, 0)
			for _, desc := range reg.Types() {
				if !strings.HasPrefix(desc.Identity().String(), prefix) {
					continue
				}
				dtos = append(dtos, presentation.FromDomainType(desc, reg.Ancestors(desc.Identity())))
			}
			return c.formatter(cmd).FormatTypes(dtos)
		},
	}
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "only types whose identity starts with prefix")
	return cmd
}
