package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/zjrosen/partgraph/internal/domain/registry"
	"github.com/zjrosen/partgraph/internal/presentation"
)

// ErrUnsatisfied is returned by match --strict when an import has the wrong
// number of candidates.
var ErrUnsatisfied = errors.New("part has unsatisfied imports")

func newMatchCmd(c *cli) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "match <part>",
		Short: "Resolve every import of a part against all registered exports",
		Long: `Resolve every import of a part against the exports of all registered parts.

Each import lists the exports that satisfy it and the rule that accepted
them (direct, collection, lazy, func or action). An import is satisfied when
the number of candidates fits its cardinality.

Examples:
  partgraph match Acme.Host
  partgraph match Acme.Host --text
  partgraph match Acme.Host --strict && echo composable`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := registry.ParseTypeIdentity(args[0])
			if err != nil {
				return err
			}

			s, err := c.openSession(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.load(cmd.Context(), cmd.ErrOrStderr()); err != nil {
				return err
			}

			resolutions, err := s.svc.ResolvePart(cmd.Context(), id)
			if err != nil {
				return err
			}
			dto := presentation.FromResolutions(id, resolutions)
			if err := c.formatter(cmd).FormatMatch(dto); err != nil {
				return err
			}
			if strict && !dto.Satisfied {
				return ErrUnsatisfied
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any import is unsatisfied")
	return cmd
}
