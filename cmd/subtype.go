package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/partgraph/internal/domain/registry"
	"github.com/zjrosen/partgraph/internal/presentation"
)

func newSubtypeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "subtype <parent> <child>",
		Short: "Check whether child derives from parent",
		Long: "Check whether child reaches parent through base types, interfaces or generic\n" +
			"definitions. A type is not its own subtype.\n\n" +
			"Examples:\n" +
			"  partgraph subtype Acme.IWidget Acme.Widget\n" +
			"  partgraph subtype 'System.Lazy`1' 'Acme.Handle`1[Acme.Widget]' --text",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, err := registry.ParseTypeIdentity(args[0])
			if err != nil {
				return fmt.Errorf("parent: %w", err)
			}
			child, err := registry.ParseTypeIdentity(args[1])
			if err != nil {
				return fmt.Errorf("child: %w", err)
			}

			s, err := c.openSession(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.load(cmd.Context(), cmd.ErrOrStderr()); err != nil {
				return err
			}

			reg := s.svc.Registry()
			for _, id := range []registry.TypeIdentity{parent, child} {
				if !reg.ContainsType(id) {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is not registered\n", id)
				}
			}
			return c.formatter(cmd).FormatSubtype(presentation.SubtypeDTO{
				Parent:    parent.String(),
				Child:     child.String(),
				IsSubtype: reg.IsSubtypeOf(parent, child),
			})
		},
	}
}
