package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Validate the schema file and list its structs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := a.schemaSet()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, name := range set.Names() {
				desc, _ := set.Lookup(name)
				fmt.Fprintf(w, "%s (%d fields)\n", name, desc.NumFields())
				for _, f := range desc.Fields() {
					fmt.Fprintf(w, "  %s\n", f)
				}
			}
			return nil
		},
	}
}
