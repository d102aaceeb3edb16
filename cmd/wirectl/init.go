package main

import (
	"fmt"
	"path/filepath"

	"github.com/danmuck/wirecodec/internal/config"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var (
		dir   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config and schema",
		Args:  cobra.NoArgs,
		// init runs before any config exists.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			files := []struct{ path, kind string }{
				{filepath.Join(dir, config.DefaultPath), config.KindWirectl},
				{filepath.Join(dir, "schema.toml"), config.KindSchema},
			}
			for _, f := range files {
				if err := config.WriteTemplate(f.path, f.kind, force); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", f.path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to write into")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}
