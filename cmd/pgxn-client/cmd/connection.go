package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/pgxn-client/internal/pg"
)

// addConnectionFlags registers the psql connection flags on a command.
// The -h shorthand stays with cobra's help flag, so host has none.
func addConnectionFlags(cmd *cobra.Command, conn *pg.ConnectionOptions) {
	cmd.Flags().StringVarP(&conn.DBName, "dbname", "d", "", "database name to connect to")
	cmd.Flags().StringVar(&conn.Host, "host", "", "database server host or socket directory")
	cmd.Flags().StringVarP(&conn.Port, "port", "p", "", "database server port")
	cmd.Flags().StringVarP(&conn.Username, "username", "U", "", "database user name")
}
