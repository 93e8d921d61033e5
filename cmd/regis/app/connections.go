package app

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jnury/regis/pkg/connections"
)

func newConnectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Manage active connections",
	}
	cmd.AddCommand(newConnectionsListCmd())
	cmd.AddCommand(newConnectionsTerminateCmd())
	return cmd
}

func newConnectionsListCmd() *cobra.Command {
	var (
		format string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List connections",
		RunE: func(_ *cobra.Command, _ []string) error {
			_, _, connMgr, err := buildManagers()
			if err != nil {
				return err
			}

			list := connMgr.List()
			if !all {
				active := list[:0]
				for _, conn := range list {
					if conn.Status == connections.StatusActive {
						active = append(active, conn)
					}
				}
				list = active
			}
			if len(list) == 0 {
				fmt.Println("No connections found")
				return nil
			}

			if format == FormatJSON {
				return printJSON(list)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tSERVER\tTARGET\tTYPE\tENDPOINT\tSTATUS\tCREATED")
			for _, conn := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s:%d\t%s\t%s\n",
					conn.ID, conn.ServerID, conn.TargetName, conn.Type,
					conn.LocalAddress, conn.LocalPort, conn.Status,
					conn.CreatedAt.Local().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&format, "format", FormatText, "Output format (json or text)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include terminated connections")
	return cmd
}

func newConnectionsTerminateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "terminate <connection-id>",
		Short: "Terminate a connection's local proxy",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			_, _, connMgr, err := buildManagers()
			if err != nil {
				return err
			}
			if err := connMgr.Terminate(args[0]); err != nil {
				return err
			}
			fmt.Printf("Connection %s terminated\n", args[0])
			return nil
		},
	}
}
