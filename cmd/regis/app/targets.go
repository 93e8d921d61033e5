package app

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jnury/regis/pkg/targets"
)

func newTargetsCmd() *cobra.Command {
	var (
		format string
		filter string
		scope  string
	)

	cmd := &cobra.Command{
		Use:   "targets <server>",
		Short: "List the targets your session can reach",
		Long: `List the targets visible to your authenticated session on a server. The
--filter flag narrows the listing client-side by name, description, ID, or
address without querying the server again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := resolveServer(args[0])
			if err != nil {
				return err
			}
			cfg, authMgr, _, err := buildManagers()
			if err != nil {
				return err
			}

			token, err := authMgr.Token(server.ID)
			if err != nil {
				return err
			}
			scopeID := scope
			if scopeID == "" {
				scopeID = token.ScopeID
			}

			client := newBoundaryClient(cfg, server)
			svc := targets.NewService()
			if _, err := svc.Discover(cmd.Context(), client, server.ID, token.AccessToken, scopeID); err != nil {
				return err
			}
			list := svc.Filter(server.ID, filter)

			if len(list) == 0 {
				fmt.Println("No targets found")
				return nil
			}
			if format == FormatJSON {
				return printJSON(list)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tADDRESS\tPORT\tDESCRIPTION")
			for _, target := range list {
				port := ""
				if target.DefaultPort != 0 {
					port = fmt.Sprintf("%d", target.DefaultPort)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					target.ID, target.Name, target.Type, target.Address, port, target.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&format, "format", FormatText, "Output format (json or text)")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Filter targets by name, description, ID, or address")
	cmd.Flags().StringVar(&scope, "scope", "", "Limit the listing to one scope (defaults to the session scope)")
	return cmd
}
