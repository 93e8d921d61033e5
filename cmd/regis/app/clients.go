package app

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jnury/regis/pkg/launcher"
)

func newClientsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List installed remote desktop clients",
		RunE: func(_ *cobra.Command, _ []string) error {
			clients, defaultClient := launcher.Detect()
			if len(clients) == 0 {
				fmt.Println("No remote desktop clients found")
				return nil
			}

			if format == FormatJSON {
				return printJSON(map[string]any{
					"clients": clients,
					"default": defaultClient,
				})
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tEXECUTABLE\tDEFAULT")
			for _, client := range clients {
				marker := ""
				if client.Name == defaultClient {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", client.Name, client.Kind, client.Executable, marker)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&format, "format", FormatText, "Output format (json or text)")
	return cmd
}
