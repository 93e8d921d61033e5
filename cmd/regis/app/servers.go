package app

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newServersCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "servers",
		Short: "List configured Boundary servers",
		Long:  `List the Boundary servers known to regis, from the system server list and your own configuration.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			servers := reg.List()
			if len(servers) == 0 {
				fmt.Println("No servers configured")
				return nil
			}

			if format == FormatJSON {
				return printJSON(servers)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tURL\tENVIRONMENT\tREGION")
			for _, s := range servers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.URL, s.Environment, s.Region)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&format, "format", FormatText, "Output format (json or text)")
	return cmd
}
