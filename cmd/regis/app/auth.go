package app

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jnury/regis/pkg/auth"
	"github.com/jnury/regis/pkg/boundary"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate against Boundary servers",
	}
	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthMethodsCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <server>",
		Short: "Authenticate against a server using browser-based OIDC",
		Long: `Start an OIDC authentication flow against a server. Your browser opens to
the identity provider; regis waits for the flow to complete and resolves
the session scope.`,
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

			client := newBoundaryClient(cfg, server)
			if err := client.Verify(cmd.Context()); err != nil {
				return err
			}

			fmt.Printf("Authenticating against %s, complete the flow in your browser...\n", server.Name)
			if err := authMgr.Login(cmd.Context(), server); err != nil {
				return err
			}
			if pending := authMgr.Status(server.ID); pending.Issuer != nil {
				fmt.Printf("Identity provider: %s\n", pending.Issuer.Issuer)
			}

			snap := waitForOutcome(authMgr, server.ID, cfg.Auth.PollInterval())
			switch snap.Status {
			case auth.StatusCompleted:
				fmt.Printf("Authenticated as %s\n", snap.UserID)
				if snap.SelectedScope != nil {
					fmt.Printf("Scope: %s\n", scopeLabel(*snap.SelectedScope))
				}
				return nil
			case auth.StatusScopeSelection:
				fmt.Printf("Authenticated as %s. Choose a scope:\n", snap.UserID)
				for i, scope := range snap.Scopes {
					fmt.Printf("  [%d] %s\n", i+1, scopeLabel(scope))
				}
				scopeID, err := promptScope(cmd.InOrStdin(), snap.Scopes)
				if err != nil {
					return err
				}
				if err := authMgr.SelectScope(server.ID, scopeID); err != nil {
					return err
				}
				fmt.Printf("Scope %s selected\n", scopeID)
				return nil
			case auth.StatusTimedOut:
				return fmt.Errorf("authentication timed out after %d attempts", snap.Attempts)
			case auth.StatusIdle:
				return fmt.Errorf("authentication was cancelled")
			default:
				return fmt.Errorf("authentication failed: %s", snap.Error)
			}
		},
	}
}

// waitForOutcome blocks until the session leaves its transient states. An
// idle session means the flow was cancelled underneath us, by a concurrent
// logout or supersede, so it exits the wait too.
func waitForOutcome(authMgr *auth.Manager, serverID string, interval time.Duration) auth.Snapshot {
	for {
		snap := authMgr.Status(serverID)
		if snap.Status.Terminal() || snap.Status == auth.StatusScopeSelection || snap.Status == auth.StatusIdle {
			return snap
		}
		time.Sleep(interval)
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout <server>",
		Short: "End a server session and terminate its connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			server, err := resolveServer(args[0])
			if err != nil {
				return err
			}
			_, authMgr, _, err := buildManagers()
			if err != nil {
				return err
			}
			if err := authMgr.Logout(server.ID); err != nil {
				return err
			}
			fmt.Printf("Logged out from %s\n", server.Name)
			return nil
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status [server]",
		Short: "Show authentication status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			_, authMgr, _, err := buildManagers()
			if err != nil {
				return err
			}

			servers := reg.List()
			if len(args) == 1 {
				server, err := reg.Get(args[0])
				if err != nil {
					return err
				}
				servers = servers[:0]
				servers = append(servers, server)
			}

			snapshots := make([]auth.Snapshot, 0, len(servers))
			for _, server := range servers {
				snapshots = append(snapshots, authMgr.Status(server.ID))
			}

			if format == FormatJSON {
				return printJSON(snapshots)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "SERVER\tSTATUS\tUSER\tSCOPE\tEXPIRES")
			for _, snap := range snapshots {
				scope := ""
				if snap.SelectedScope != nil {
					scope = snap.SelectedScope.ID
				}
				expires := ""
				if !snap.ExpiresAt.IsZero() {
					expires = snap.ExpiresAt.Local().Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", snap.ServerID, snap.Status, snap.UserID, scope, expires)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&format, "format", FormatText, "Output format (json or text)")
	return cmd
}

func newAuthMethodsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "methods <server>",
		Short: "List a server's authentication methods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := resolveServer(args[0])
			if err != nil {
				return err
			}
			cfg, _, _, err := buildManagers()
			if err != nil {
				return err
			}

			client := newBoundaryClient(cfg, server)
			methods, err := client.DiscoverAuthMethods(cmd.Context())
			if err != nil {
				return err
			}
			if len(methods) == 0 {
				fmt.Println("No auth methods found")
				return nil
			}

			if format == FormatJSON {
				return printJSON(methods)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tISSUER")
			for _, m := range methods {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Type, m.Issuer)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&format, "format", FormatText, "Output format (json or text)")
	return cmd
}

// promptScope reads a scope choice, accepting either a list number or a
// scope ID.
func promptScope(in io.Reader, scopes []boundary.Scope) (string, error) {
	fmt.Print("Scope: ")
	var answer string
	if _, err := fmt.Fscanln(in, &answer); err != nil {
		return "", fmt.Errorf("failed to read scope choice: %w", err)
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(scopes) {
		return scopes[n-1].ID, nil
	}
	return answer, nil
}

func scopeLabel(scope boundary.Scope) string {
	if scope.Name == "" {
		return scope.ID
	}
	return fmt.Sprintf("%s (%s)", scope.Name, scope.ID)
}
