package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jnury/regis/pkg/boundary"
	"github.com/jnury/regis/pkg/config"
	"github.com/jnury/regis/pkg/launcher"
	"github.com/jnury/regis/pkg/logger"
	"github.com/jnury/regis/pkg/targets"
)

func newConnectCmd() *cobra.Command {
	var (
		connType string
		noLaunch bool
	)

	cmd := &cobra.Command{
		Use:   "connect <server> [target]",
		Short: "Open a proxied connection to a target",
		Long: `Authorize a session against a target and start the local proxy for it.
When the server exposes exactly one target, naming it is optional. RDP
targets launch your remote desktop client automatically unless disabled.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := resolveServer(args[0])
			if err != nil {
				return err
			}
			cfg, authMgr, connMgr, err := buildManagers()
			if err != nil {
				return err
			}

			token, err := authMgr.Token(server.ID)
			if err != nil {
				return err
			}

			client := newBoundaryClient(cfg, server)
			svc := targets.NewService()
			available, err := svc.Discover(cmd.Context(), client, server.ID, token.AccessToken, token.ScopeID)
			if err != nil {
				return err
			}

			target, err := pickTarget(available, args, cfg)
			if err != nil {
				return err
			}

			resolvedType := connType
			if resolvedType == "" {
				resolvedType = connectionType(target)
			}

			conn, err := connMgr.Connect(cmd.Context(), client, server.ID, token.AccessToken, target, resolvedType)
			if err != nil {
				return err
			}
			fmt.Printf("Connected to %s: %s:%d (connection %s)\n",
				target.Name, conn.LocalAddress, conn.LocalPort, conn.ID)

			if resolvedType == "rdp" && cfg.RDP.AutoLaunch && !noLaunch {
				launchDesktopClient(cfg, conn.LocalAddress, conn.LocalPort)
			} else {
				fmt.Println(launcher.ManualDetails(conn.LocalAddress, conn.LocalPort))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&connType, "type", "", "Connection type (defaults to the target's type)")
	cmd.Flags().BoolVar(&noLaunch, "no-launch", false, "Print connection details instead of launching a desktop client")
	return cmd
}

// pickTarget resolves which target to connect to: the named one, or the
// only one available when auto-connect is enabled.
func pickTarget(available []boundary.Target, args []string, cfg config.Config) (*boundary.Target, error) {
	if len(args) == 2 {
		name := args[1]
		for i := range available {
			if available[i].ID == name || available[i].Name == name {
				return &available[i], nil
			}
		}
		return nil, fmt.Errorf("no target named %q; run 'regis targets %s' to list them", name, args[0])
	}

	switch {
	case len(available) == 0:
		return nil, fmt.Errorf("no targets available")
	case len(available) == 1 && cfg.Connection.AutoConnectSingleTarget:
		return &available[0], nil
	default:
		return nil, fmt.Errorf("server has %d targets, name one: regis connect %s <target>",
			len(available), args[0])
	}
}

// connectionType maps a target's protocol tag to the connect command's
// type. Anything unrecognized proxies as plain TCP.
func connectionType(target *boundary.Target) string {
	switch target.Type {
	case "ssh", "rdp", "http":
		return target.Type
	default:
		return "tcp"
	}
}

// launchDesktopClient starts the preferred remote desktop client, falling
// back to manual connection details when none can be launched.
func launchDesktopClient(cfg config.Config, address string, port int) {
	clients, defaultClient := launcher.Detect()
	clientName := cfg.RDP.PreferredClient
	if clientName == "" || clientName == "auto" {
		clientName = defaultClient
	}
	if clientName == "" || len(clients) == 0 {
		fmt.Println("No remote desktop client found.")
		fmt.Println(launcher.ManualDetails(address, port))
		return
	}

	opts := launcher.LaunchOptions{
		Fullscreen: cfg.RDP.Fullscreen,
		Resolution: cfg.RDP.Resolution,
	}
	if err := launcher.Launch(clientName, address, port, opts); err != nil {
		logger.Warnw("failed to launch remote desktop client", "client", clientName, "error", err)
		fmt.Println(launcher.ManualDetails(address, port))
	}
}
