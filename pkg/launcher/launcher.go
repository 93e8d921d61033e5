// Package launcher detects installed remote desktop clients and launches
// them against a connection's local proxy endpoint.
package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	regiserr "github.com/jnury/regis/pkg/errors"
	"github.com/jnury/regis/pkg/logger"
)

// Client kinds.
const (
	KindBuiltin    = "builtin"
	KindMicrosoft  = "microsoft"
	KindThirdParty = "third_party"
)

// Client is an installed remote desktop client.
type Client struct {
	Name       string
	Executable string
	Kind       string
	Platform   string
}

// LaunchOptions control how the client is started.
type LaunchOptions struct {
	Fullscreen bool
	// Resolution is "WIDTHxHEIGHT", or "auto" to let the client decide.
	Resolution string
}

// clientSpec describes one known client: where to find it and how to build
// its command line. A bare executable name is resolved on PATH; an absolute
// path is checked directly.
type clientSpec struct {
	name       string
	executable string
	kind       string
	buildArgs  func(address string, port int, opts LaunchOptions) []string
}

func endpointArg(address string, port int) string {
	return fmt.Sprintf("%s:%d", address, port)
}

func genericArgs(address string, port int, _ LaunchOptions) []string {
	return []string{endpointArg(address, port)}
}

var clientSpecs = map[string][]clientSpec{
	"windows": {
		{
			name:       "Microsoft Terminal Services Client",
			executable: "mstsc",
			kind:       KindBuiltin,
			buildArgs: func(address string, port int, opts LaunchOptions) []string {
				args := []string{endpointArg(address, port)}
				if opts.Fullscreen {
					args = append(args, "/f")
				}
				if width, height, ok := splitResolution(opts.Resolution); ok {
					args = append(args, "/w", width, "/h", height)
				}
				return args
			},
		},
		{
			name:       "Royal TS",
			executable: `C:\Program Files\Royal TS V6\RoyalTS.exe`,
			kind:       KindThirdParty,
			buildArgs:  genericArgs,
		},
		{
			name:       "Remote Desktop Manager",
			executable: `C:\Program Files\Devolutions\Remote Desktop Manager\RemoteDesktopManager.exe`,
			kind:       KindThirdParty,
			buildArgs:  genericArgs,
		},
		{
			name:       "Jump Desktop",
			executable: `C:\Program Files\Jump Desktop\JumpDesktop.exe`,
			kind:       KindThirdParty,
			buildArgs:  genericArgs,
		},
	},
	"darwin": {
		{
			name:       "Microsoft Remote Desktop",
			executable: "/Applications/Microsoft Remote Desktop.app/Contents/MacOS/Microsoft Remote Desktop",
			kind:       KindMicrosoft,
			buildArgs: func(address string, port int, _ LaunchOptions) []string {
				return []string{fmt.Sprintf("rdp://%s:%d", address, port)}
			},
		},
		{
			name:       "Royal TSX",
			executable: "/Applications/Royal TSX.app/Contents/MacOS/Royal TSX",
			kind:       KindThirdParty,
			buildArgs:  genericArgs,
		},
		{
			name:       "Jump Desktop",
			executable: "/Applications/Jump Desktop.app/Contents/MacOS/Jump Desktop",
			kind:       KindThirdParty,
			buildArgs:  genericArgs,
		},
		{
			name:       "Screens for Organizations",
			executable: "/Applications/Screens for Organizations.app/Contents/MacOS/Screens for Organizations",
			kind:       KindThirdParty,
			buildArgs:  genericArgs,
		},
	},
	"linux": {
		{
			name:       "xfreerdp",
			executable: "xfreerdp",
			kind:       "freerdp",
			buildArgs: func(address string, port int, opts LaunchOptions) []string {
				args := []string{fmt.Sprintf("/v:%s", endpointArg(address, port))}
				if opts.Fullscreen {
					args = append(args, "/f")
				}
				if opts.Resolution != "" && opts.Resolution != "auto" {
					args = append(args, fmt.Sprintf("/size:%s", opts.Resolution))
				}
				return args
			},
		},
		{
			name:       "rdesktop",
			executable: "rdesktop",
			kind:       "rdesktop",
			buildArgs: func(address string, port int, opts LaunchOptions) []string {
				args := []string{endpointArg(address, port)}
				if opts.Fullscreen {
					args = append(args, "-f")
				}
				if opts.Resolution != "" && opts.Resolution != "auto" {
					args = append(args, "-g", opts.Resolution)
				}
				return args
			},
		},
		{
			name:       "remmina",
			executable: "remmina",
			kind:       "remmina",
			buildArgs: func(address string, port int, _ LaunchOptions) []string {
				return []string{fmt.Sprintf("rdp://%s", endpointArg(address, port))}
			},
		},
		{
			name:       "vinagre",
			executable: "vinagre",
			kind:       "vinagre",
			buildArgs:  genericArgs,
		},
	},
}

func splitResolution(resolution string) (width, height string, ok bool) {
	if resolution == "" || resolution == "auto" {
		return "", "", false
	}
	parts := strings.SplitN(resolution, "x", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Detection and launch hooks, replaceable in tests.
var (
	currentPlatform = func() string { return runtime.GOOS }
	lookPath        = exec.LookPath
	fileExists      = func(path string) bool {
		info, err := os.Stat(path)
		return err == nil && !info.IsDir()
	}
	startCommand = func(name string, args ...string) (int, error) {
		cmd := exec.Command(name, args...) //nolint:gosec // executables come from the known client table
		if err := cmd.Start(); err != nil {
			return 0, err
		}
		pid := cmd.Process.Pid
		// Desktop clients run independently; reap in the background.
		go func() { _ = cmd.Wait() }()
		return pid, nil
	}
)

// Detect returns the remote desktop clients installed on this host and the
// platform's preferred default. An empty result is not an error; the caller
// falls back to showing manual connection details.
func Detect() (clients []Client, defaultClient string) {
	platform := currentPlatform()
	for _, spec := range clientSpecs[platform] {
		if !specInstalled(spec) {
			continue
		}
		clients = append(clients, Client{
			Name:       spec.name,
			Executable: spec.executable,
			Kind:       spec.kind,
			Platform:   platform,
		})
		logger.Debugw("found remote desktop client", "name", spec.name, "platform", platform)
	}

	defaultClient = pickDefault(platform, clients)
	return clients, defaultClient
}

func specInstalled(spec clientSpec) bool {
	if filepath.IsAbs(spec.executable) || strings.Contains(spec.executable, `\`) {
		return fileExists(spec.executable)
	}
	_, err := lookPath(spec.executable)
	return err == nil
}

func pickDefault(platform string, clients []Client) string {
	if len(clients) == 0 {
		return ""
	}
	var preferred func(Client) bool
	switch platform {
	case "windows":
		preferred = func(c Client) bool { return c.Kind == KindBuiltin }
	case "darwin":
		preferred = func(c Client) bool { return strings.Contains(c.Name, "Microsoft Remote Desktop") }
	case "linux":
		preferred = func(c Client) bool { return c.Name == "xfreerdp" }
	}
	if preferred != nil {
		for _, c := range clients {
			if preferred(c) {
				return c.Name
			}
		}
	}
	return clients[0].Name
}

// Launch starts the named client against the proxy endpoint. The client
// runs independently; Launch does not wait for it to exit.
func Launch(clientName, address string, port int, opts LaunchOptions) error {
	platform := currentPlatform()
	for _, spec := range clientSpecs[platform] {
		if spec.name != clientName {
			continue
		}
		args := spec.buildArgs(address, port, opts)
		pid, err := startCommand(spec.executable, args...)
		if err != nil {
			return regiserr.NewConnectionError(
				fmt.Sprintf("failed to launch %s", clientName), err)
		}
		logger.Infow("remote desktop client launched", "client", clientName, "pid", pid)
		return nil
	}
	return regiserr.NewConnectionError(fmt.Sprintf("unknown remote desktop client %s", clientName), nil)
}

// ManualDetails renders the connection details a user needs when no client
// can be launched.
func ManualDetails(address string, port int) string {
	return fmt.Sprintf("Connect your remote desktop client to %s:%d", address, port)
}
