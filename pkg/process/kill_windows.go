//go:build windows

package process

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

const (
	processQueryInformation = 0x0400
	stillActive             = 259
)

var (
	kernel32           = syscall.NewLazyDLL("kernel32.dll")
	openProcess        = kernel32.NewProc("OpenProcess")
	getExitCodeProcess = kernel32.NewProc("GetExitCodeProcess")
	closeHandle        = kernel32.NewProc("CloseHandle")
)

// KillProcess terminates a process by its ID. Windows has no graceful
// signal, so the process is terminated directly.
func KillProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("failed to terminate process: %w", err)
	}
	return nil
}

// FindProcess reports whether a process with the given ID is running.
func FindProcess(pid int) (bool, error) {
	handle, _, _ := openProcess.Call(
		uintptr(processQueryInformation),
		uintptr(0),
		uintptr(pid),
	)
	if handle == 0 {
		return false, nil
	}
	defer closeHandle.Call(handle) //nolint:errcheck

	var exitCode uint32
	ret, _, err := getExitCodeProcess.Call(handle, uintptr(unsafe.Pointer(&exitCode)))
	if ret == 0 {
		return false, fmt.Errorf("failed to query process state: %w", err)
	}
	return exitCode == stillActive, nil
}
