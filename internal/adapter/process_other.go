//go:build !unix

package adapter

import (
	"os"
	"os/exec"
)

func configureProcessGroup(_ *exec.Cmd) {}

func killProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return proc.Kill()
}

func killProcessGroup(pid int) error {
	return killProcess(pid)
}
