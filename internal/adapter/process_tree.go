package adapter

import (
	"log/slog"

	"github.com/shirou/gopsutil/v4/process"
)

// descendants returns every descendant of pid, deepest first, so killing
// them in order never leaves a child to be re-parented mid-walk.
func descendants(pid int32) ([]*process.Process, error) {
	parent, err := process.NewProcess(pid)
	if err != nil {
		return nil, err
	}

	return collectDescendants(parent), nil
}

func collectDescendants(parent *process.Process) []*process.Process {
	children, err := parent.Children()
	if err != nil {
		// gopsutil reports a childless process as an error.
		return nil
	}

	var ordered []*process.Process

	for _, child := range children {
		ordered = append(ordered, collectDescendants(child)...)
		ordered = append(ordered, child)
	}

	return ordered
}

// killProcessTree force-kills every descendant of pid bottom-up and then pid
// itself. When the tree cannot be enumerated the process group is killed
// instead.
func killProcessTree(pid int) error {
	tree, err := descendants(int32(pid)) // #nosec G115 - pids fit in int32
	if err != nil {
		slog.Debug("Process tree enumeration failed, killing group", "pid", pid, "error", err)
		return killProcessGroup(pid)
	}

	for _, child := range tree {
		if err := child.Kill(); err != nil {
			slog.Debug("Failed to kill descendant", "pid", child.Pid, "error", err)
		}
	}

	if err := killProcess(pid); err != nil {
		return killProcessGroup(pid)
	}

	// Stragglers spawned while the tree was walked still share the group.
	_ = killProcessGroup(pid)

	return nil
}
