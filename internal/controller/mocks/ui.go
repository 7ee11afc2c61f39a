// Package mocks provides testify mocks for controller interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mutate.dev/pkg/mutate/internal/controller"
	m "mutate.dev/pkg/mutate/internal/model"
)

// UI is a mock implementation of controller.UI.
type UI struct {
	mock.Mock
}

var _ controller.UI = (*UI)(nil)

func (u *UI) Start(ctx context.Context, options ...controller.StartOption) error {
	args := u.Called(ctx, options)
	return args.Error(0)
}

func (u *UI) Close(ctx context.Context) {
	u.Called(ctx)
}

func (u *UI) Wait(ctx context.Context) {
	u.Called(ctx)
}

func (u *UI) DisplayMutators(ctx context.Context, mutators []controller.MutatorInfo) {
	u.Called(ctx, mutators)
}

func (u *UI) DisplayProjects(ctx context.Context, projects []m.Project) {
	u.Called(ctx, projects)
}

func (u *UI) DisplayGenerated(ctx context.Context, project m.Project, counts map[m.Path]int, total int) {
	u.Called(ctx, project, counts, total)
}

func (u *UI) DisplaySchedulerInfo(ctx context.Context, mode string, workers int, pending int) {
	u.Called(ctx, mode, workers, pending)
}

func (u *UI) DisplayPatchResult(ctx context.Context, patch m.Patch, state m.PatchState, runs []m.Run, err error) {
	u.Called(ctx, patch, state, runs, err)
}

func (u *UI) DisplayMutationScore(ctx context.Context, counts m.StateCounts) {
	u.Called(ctx, counts)
}

func (u *UI) DisplayPatch(ctx context.Context, patch m.Patch, runs []m.Run, format controller.PatchFormat) error {
	args := u.Called(ctx, patch, runs, format)
	return args.Error(0)
}
