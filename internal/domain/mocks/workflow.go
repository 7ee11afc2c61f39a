// Package mocks provides testify mocks for domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mutate.dev/pkg/mutate/internal/controller"
	"mutate.dev/pkg/mutate/internal/domain"
	m "mutate.dev/pkg/mutate/internal/model"
)

// MockWorkflow is a mock implementation of domain.Workflow.
type MockWorkflow struct {
	mock.Mock
}

var _ domain.Workflow = (*MockWorkflow)(nil)

// NewMockWorkflow creates a MockWorkflow whose expectations are asserted
// when the test finishes.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	w := &MockWorkflow{}
	w.Mock.Test(t)

	t.Cleanup(func() { w.AssertExpectations(t) })

	return w
}

func (w *MockWorkflow) AddProject(ctx context.Context, project m.Project) (m.Project, error) {
	args := w.Called(ctx, project)
	return args.Get(0).(m.Project), args.Error(1)
}

func (w *MockWorkflow) ListProjects(ctx context.Context) error {
	return w.Called(ctx).Error(0)
}

func (w *MockWorkflow) ListMutators(ctx context.Context) error {
	return w.Called(ctx).Error(0)
}

func (w *MockWorkflow) Generate(ctx context.Context, args domain.GenerateArgs) (int, error) {
	ret := w.Called(ctx, args)
	return ret.Int(0), ret.Error(1)
}

func (w *MockWorkflow) Run(ctx context.Context, args domain.RunArgs) error {
	return w.Called(ctx, args).Error(0)
}

func (w *MockWorkflow) Status(ctx context.Context, projectID int64) error {
	return w.Called(ctx, projectID).Error(0)
}

func (w *MockWorkflow) View(ctx context.Context, patchID int64, format controller.PatchFormat) error {
	return w.Called(ctx, patchID, format).Error(0)
}
