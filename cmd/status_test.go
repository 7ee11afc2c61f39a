package cmd

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mutate.dev/pkg/mutate/internal/controller"
	domainmocks "mutate.dev/pkg/mutate/internal/domain/mocks"
)

func TestStatusCmd(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)
	stubWorkflow(t, mockWorkflow)

	mockWorkflow.On("Status", mock.Anything, int64(0)).Return(nil).Once()
	mockWorkflow.On("Status", mock.Anything, int64(5)).Return(nil).Once()

	_, err := executeCommand(t, newStatusCmd(), "status")
	require.NoError(t, err)

	_, err = executeCommand(t, newStatusCmd(), "status", "--project", "5")
	require.NoError(t, err)
}

func TestMutatorsCmd(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)
	stubWorkflow(t, mockWorkflow)

	mockWorkflow.On("ListMutators", mock.Anything).Return(nil).Once()

	_, err := executeCommand(t, newMutatorsCmd(), "mutators")
	require.NoError(t, err)
}

func TestViewCmd(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)
	stubWorkflow(t, mockWorkflow)

	mockWorkflow.On("View", mock.Anything, int64(12), controller.FormatTable).Return(nil).Once()
	mockWorkflow.On("View", mock.Anything, int64(12), controller.FormatYAML).Return(nil).Once()

	_, err := executeCommand(t, newViewCmd(), "view", "12")
	require.NoError(t, err)

	_, err = executeCommand(t, newViewCmd(), "view", "12", "--format", "yaml")
	require.NoError(t, err)
}

func TestViewCmd_Errors(t *testing.T) {
	stubWorkflow(t, domainmocks.NewMockWorkflow(t))

	tests := []struct {
		name string
		args []string
	}{
		{"missing id", []string{"view"}},
		{"bad id", []string{"view", "twelve"}},
		{"bad format", []string{"view", "12", "-f", "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, newViewCmd(), tt.args...)
			require.Error(t, err)
		})
	}
}
