package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mutate.dev/pkg/mutate/internal/adapter"
	"mutate.dev/pkg/mutate/internal/domain"
	domainmocks "mutate.dev/pkg/mutate/internal/domain/mocks"
)

func TestRunCmd_Flags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want domain.RunArgs
	}{
		{"defaults", []string{"run"}, domain.RunArgs{Workers: defaultRunParallel}},
		{"parallel", []string{"run", "--parallel", "4"}, domain.RunArgs{Workers: 4}},
		{"short parallel", []string{"run", "-p", "2"}, domain.RunArgs{Workers: 2}},
		{"sequential", []string{"run", "--sequential"}, domain.RunArgs{Sequential: true, Workers: defaultRunParallel}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockWorkflow := domainmocks.NewMockWorkflow(t)
			metrics := stubWorkflow(t, mockWorkflow)

			mockWorkflow.On("Run", mock.Anything, tt.want).Return(nil).Once()

			_, err := executeCommand(t, newRunCmd(), tt.args...)
			require.NoError(t, err)

			require.Len(t, *metrics, 1)
			assert.NotNil(t, (*metrics)[0])
		})
	}
}

func TestRunCmd_PropagatesError(t *testing.T) {
	mockWorkflow := domainmocks.NewMockWorkflow(t)
	stubWorkflow(t, mockWorkflow)

	mockWorkflow.On("Run", mock.Anything, mock.Anything).Return(errors.New("store closed")).Once()

	out, err := executeCommand(t, newRunCmd(), "run")
	require.Error(t, err)
	assert.Contains(t, out, "store closed")
}

func TestRunCmd_RejectsArgs(t *testing.T) {
	stubWorkflow(t, domainmocks.NewMockWorkflow(t))

	_, err := executeCommand(t, newRunCmd(), "run", "src/main.c")
	require.Error(t, err)
}

func freeAddr(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	return addr
}

func TestServeMetrics(t *testing.T) {
	addr := freeAddr(t)
	metrics := adapter.NewMetrics()
	metrics.ObserveSync()

	shutdown := serveMetrics(addr, metrics)

	var body string

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}

		body = string(data)

		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	assert.Contains(t, body, "mutate_workspace_syncs_total 1")

	shutdown()

	client := http.Client{Timeout: 200 * time.Millisecond}
	_, err := client.Get(fmt.Sprintf("http://%s/metrics", addr))
	assert.Error(t, err)
}

func TestRunCmd_ServesMetricsWhileRunning(t *testing.T) {
	addr := freeAddr(t)
	mockWorkflow := domainmocks.NewMockWorkflow(t)
	stubWorkflow(t, mockWorkflow)

	var scraped int

	mockWorkflow.On("Run", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		for ctx.Err() == nil {
			resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
			if err == nil {
				scraped = resp.StatusCode
				_ = resp.Body.Close()
				return
			}

			time.Sleep(20 * time.Millisecond)
		}
	}).Return(nil).Once()

	_, err := executeCommand(t, newRunCmd(), "run", "--"+metricsAddrFlagName, addr)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, scraped)
}
