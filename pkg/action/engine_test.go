package action

import (
	"context"
	"testing"

	"github.com/cisco-sastre/sastre-engine/pkg/restclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSplitsWithShortLastChunk(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	chunks := chunk(items, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"a", "b"}, chunks[0])
	assert.Equal(t, []string{"c", "d"}, chunks[1])
	assert.Equal(t, []string{"e"}, chunks[2])
}

func TestChunkDefaultsWhenSizeNonPositive(t *testing.T) {
	items := make([]string, 25)
	for i := range items {
		items[i] = "d"
	}
	chunks := chunk(items, 0)
	assert.Len(t, chunks, 3) // 25 / DefaultChunkSize(10), rounded up
}

func TestRunRecordsSubmitFailureAsDeviceFailure(t *testing.T) {
	e := &Engine{chunkSize: 10, maxPollers: 2}
	req := Request{
		DeviceIDs: []string{"dev-2", "dev-1"},
		Submit: func(ctx context.Context, deviceIDs []string) (string, error) {
			return "", assert.AnError
		},
	}
	result := e.Run(context.Background(), req)
	require.Len(t, result.Devices, 2)
	assert.Equal(t, 2, result.Failed)
}

func TestRunSortsDevicesAscendingBeforeChunking(t *testing.T) {
	var submitted [][]string
	e := &Engine{chunkSize: 10, maxPollers: 2}
	req := Request{
		DeviceIDs: []string{"10.0.0.5", "10.0.0.1", "10.0.0.3"},
		Submit: func(ctx context.Context, deviceIDs []string) (string, error) {
			cp := make([]string, len(deviceIDs))
			copy(cp, deviceIDs)
			submitted = append(submitted, cp)
			// Fail so Run never reaches PollAction, which needs a real client.
			return "", assert.AnError
		},
	}
	e.Run(context.Background(), req)
	require.Len(t, submitted, 1)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.3", "10.0.0.5"}, submitted[0])
}

func TestFailAllMarksEveryDeviceFailed(t *testing.T) {
	out := failAll([]string{"a", "b"}, "boom")
	require.Len(t, out, 2)
	for _, d := range out {
		assert.Equal(t, restclient.ActionFailure, d.Status)
		assert.Equal(t, "boom", d.Message)
	}
}

func TestTimeoutAllLeavesStatusEmpty(t *testing.T) {
	out := timeoutAll([]string{"a"})
	require.Len(t, out, 1)
	assert.Equal(t, restclient.ActionStatus(""), out[0].Status)
}
