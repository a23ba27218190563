package vectors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
)

type failingIndex struct{ err error }

func (f failingIndex) Upsert(context.Context, string, []Point) error { return f.err }
func (f failingIndex) Query(context.Context, string, []float32, int) ([]Match, error) {
	return nil, f.err
}

func TestPublisher_Unconfigured(t *testing.T) {
	p := NewPublisher(nil, nil)
	assert.False(t, p.Configured())

	err := p.Publish(context.Background(), "ns", "id", []float32{1}, nil)
	assert.True(t, errors.Is(err, common.ErrIndexUnavailable))
	assert.Equal(t, common.CodeIndexUnavailable, common.ErrorCode(err))

	_, err = p.Query(context.Background(), "ns", []float32{1}, 3)
	assert.True(t, errors.Is(err, common.ErrIndexUnavailable))
}

func TestPublisher_EmptyVector(t *testing.T) {
	p := NewPublisher(NewMemoryIndex(), nil)
	err := p.Publish(context.Background(), "ns", "id", nil, nil)
	assert.True(t, errors.Is(err, common.ErrIndexUnavailable))
}

func TestPublisher_UpsertError(t *testing.T) {
	boom := errors.New("connection refused")
	p := NewPublisher(failingIndex{err: boom}, nil)
	err := p.Publish(context.Background(), "ns", "id", []float32{1, 0}, nil)
	assert.True(t, errors.Is(err, common.ErrIndexUnavailable))
	assert.ErrorIs(t, err, boom)
}

func TestPublisher_MemoryRoundTrip(t *testing.T) {
	idx := NewMemoryIndex()
	p := NewPublisher(idx, nil)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, "a", "f1", []float32{1, 0}, map[string]any{"file_name": "one.pdf"}))
	require.NoError(t, p.Publish(ctx, "a", "f2", []float32{0, 1}, map[string]any{"file_name": "two.pdf"}))
	require.NoError(t, p.Publish(ctx, "b", "f3", []float32{1, 0}, nil))
	// same id replaces
	require.NoError(t, p.Publish(ctx, "a", "f1", []float32{0.9, 0.1}, map[string]any{"file_name": "one-v2.pdf"}))

	assert.Equal(t, 2, idx.Len("a"))
	assert.Equal(t, 1, idx.Len("b"))

	got, err := p.Query(ctx, "a", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f1", got[0].ID)
	assert.Equal(t, "one-v2.pdf", got[0].Metadata["file_name"])
}

func TestPointID_Deterministic(t *testing.T) {
	assert.Equal(t, PointID("ns", "x"), PointID("ns", "x"))
	assert.NotEqual(t, PointID("ns", "x"), PointID("other", "x"))
	assert.Len(t, PointID("ns", "x"), 36)
}

func TestPayloadConversion(t *testing.T) {
	in := map[string]any{"s": "v", "b": true, "i": 3, "f": 1.5, "n": nil}
	out := fromPayload(toPayload(in))
	assert.Equal(t, "v", out["s"])
	assert.Equal(t, true, out["b"])
	assert.Equal(t, int64(3), out["i"])
	assert.Equal(t, 1.5, out["f"])
	assert.Contains(t, out, "n")
	assert.Nil(t, out["n"])
}
