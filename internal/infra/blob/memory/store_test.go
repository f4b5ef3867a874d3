package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anchorcore/internal/blob/core"
)

func TestPutGetList(t *testing.T) {
	ctx := context.Background()
	s := New()

	info, err := s.Put(ctx, "events/24/a.json", strings.NewReader(`{"a":1}`), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"k": "v"}})
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size)
	assert.NotEmpty(t, info.ETag)

	_, err = s.Put(ctx, "events/31/b.json", strings.NewReader(`{}`), core.PutOptions{})
	require.NoError(t, err)

	got, rc, err := s.Get(ctx, "events/24/a.json")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(body))
	assert.Equal(t, "application/json", got.ContentType)

	got.Metadata["k"] = "mutated"
	again, _, err := s.Get(ctx, "events/24/a.json")
	require.NoError(t, err)
	assert.Equal(t, "v", again.Metadata["k"])

	list, err := s.List(ctx, "events/24/")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "events/24/a.json", list[0].Key)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, core.DriverMemory, s.Driver())
}

func TestPutIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Put(ctx, "k", strings.NewReader("1"), core.PutOptions{})
	require.NoError(t, err)

	_, err = s.Put(ctx, "k", strings.NewReader("2"), core.PutOptions{})
	require.True(t, errors.Is(err, core.ErrExists))
}

func TestGetMissing(t *testing.T) {
	_, _, err := New().Get(context.Background(), "nope")
	require.True(t, errors.Is(err, core.ErrNotFound))
}
