package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventtracker/internal/port/outbound"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prefabText = `%YAML 1.1
%TAG !u! tag:unity3d.com,2011:
--- !u!1 &100
GameObject:
  m_Name: Door
--- !u!114 &200
MonoBehaviour:
  m_ObjectHideFlags: 0
`

type fakeSource struct {
	assets map[string]outbound.AssetInfo
	files  map[string][]byte
	reads  int
}

func (f *fakeSource) AssetByGUID(guid string) (outbound.AssetInfo, bool) {
	info, ok := f.assets[guid]
	return info, ok
}

func (f *fakeSource) ReadAsset(_ context.Context, path string) ([]byte, error) {
	f.reads++
	data, ok := f.files[path]
	if !ok {
		return nil, errors.New("missing")
	}
	return data, nil
}

func newSource() *fakeSource {
	mod := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &fakeSource{
		assets: map[string]outbound.AssetInfo{
			"door":    {GUID: "door", Path: "Assets/Door.prefab", ModTime: mod},
			"texture": {GUID: "texture", Path: "Assets/Door.png", ModTime: mod},
			"gone":    {GUID: "gone", Path: "Assets/Gone.prefab", ModTime: mod},
		},
		files: map[string][]byte{
			"Assets/Door.prefab": []byte(prefabText),
			"Assets/Door.png":    {0x89, 'P', 'N', 'G'},
		},
	}
}

func TestAssetObjectCache_Objects(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		guid       string
		wantOK     bool
		wantBlocks int
	}{
		{name: "text asset", guid: "door", wantOK: true, wantBlocks: 2},
		{name: "binary asset has no blocks", guid: "texture", wantOK: true, wantBlocks: 0},
		{name: "unknown guid", guid: "nothing", wantOK: false},
		{name: "unreadable file", guid: "gone", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewAssetObjectCache(newSource(), 4)
			require.NoError(t, err)

			blocks, ok := c.Objects(ctx, tt.guid)
			assert.Equal(t, tt.wantOK, ok)
			assert.Len(t, blocks, tt.wantBlocks)
		})
	}
}

func TestAssetObjectCache_ReusesUntilModified(t *testing.T) {
	ctx := context.Background()
	src := newSource()
	c, err := NewAssetObjectCache(src, 4)
	require.NoError(t, err)

	first, ok := c.Objects(ctx, "door")
	require.True(t, ok)
	second, ok := c.Objects(ctx, "door")
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.reads)

	info := src.assets["door"]
	info.ModTime = info.ModTime.Add(time.Second)
	src.assets["door"] = info
	_, ok = c.Objects(ctx, "door")
	require.True(t, ok)
	assert.Equal(t, 2, src.reads)

	stats := c.Statistics()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestAssetObjectCache_Evicts(t *testing.T) {
	ctx := context.Background()
	c, err := NewAssetObjectCache(newSource(), 1)
	require.NoError(t, err)

	_, _ = c.Objects(ctx, "door")
	_, _ = c.Objects(ctx, "texture")
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(1), c.Statistics().Evictions)

	c.Invalidate("texture")
	assert.Equal(t, 0, c.Len())
}
