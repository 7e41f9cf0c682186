package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, versions)

	src, err := GetSource()
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)
}

func TestVersionsIn(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_later.up.sql":   {Data: []byte("--")},
		"000010_later.down.sql": {Data: []byte("--")},
		"000002_init.up.sql":    {Data: []byte("--")},
		"README.md":             {Data: []byte("notes")},
		"draft.up.sql":          {Data: []byte("--")},
	}

	versions, err := VersionsIn(fsys)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 10}, versions)

	empty, err := VersionsIn(fstest.MapFS{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
