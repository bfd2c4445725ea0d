package content

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
elements:
  - group: object
    id: 100
    name: stone wall
    flags:
      unwalkable: true
      blocks_sight: true
  - group: Object
    id: 101
    name: glass window
    flags:
      unwalkable: true
    properties:
      light: 3
  - group: outfit
    id: 128
    name: citizen
`

func identity(s FlagSpec) FlagSpec { return s }

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog(strings.NewReader(sampleCatalog), identity)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	wall, ok := c.Lookup(ID{Group: GroupObject, ID: 100})
	require.True(t, ok)
	assert.Equal(t, "stone wall", wall.Name)
	assert.Equal(t, FlagSpec{Unwalkable: true, BlocksSight: true}, wall.Flags)

	window, ok := c.Lookup(ID{Group: GroupObject, ID: 101})
	require.True(t, ok)
	assert.False(t, window.Flags.BlocksSight)
	assert.Equal(t, 3, window.Properties["light"])

	_, ok = c.Lookup(ID{Group: GroupMissile, ID: 100})
	assert.False(t, ok)
}

func TestLoadCatalogErrors(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader("elements:\n  - group: sprite\n    id: 1\n"), identity)
	assert.Error(t, err)

	dup := "elements:\n  - {group: effect, id: 1}\n  - {group: effect, id: 1}\n"
	_, err = LoadCatalog(strings.NewReader(dup), identity)
	assert.ErrorContains(t, err, "duplicate")
}

func TestLoadCatalogEmpty(t *testing.T) {
	c, err := LoadCatalog(strings.NewReader(""), identity)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestGroupNames(t *testing.T) {
	for _, g := range []Group{GroupObject, GroupOutfit, GroupEffect, GroupMissile} {
		parsed, err := ParseGroup(g.String())
		require.NoError(t, err)
		assert.Equal(t, g, parsed)
	}
	assert.Equal(t, "group(9)", Group(9).String())
	assert.Equal(t, "effect:7", ID{Group: GroupEffect, ID: 7}.String())
}

func TestLoadShippedCatalog(t *testing.T) {
	c, err := LoadCatalogFile(filepath.Join("..", "..", "config", "catalog.yaml"), identity)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())

	wall, ok := c.Lookup(ID{Group: GroupObject, ID: 200})
	require.True(t, ok)
	assert.Equal(t, FlagSpec{Unwalkable: true, BlocksSight: true}, wall.Flags)

	_, err = LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"), identity)
	assert.Error(t, err)
}
