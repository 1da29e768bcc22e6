package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCategories(t *testing.T) {
	c := DefaultCategories()

	assert.True(t, c.Contains("engineering"))
	assert.True(t, c.Contains("sales"))
	assert.True(t, c.Contains("other"))
	assert.False(t, c.Contains("astrology"))
}

func TestCategories_NormalizeKnown(t *testing.T) {
	c := DefaultCategories()

	assert.Equal(t, "engineering", c.Normalize("Engineering"))
	assert.Equal(t, "sales", c.Normalize("  sales "))
}

func TestCategories_NormalizeUnknownCoercesToOther(t *testing.T) {
	c := DefaultCategories()

	assert.Equal(t, "other", c.Normalize("underwater basket weaving"))
	assert.Equal(t, "other", c.Normalize(""))
}

func TestLoadCategories_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - nursing\n  - trucking\n"), 0644))

	c, err := LoadCategories(path)
	require.NoError(t, err)

	assert.True(t, c.Contains("nursing"))
	assert.True(t, c.Contains("trucking"))
	// "other" is always present even when the file omits it.
	assert.True(t, c.Contains("other"))
	assert.False(t, c.Contains("engineering"))
}

func TestLoadCategories_EmptyPathReturnsDefaults(t *testing.T) {
	c, err := LoadCategories("")
	require.NoError(t, err)
	assert.True(t, c.Contains("engineering"))
}

func TestLoadCategories_EmptyFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories: []\n"), 0644))

	_, err := LoadCategories(path)
	assert.Error(t, err)
}

func TestCategories_NamesSorted(t *testing.T) {
	names := DefaultCategories().Names()
	require.NotEmpty(t, names)
	for i := 1; i < len(names); i++ {
		assert.LessOrEqual(t, names[i-1], names[i])
	}
}
