package backup

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeReplaceNewFileRevert(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(fs)

	require.NoError(t, afero.WriteFile(fs, "/src.png", []byte("src"), 0644))
	require.NoError(t, m.SafeReplace("/src.png", "/dst.png", false))

	exists, _ := afero.Exists(fs, "/dst.png")
	assert.True(t, exists)

	errs := m.Revert(false)
	assert.Empty(t, errs)
	exists, _ = afero.Exists(fs, "/dst.png")
	assert.False(t, exists, "new file should be purged on revert")
}

func TestSafeReplaceExistingFileRevert(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(fs)

	require.NoError(t, afero.WriteFile(fs, "/dst.png", []byte("old"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/src.png", []byte("new"), 0644))
	require.NoError(t, m.SafeReplace("/src.png", "/dst.png", false))

	data, _ := afero.ReadFile(fs, "/dst.png")
	assert.Equal(t, "new", string(data))

	errs := m.Revert(false)
	assert.Empty(t, errs)
	data, _ = afero.ReadFile(fs, "/dst.png")
	assert.Equal(t, "old", string(data), "existing file should be restored to its original bytes")

	exists, _ := afero.Exists(fs, "/dst.png.fbk")
	assert.False(t, exists, "sidecar backup should be gone after revert")
}

func TestRevertableTouchFailsIfExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(fs)
	require.NoError(t, afero.WriteFile(fs, "/marker", []byte(""), 0644))
	err := m.RevertableTouch("/marker")
	assert.Error(t, err)
}

func TestPurgeDropsSidecars(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(fs)
	require.NoError(t, afero.WriteFile(fs, "/a.xml", []byte("v1"), 0644))
	require.NoError(t, m.BackupCopy("/a.xml"))

	exists, _ := afero.Exists(fs, "/a.xml.fbk")
	assert.True(t, exists)

	m.Purge()
	exists, _ = afero.Exists(fs, "/a.xml.fbk")
	assert.False(t, exists)
	assert.False(t, m.HasReversions())
}

func TestRevertOrderIsReverseOfRegistration(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(fs)

	require.NoError(t, afero.WriteFile(fs, "/platforms/flash.xml", []byte("flash-orig"), 0644))
	require.NoError(t, m.BackupCopy("/platforms/flash.xml"))
	require.NoError(t, afero.WriteFile(fs, "/platforms/flash.xml", []byte("flash-new"), 0644))

	require.NoError(t, m.RevertableTouch("/platforms/html5.xml"))
	require.NoError(t, afero.WriteFile(fs, "/platforms/html5.xml", []byte("html5-new"), 0644))

	assert.Equal(t, 2, m.RevertQueueCount())
	errs := m.Revert(false)
	assert.Empty(t, errs)

	exists, _ := afero.Exists(fs, "/platforms/html5.xml")
	assert.False(t, exists)
	data, _ := afero.ReadFile(fs, "/platforms/flash.xml")
	assert.Equal(t, "flash-orig", string(data))
}
