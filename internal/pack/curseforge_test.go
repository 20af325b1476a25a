package pack

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quasar/mclauncher-core/internal/core"
)

func TestWriteAndOpenCurseForgePack(t *testing.T) {
	dataDir := t.TempDir()
	gv := core.GameVersion{
		Release:    "1.20.1",
		Modloaders: []core.LoaderRef{{Type: core.LoaderForge, Version: "47.2.0"}},
	}
	cfMod := ModFileRef{
		RelPath:    "mods/jei-1.20.1.jar",
		CurseForge: &CurseForgeFileID{ProjectID: 238222, FileID: 4593548},
	}
	localOnly := ModFileRef{RelPath: "mods/private-tweak.jar"}
	writeFixtureJar(t, dataDir, localOnly.RelPath)

	var buf bytes.Buffer
	opts := ExportOptions{
		Name:    "Test CF Pack",
		Version: "1.0.0",
		Author:  "someone",
		Filter:  ExportFilter{Categories: map[string][]string{"mods": nil}},
	}
	require.NoError(t, WriteCurseForgePack(&buf, dataDir, gv, []ModFileRef{cfMod, localOnly}, opts))

	path := filepath.Join(t.TempDir(), "export.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	archive, err := OpenCurseForgePack(path)
	require.NoError(t, err)
	defer archive.Close()

	require.Equal(t, "1.20.1", archive.Manifest.Minecraft.Version)
	require.Len(t, archive.Manifest.Minecraft.ModLoaders, 1)
	require.Equal(t, "forge-47.2.0", archive.Manifest.Minecraft.ModLoaders[0].ID)

	refs := archive.AddonRefs()
	require.Len(t, refs, 1)
	require.Equal(t, CurseForgeFileID{ProjectID: 238222, FileID: 4593548}, refs[0])

	extractDir := t.TempDir()
	require.NoError(t, archive.ExtractOverrides(extractDir))
	_, err = os.Stat(filepath.Join(extractDir, "mods", "private-tweak.jar"))
	require.NoError(t, err, "expected private-tweak.jar in overrides")

	gotGV := archive.GameVersion()
	require.Equal(t, "1.20.1", gotGV.Release)
	require.Equal(t, []core.LoaderRef{{Type: core.LoaderForge, Version: "47.2.0"}}, gotGV.Modloaders)
}
