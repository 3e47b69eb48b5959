package local_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/datalake/pkg/batch/adapter/storage"
	"github.com/tigerroll/datalake/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/datalake/pkg/batch/adapter/storage/local"
	coreConfig "github.com/tigerroll/datalake/pkg/batch/core/config"
)

func newAdapter(t *testing.T) (string, storage.StorageConnection) {
	t.Helper()
	dir := t.TempDir()
	conn, err := local.NewLocalAdapter(config.StorageConfig{Type: "local", BaseDir: dir}, "test")
	require.NoError(t, err)
	return dir, conn
}

func TestLocalAdapter_UploadDownload(t *testing.T) {
	ctx := context.Background()
	_, conn := newAdapter(t)

	require.NoError(t, conn.Upload(ctx, "", "a/b/c.json", bytes.NewBufferString(`{"x":1}`), "application/json"))

	rc, err := conn.Download(ctx, "", "a/b/c.json")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(body))
}

func TestLocalAdapter_ListObjectsPrefixAndOrder(t *testing.T) {
	ctx := context.Background()
	_, conn := newAdapter(t)
	for _, name := range []string{"log_data/2018/11/b.json", "log_data/2018/11/a.json", "song_data/A/x.json", "log_data_extra.json"} {
		require.NoError(t, conn.Upload(ctx, "", name, bytes.NewBufferString("{}"), ""))
	}

	var got []string
	require.NoError(t, conn.ListObjects(ctx, "", "log_data/", func(name string) error {
		got = append(got, name)
		return nil
	}))
	assert.Equal(t, []string{"log_data/2018/11/a.json", "log_data/2018/11/b.json"}, got)

	got = nil
	require.NoError(t, conn.ListObjects(ctx, "", "missing/dir/", func(name string) error {
		got = append(got, name)
		return nil
	}))
	assert.Empty(t, got)
}

func TestLocalAdapter_DeletePrunesEmptyDirs(t *testing.T) {
	ctx := context.Background()
	dir, conn := newAdapter(t)
	require.NoError(t, conn.Upload(ctx, "", "songs/songs.parquet/year=2000/part-00000.parquet", bytes.NewBufferString("x"), ""))

	require.NoError(t, conn.DeleteObject(ctx, "", "songs/songs.parquet/year=2000/part-00000.parquet"))
	_, err := os.Stat(filepath.Join(dir, "songs"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dir)
	assert.NoError(t, err, "base dir must survive pruning")

	assert.NoError(t, conn.DeleteObject(ctx, "", "songs/never-existed.parquet"))
}

func TestLocalAdapter_RejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	dir, conn := newAdapter(t)
	require.NoError(t, conn.Upload(ctx, "", "../outside.txt", bytes.NewBufferString("x"), ""))
	// ".." is cleaned against the object root, so the file lands inside BaseDir.
	_, err := os.Stat(filepath.Join(dir, "outside.txt"))
	assert.NoError(t, err)
}

func TestNewLocalAdapter_RequiresBaseDir(t *testing.T) {
	_, err := local.NewLocalAdapter(config.StorageConfig{Type: "local"}, "x")
	assert.Error(t, err)
}

func TestLocalProvider_GetConnection(t *testing.T) {
	cfg := coreConfig.NewConfig()
	cfg.Surfin.Adapter.Storage["output"] = map[string]interface{}{"type": "local", "base_dir": t.TempDir()}
	cfg.Surfin.Adapter.Storage["remote"] = map[string]interface{}{"type": "s3", "bucket_name": "b"}

	p := local.NewLocalProvider(cfg)
	assert.Equal(t, "local", p.Type())

	c1, err := p.GetConnection("output")
	require.NoError(t, err)
	c2, err := p.GetConnection("output")
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, "output", c1.Name())

	_, err = p.GetConnection("remote")
	assert.ErrorContains(t, err, "type mismatch")
	_, err = p.GetConnection("nope")
	assert.Error(t, err)

	c3, err := p.ForceReconnect("output")
	require.NoError(t, err)
	assert.NotSame(t, c1, c3)
	assert.NoError(t, p.CloseAll())
}
