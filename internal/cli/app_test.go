package cli

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f4ah6o/devserve-go/internal/certgen"
	"github.com/f4ah6o/devserve-go/internal/logging"
)

func TestFlagsLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "site"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "devserve.toml"), []byte("[tls]\nvalidity = \"30d\"\nhosts = [\"dev.test\"]\n"), 0o644))
	chdir(t, dir)

	fs := flag.NewFlagSet("serve-https", flag.ContinueOnError)
	flags := RegisterFlags(fs, true)
	require.NoError(t, fs.Parse([]string{"-dir", "site", "-cert-dir", "/tmp/c", "-v", "-access-log", "9443"}))

	cfg, err := flags.Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "site"), cfg.Server.Root)
	assert.Equal(t, "/tmp/c", cfg.TLS.CertDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.AccessLog)

	port, err := ParsePort(fs.Args(), cfg.Server.HTTPSPort)
	require.NoError(t, err)
	assert.Equal(t, 9443, port)

	acq, paths, err := NewAcquirer(cfg, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "/tmp/c", paths.Dir)
	require.Len(t, acq.Strategies, 2)
	lib, ok := acq.Strategies[0].(*certgen.LibraryStrategy)
	require.True(t, ok)
	assert.Equal(t, 30*24*time.Hour, lib.Subject.Validity)
	assert.Equal(t, []string{"dev.test"}, lib.Subject.Hosts)
	assert.Equal(t, "openssl", acq.Strategies[1].Name())

	runner, err := NewRunner(cfg, logging.Discard(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, runner.ShutdownTimeout)
	assert.NotNil(t, runner.Handler)
}

func TestFlagsLoadMissingDir(t *testing.T) {
	chdir(t, t.TempDir())

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	flags := RegisterFlags(fs, false)
	require.NoError(t, fs.Parse([]string{"-dir", "nope"}))

	_, err := flags.Load()
	assert.Error(t, err)
	assert.Nil(t, fs.Lookup("cert-dir"))
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
