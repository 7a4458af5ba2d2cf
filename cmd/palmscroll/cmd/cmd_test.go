package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/palmscroll/internal/config"
	"github.com/ayusman/palmscroll/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		configPath = ""
		journalSession = ""
		forceInit = false
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestInit_WritesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palmscroll.yaml")

	out, err := execute(t, "init", "--config", path, "--model", "net.onnx", "--journal", "j.db")
	require.NoError(t, err)
	require.Contains(t, out, "wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "net.onnx", cfg.Model.Path)
	require.Equal(t, "j.db", cfg.Journal.Path)
	require.Equal(t, config.Default().Debounce, cfg.Debounce)

	_, err = execute(t, "init", "--config", path)
	require.ErrorContains(t, err, "already exists")
}

func TestInit_AppliesEnvironment(t *testing.T) {
	t.Setenv("PALMSCROLL_DEBOUNCE_MAGNITUDE", "240")
	t.Setenv("PALMSCROLL_DISPATCH_MODE", "log")
	path := filepath.Join(t.TempDir(), "palmscroll.yaml")

	_, err := execute(t, "init", "--config", path, "--model", "net.onnx")
	require.NoError(t, err)

	// Decode the file alone so the environment cannot mask what was written.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	cfg := config.Default()
	require.NoError(t, yaml.Unmarshal(data, cfg))
	require.Equal(t, 240, cfg.Debounce.Magnitude)
	require.Equal(t, config.DispatchLog, cfg.Dispatch.Mode)
	require.Equal(t, "net.onnx", cfg.Model.Path)
}

func TestJournal(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.db")

	out, err := execute(t, "journal", "--journal", missing)
	require.NoError(t, err)
	require.Contains(t, out, "no journal at")

	path := filepath.Join(dir, "journal.db")
	s, err := store.New(path)
	require.NoError(t, err)

	sess := &store.Session{Dispatch: config.DispatchLog, StartedAt: time.Now()}
	require.NoError(t, s.Sessions().Create(sess))
	require.NoError(t, s.Events().Record(&store.Event{
		SessionID:     sess.ID,
		Status:        "FIST",
		Amount:        -160,
		RunLength:     6,
		DispatchError: "no display",
	}))
	require.NoError(t, s.Close())

	out, err = execute(t, "journal", "--journal", path)
	require.NoError(t, err)
	require.Contains(t, out, sess.ID)
	require.Contains(t, out, "actions=1")
	require.Contains(t, out, "running")

	out, err = execute(t, "journal", "--journal", path, "--session", sess.ID)
	require.NoError(t, err)
	require.Contains(t, out, "FIST  -160 stable=6")
	require.Contains(t, out, "error=no display")
}

func TestProbe_MissingModel(t *testing.T) {
	_, err := execute(t, "probe", "--model", filepath.Join(t.TempDir(), "none.onnx"))
	require.Error(t, err)
}
