package manageenv

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dasanik2001/manage-env/backup"
	"github.com/dasanik2001/manage-env/commander"
	"github.com/dasanik2001/manage-env/envfile"
	"github.com/dasanik2001/manage-env/registry"
	"github.com/pentops/log.go/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chooserFunc func(ctx context.Context, message string, options []string) (string, error)

func (cf chooserFunc) Choose(ctx context.Context, message string, options []string) (string, error) {
	return cf(ctx, message, options)
}

type logEntry struct {
	level   string
	message string
	fields  map[string]any
}

type testEnv struct {
	t       *testing.T
	dir     string
	app     *App
	out     *bytes.Buffer
	errOut  *bytes.Buffer
	entries []logEntry
}

func newTestEnv(t *testing.T) *testEnv {
	te := &testEnv{
		t:      t,
		dir:    t.TempDir(),
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
	}
	te.app = &App{
		Out:    te.out,
		ErrOut: te.errOut,
		Chooser: chooserFunc(func(ctx context.Context, message string, options []string) (string, error) {
			t.Errorf("unexpected prompt: %s %v", message, options)
			return "", nil
		}),
		Logger: log.NewCallbackLogger(func(level, message string, fields map[string]any) {
			te.entries = append(te.entries, logEntry{level, message, fields})
		}),
	}
	return te
}

func (te *testEnv) run(args ...string) error {
	te.t.Helper()
	te.out.Reset()
	te.errOut.Reset()
	return te.app.Commands().Run(context.Background(), append([]string{"--dir=" + te.dir}, args...))
}

func (te *testEnv) write(name, content string) {
	te.t.Helper()
	require.NoError(te.t, os.WriteFile(filepath.Join(te.dir, name), []byte(content), 0o600))
}

func (te *testEnv) read(name string) string {
	te.t.Helper()
	data, err := os.ReadFile(filepath.Join(te.dir, name))
	require.NoError(te.t, err)
	return string(data)
}

func (te *testEnv) exists(name string) bool {
	_, err := os.Stat(filepath.Join(te.dir, name))
	return err == nil
}

func (te *testEnv) selectFile(name string) {
	te.t.Helper()
	require.NoError(te.t, registry.New(filepath.Join(te.dir, registry.DefaultFilename)).Save(name))
}

func TestScenario(t *testing.T) {
	te := newTestEnv(t)

	require.NoError(t, te.run("create", ".env.dev"))
	assert.Equal(t, "", te.read(".env.dev"))
	assert.Equal(t, "Creating .env.dev...\nNew environment file created: .env.dev\n", te.out.String())

	require.NoError(t, te.run("select"))
	assert.Equal(t, "Using environment file: .env.dev\n", te.out.String())
	selection := registry.Selection{}
	require.NoError(t, json.Unmarshal([]byte(te.read("config.json")), &selection))
	assert.Equal(t, ".env.dev", selection.SelectedEnvFile)

	require.NoError(t, te.run("set", "API_KEY", "secret123"))
	assert.Equal(t, "API_KEY=secret123\n", te.read(".env.dev"))
	assert.Equal(t, ".env.dev", te.read(".gitignore"))
	assert.Equal(t, "API_KEY set to secret123\nCreated .gitignore and added '.env.dev'\n", te.out.String())

	require.NoError(t, te.run("get", "API_KEY"))
	assert.Equal(t, "secret123\n", te.out.String())

	err := te.run("get", "MISSING")
	assert.ErrorIs(t, err, envfile.ErrKeyNotFound)
	assert.EqualError(t, err, "Key 'MISSING' not found.")
	assert.Empty(t, te.out.String())
}

func TestCreateExisting(t *testing.T) {
	te := newTestEnv(t)
	te.write(".env.dev", "A=1\n")

	require.NoError(t, te.run("create", ".env.dev"))
	assert.Equal(t, "Error: .env.dev already exists.\n", te.errOut.String())
	assert.Equal(t, "A=1\n", te.read(".env.dev"))
}

func TestSelect(t *testing.T) {
	t.Run("no candidates", func(t *testing.T) {
		te := newTestEnv(t)
		te.write("README.md", "")

		assert.ErrorIs(t, te.run("select"), registry.ErrNoEnvFilesFound)
		assert.ErrorIs(t, te.run("select", ".env"), registry.ErrNoEnvFilesFound)
		assert.False(t, te.exists("config.json"))
	})

	t.Run("prompts between several", func(t *testing.T) {
		te := newTestEnv(t)
		te.write(".env", "")
		te.write(".env.prod", "A=1\n")
		te.write(".env.backup", "")

		var offered []string
		te.app.Chooser = chooserFunc(func(ctx context.Context, message string, options []string) (string, error) {
			offered = options
			return ".env.prod", nil
		})

		require.NoError(t, te.run("select"))
		assert.Equal(t, []string{".env", ".env.prod"}, offered)
		assert.Equal(t, "Using environment file: .env.prod\n", te.out.String())
		assert.Contains(t, te.read("config.json"), `"selectedEnvFile": ".env.prod"`)
	})

	t.Run("explicit file skips prompt", func(t *testing.T) {
		te := newTestEnv(t)
		te.write(".env", "")
		te.write(".env.dev", "")

		require.NoError(t, te.run("select", ".env.dev"))
		assert.Contains(t, te.read("config.json"), `".env.dev"`)
	})

	t.Run("explicit file must be a candidate", func(t *testing.T) {
		te := newTestEnv(t)
		te.write(".env", "")

		assert.ErrorIs(t, te.run("select", ".env.nope"), envfile.ErrFileNotFound)
		assert.False(t, te.exists("config.json"))
	})
}

func TestGetSet(t *testing.T) {
	t.Run("no active file", func(t *testing.T) {
		te := newTestEnv(t)
		te.write(".env", "")

		assert.ErrorIs(t, te.run("set", "A", "1"), registry.ErrNoActiveFile)
		assert.ErrorIs(t, te.run("get", "A"), registry.ErrNoActiveFile)
		assert.Equal(t, "", te.read(".env"))
	})

	t.Run("missing arguments", func(t *testing.T) {
		te := newTestEnv(t)
		te.write(".env", "")
		te.selectFile(".env")

		err := te.run("set", "A")
		assert.ErrorIs(t, err, ErrMissingArgument)
		helpError := commander.HelpError{}
		assert.ErrorAs(t, err, &helpError)

		err = te.run("set", "A", "")
		assert.ErrorIs(t, err, ErrMissingArgument)
		assert.EqualError(t, err, "Both key and value are required.")

		assert.ErrorIs(t, te.run("get"), ErrMissingArgument)
		assert.ErrorIs(t, te.run("create"), ErrMissingArgument)
		assert.False(t, te.exists(".gitignore"))
	})

	t.Run("active file deleted", func(t *testing.T) {
		te := newTestEnv(t)
		te.selectFile(".env.gone")

		assert.ErrorIs(t, te.run("set", "A", "1"), envfile.ErrFileNotFound)
		assert.False(t, te.exists(".env.gone"))
	})

	t.Run("update keeps order", func(t *testing.T) {
		te := newTestEnv(t)
		te.write(".env", "A=1\nB=2\nC=3\n")
		te.write(".gitignore", "node_modules\n")
		te.selectFile(".env")

		require.NoError(t, te.run("set", "B", "20"))
		assert.Equal(t, "A=1\nB=20\nC=3\n", te.read(".env"))
		assert.Equal(t, "Key 'B' already exists. Updating its value.\nB set to 20\nAdded '.env' to .gitignore\n", te.out.String())
		assert.Equal(t, "node_modules\n.env\n", te.read(".gitignore"))

		require.NoError(t, te.run("set", "D", "a=b"))
		assert.Equal(t, "D set to a=b\n", te.out.String())
		assert.Equal(t, "node_modules\n.env\n", te.read(".gitignore"))

		for key, want := range map[string]string{"A": "1", "B": "20", "C": "3", "D": "a=b"} {
			require.NoError(t, te.run("get", key))
			assert.Equal(t, want+"\n", te.out.String(), key)
		}
	})

	t.Run("line breaks rejected", func(t *testing.T) {
		te := newTestEnv(t)
		te.write(".env", "A=1\n")
		te.selectFile(".env")

		assert.ErrorIs(t, te.run("set", "TOKEN", "abc\nADMIN=true"), envfile.ErrInvalidEntry)
		assert.ErrorIs(t, te.run("set", "TOKEN", "abc\r"), envfile.ErrInvalidEntry)
		assert.ErrorIs(t, te.run("set", "A=B", "1"), envfile.ErrInvalidEntry)
		assert.Equal(t, "A=1\n", te.read(".env"))
		assert.False(t, te.exists(".gitignore"))

		assert.ErrorIs(t, te.run("get", "ADMIN"), envfile.ErrKeyNotFound)
	})

	t.Run("value round trips", func(t *testing.T) {
		te := newTestEnv(t)
		te.write(".env", "")
		te.selectFile(".env")

		for _, value := range []string{"a=b=c", " spaced ", `"quoted"`, "#hash", "ünïcode"} {
			require.NoError(t, te.run("set", "K", value))
			require.NoError(t, te.run("get", "K"))
			assert.Equal(t, value+"\n", te.out.String())
		}
	})

	t.Run("empty value is not found", func(t *testing.T) {
		te := newTestEnv(t)
		te.write(".env", "EMPTY=\n")
		te.selectFile(".env")

		assert.ErrorIs(t, te.run("get", "EMPTY"), envfile.ErrKeyNotFound)
	})
}

func TestBackupRestore(t *testing.T) {
	t.Run("active file", func(t *testing.T) {
		te := newTestEnv(t)
		te.write(".env.dev", "A=1\nB=2\n")
		te.write(".gitignore", ".env.dev\n")
		te.selectFile(".env.dev")

		require.NoError(t, te.run("backup"))
		assert.Equal(t, "A=1\nB=2\n", te.read(".env.dev.backup"))
		assert.Equal(t, "Added '.env.dev.backup' to .gitignore\nBackup created: .env.dev.backup\n", te.out.String())
		assert.Equal(t, ".env.dev\n.env.dev.backup\n", te.read(".gitignore"))

		require.NoError(t, te.run("set", "A", "changed"))
		require.NoError(t, te.run("restore"))
		assert.Equal(t, "A=1\nB=2\n", te.read(".env.dev"))
		assert.Equal(t, "Restored .env.dev from backup: .env.dev.backup\n", te.out.String())
	})

	t.Run("falls back to .env", func(t *testing.T) {
		te := newTestEnv(t)
		te.write(".env", "A=1")

		require.NoError(t, te.run("backup"))
		assert.Equal(t, "A=1", te.read(".env.backup"))
		assert.Equal(t, ".env.backup", te.read(".gitignore"))
		assert.Equal(t, "Created .gitignore and added '.env.backup'\nBackup created: .env.backup\n", te.out.String())
	})

	t.Run("missing files", func(t *testing.T) {
		te := newTestEnv(t)

		assert.ErrorIs(t, te.run("backup"), backup.ErrSourceNotFound)
		assert.ErrorIs(t, te.run("restore"), backup.ErrBackupNotFound)
		assert.False(t, te.exists(".gitignore"))
	})
}

func TestList(t *testing.T) {
	te := newTestEnv(t)
	assert.ErrorIs(t, te.run("list"), registry.ErrNoEnvFilesFound)

	te.write(".env", "A=1\n")
	te.write(".env.dev", "A=1\nB=2\nnot a pair\n")
	te.write(".env.prod", "")
	te.write(".env.dev.backup", "A=1\n")
	te.selectFile(".env.dev")

	require.NoError(t, te.run("list"))
	assert.Equal(t, strings.Join([]string{
		"  .env (1 keys)",
		"* .env.dev (2 keys)",
		"  .env.prod (0 keys)",
		"",
	}, "\n"), te.out.String())
}

func TestLogging(t *testing.T) {
	te := newTestEnv(t)
	te.write(".env", "")
	te.selectFile(".env")

	require.NoError(t, te.run("set", "A", "1"))

	var found *logEntry
	for idx := range te.entries {
		if te.entries[idx].message == "key set" {
			found = &te.entries[idx]
		}
	}
	require.NotNil(t, found, "entries: %v", te.entries)
	assert.Equal(t, ".env", found.fields["file"])
	assert.Equal(t, "A", found.fields["key"])
	assert.Equal(t, te.dir, found.fields["dir"])
}

func TestAbsolutePaths(t *testing.T) {
	te := newTestEnv(t)
	elsewhere := t.TempDir()
	envPath := filepath.Join(elsewhere, "x.env")
	statePath := filepath.Join(elsewhere, "state.json")

	require.NoError(t, te.run("create", envPath))
	assert.FileExists(t, envPath)
	assert.NoFileExists(t, filepath.Join(te.dir, envPath))

	require.NoError(t, registry.New(statePath).Save(envPath))
	require.NoError(t, te.run("set", "--registry="+statePath, "K", "V"))
	data, err := os.ReadFile(envPath)
	require.NoError(t, err)
	assert.Equal(t, "K=V\n", string(data))
	assert.False(t, te.exists("config.json"))
}

func TestCustomPrefixAndRegistry(t *testing.T) {
	te := newTestEnv(t)
	te.write("app.env", "")
	te.write(".env", "")

	require.NoError(t, te.run("select", "--prefix=app.", "--registry=state.json"))
	assert.Equal(t, "Using environment file: app.env\n", te.out.String())
	assert.False(t, te.exists("config.json"))

	require.NoError(t, te.run("set", "--registry=state.json", "K", "V"))
	assert.Equal(t, "K=V\n", te.read("app.env"))
}
