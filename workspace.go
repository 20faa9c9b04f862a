// Package manageenv implements the manage-env commands: creating, selecting,
// reading and writing .env files in a project directory.
package manageenv

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dasanik2001/manage-env/cliconf"
	"github.com/dasanik2001/manage-env/gitignore"
	"github.com/dasanik2001/manage-env/prompt"
	"github.com/dasanik2001/manage-env/registry"
	"github.com/pentops/log.go/log"
)

// ErrMissingArgument matches both a positional argument left out on the
// command line and one given as an empty string.
var ErrMissingArgument = cliconf.ErrRequired

type MissingArgumentError struct {
	Message string
}

func (me MissingArgumentError) Error() string {
	return me.Message
}

func (me MissingArgumentError) Is(target error) bool {
	return target == ErrMissingArgument
}

// WorkspaceConfig is embedded in every command config.
type WorkspaceConfig struct {
	Dir      string `flag:"dir" env:"MANAGE_ENV_DIR" default:"." description:"Project directory holding the environment files"`
	Registry string `flag:"registry" env:"MANAGE_ENV_REGISTRY" default:"config.json" description:"File recording the selected environment file, relative to --dir"`
	Prefix   string `flag:"prefix" env:"MANAGE_ENV_PREFIX" default:".env" description:"Name prefix of environment files"`
	Verbose  bool   `flag:"verbose" env:"MANAGE_ENV_VERBOSE" description:"Log each step to stderr"`
}

// App holds the collaborators shared by all commands. The zero value is not
// usable, see NewApp.
type App struct {
	Out     io.Writer
	ErrOut  io.Writer
	Chooser prompt.Chooser

	// Logger, when set, is used regardless of --verbose
	Logger log.Logger
}

func NewApp() *App {
	return &App{
		Out:     os.Stdout,
		ErrOut:  os.Stderr,
		Chooser: prompt.NewTerminalChooser(),
	}
}

var discardLogger = log.NewCallbackLogger(func(level, message string, fields map[string]any) {})

type workspace struct {
	*App
	dir      string
	prefix   string
	registry *registry.Registry
	logger   log.Logger
}

func (app *App) workspace(ctx context.Context, cfg WorkspaceConfig) (context.Context, *workspace) {
	logger := app.Logger
	if logger == nil {
		if cfg.Verbose {
			logger = log.DefaultLogger
		} else {
			logger = discardLogger
		}
	}

	ctx = log.WithField(ctx, "dir", cfg.Dir)
	return ctx, &workspace{
		App:      app,
		dir:      cfg.Dir,
		prefix:   cfg.Prefix,
		registry: registry.New(resolvePath(cfg.Dir, cfg.Registry)),
		logger:   logger,
	}
}

func (ws *workspace) path(name string) string {
	return resolvePath(ws.dir, name)
}

// resolvePath places a relative name under dir; absolute names are kept.
func resolvePath(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func (ws *workspace) printf(format string, args ...any) {
	fmt.Fprintf(ws.Out, format, args...)
}

func (ws *workspace) warnf(format string, args ...any) {
	fmt.Fprintf(ws.ErrOut, format, args...)
}

// ensureIgnored adds name to the project's .gitignore, reporting what
// changed.
func (ws *workspace) ensureIgnored(ctx context.Context, name string) error {
	outcome, err := gitignore.EnsureIgnored(ws.path(gitignore.DefaultFilename), name)
	if err != nil {
		return fmt.Errorf("updating %s: %w", gitignore.DefaultFilename, err)
	}

	ws.logger.Debug(log.WithFields(ctx, map[string]any{
		"file":    name,
		"outcome": outcome.String(),
	}), "gitignore checked")

	switch outcome {
	case gitignore.Created:
		ws.printf("Created %s and added '%s'\n", gitignore.DefaultFilename, name)
	case gitignore.Appended:
		ws.printf("Added '%s' to %s\n", name, gitignore.DefaultFilename)
	}
	return nil
}

// backupTarget is the active file, or the bare prefix (.env) when nothing
// has been selected yet.
func (ws *workspace) backupTarget() (string, error) {
	filename, ok, err := ws.registry.Load()
	if err != nil {
		return "", err
	}
	if !ok {
		return ws.prefix, nil
	}
	return filename, nil
}
