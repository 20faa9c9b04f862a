package manageenv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dasanik2001/manage-env/backup"
	"github.com/dasanik2001/manage-env/commander"
	"github.com/dasanik2001/manage-env/envfile"
	"github.com/dasanik2001/manage-env/registry"
	"github.com/pentops/log.go/log"
)

// Commands builds the full command set.
func (app *App) Commands() *commander.CommandSet {
	cs := commander.NewCommandSet()
	cs.Add("create", commander.NewCommand(app.Create,
		commander.WithDescription("Create a new empty environment file")),
		commander.CommandWithDescription("Create a specific environment file"))
	cs.Add("select", commander.NewCommand(app.Select,
		commander.WithDescription("Choose the environment file used by get and set")),
		commander.CommandWithDescription("Use a specific environment file"))
	cs.Add("get", commander.NewCommand(app.Get,
		commander.WithDescription("Print the value of a key from the selected file")),
		commander.CommandWithDescription("Get the value for a key"))
	cs.Add("set", commander.NewCommand(app.Set,
		commander.WithDescription("Add or update a key in the selected file")),
		commander.CommandWithDescription("Set the value for a key"))
	cs.Add("backup", commander.NewCommand(app.Backup,
		commander.WithDescription("Copy the selected file (or .env) to <file>.backup")),
		commander.CommandWithDescription("Create a backup of the environment file"))
	cs.Add("restore", commander.NewCommand(app.Restore,
		commander.WithDescription("Copy <file>.backup back over the selected file (or .env)")),
		commander.CommandWithDescription("Restore the environment file from its backup"))
	cs.Add("list", commander.NewCommand(app.List,
		commander.WithDescription("List environment files with their key counts")),
		commander.CommandWithDescription("List environment files"))
	return cs
}

type CreateConfig struct {
	File string `flag:",arg0" description:"Name of the file to create, e.g. .env.dev"`
	WorkspaceConfig
}

// Create makes an empty environment file. An existing file is reported but
// is not an error.
func (app *App) Create(ctx context.Context, cfg CreateConfig) error {
	ctx, ws := app.workspace(ctx, cfg.WorkspaceConfig)
	if cfg.File == "" {
		return MissingArgumentError{Message: "An environment file name is required."}
	}

	err := envfile.Create(ws.path(cfg.File))
	if errors.Is(err, envfile.ErrFileAlreadyExists) {
		ws.warnf("Error: %s already exists.\n", cfg.File)
		return nil
	} else if err != nil {
		return err
	}

	ws.logger.Info(log.WithField(ctx, "file", cfg.File), "environment file created")
	ws.printf("Creating %s...\n", cfg.File)
	ws.printf("New environment file created: %s\n", cfg.File)
	return nil
}

type SelectConfig struct {
	File string `flag:",arg0" optional:"true" description:"File to select, prompts when omitted and several exist"`
	WorkspaceConfig
}

// Select records which environment file get and set operate on.
func (app *App) Select(ctx context.Context, cfg SelectConfig) error {
	ctx, ws := app.workspace(ctx, cfg.WorkspaceConfig)

	candidates, err := registry.Discover(ws.dir, ws.prefix)
	if err != nil {
		return err
	}
	ws.logger.Debug(log.WithField(ctx, "candidates", candidates), "discovered environment files")

	var selected string
	if cfg.File != "" && len(candidates) > 0 {
		for _, candidate := range candidates {
			if candidate == cfg.File {
				selected = candidate
				break
			}
		}
		if selected == "" {
			return fmt.Errorf("%s: %w", cfg.File, envfile.ErrFileNotFound)
		}
	} else {
		selected, err = registry.Resolve(ctx, candidates, ws.Chooser)
		if err != nil {
			return err
		}
	}

	// The selection only sticks if the file is readable
	env, err := envfile.ReadFile(ws.path(selected))
	if err != nil {
		return err
	}

	if err := ws.registry.Save(selected); err != nil {
		return err
	}

	ws.logger.Info(log.WithFields(ctx, map[string]any{
		"file": selected,
		"keys": env.Len(),
	}), "environment file selected")
	ws.printf("Using environment file: %s\n", selected)
	return nil
}

type GetConfig struct {
	Key string `flag:",arg0" description:"Key to read"`
	WorkspaceConfig
}

// Get prints the value of a key from the active file.
func (app *App) Get(ctx context.Context, cfg GetConfig) error {
	ctx, ws := app.workspace(ctx, cfg.WorkspaceConfig)
	if cfg.Key == "" {
		return MissingArgumentError{Message: "A key is required."}
	}

	active, err := ws.registry.Active()
	if err != nil {
		return err
	}

	env, err := envfile.ReadFile(ws.path(active))
	if err != nil {
		return err
	}
	ws.logger.Debug(log.WithFields(ctx, map[string]any{
		"file": active,
		"key":  cfg.Key,
	}), "reading key")

	value, err := env.Lookup(cfg.Key)
	if err != nil {
		return err
	}
	ws.printf("%s\n", value)
	return nil
}

type SetConfig struct {
	Key   string `flag:",arg0" description:"Key to write"`
	Value string `flag:",arg1" description:"Value to store"`
	WorkspaceConfig
}

// Set upserts a key in the active file, then makes sure the file is listed
// in .gitignore.
func (app *App) Set(ctx context.Context, cfg SetConfig) error {
	ctx, ws := app.workspace(ctx, cfg.WorkspaceConfig)
	if cfg.Key == "" || cfg.Value == "" {
		return MissingArgumentError{Message: "Both key and value are required."}
	}

	active, err := ws.registry.Active()
	if err != nil {
		return err
	}
	ctx = log.WithFields(ctx, map[string]any{
		"file": active,
		"key":  cfg.Key,
	})

	existed, err := envfile.SetKey(ws.path(active), cfg.Key, cfg.Value)
	if err != nil {
		return err
	}
	if existed {
		ws.printf("Key '%s' already exists. Updating its value.\n", cfg.Key)
	}
	ws.logger.Info(ctx, "key set")
	ws.printf("%s set to %s\n", cfg.Key, cfg.Value)

	return ws.ensureIgnored(ctx, active)
}

type BackupConfig struct {
	WorkspaceConfig
}

// Backup copies the active file to <file>.backup.
func (app *App) Backup(ctx context.Context, cfg BackupConfig) error {
	ctx, ws := app.workspace(ctx, cfg.WorkspaceConfig)

	target, err := ws.backupTarget()
	if err != nil {
		return err
	}
	backupName := backup.PathFor(target)

	if err := backup.Backup(ws.path(target), ws.path(backupName)); err != nil {
		return err
	}
	ws.logger.Info(log.WithField(ctx, "backup", backupName), "backup created")

	if err := ws.ensureIgnored(ctx, backupName); err != nil {
		return err
	}
	ws.printf("Backup created: %s\n", backupName)
	return nil
}

type RestoreConfig struct {
	WorkspaceConfig
}

// Restore copies <file>.backup back over the active file.
func (app *App) Restore(ctx context.Context, cfg RestoreConfig) error {
	ctx, ws := app.workspace(ctx, cfg.WorkspaceConfig)

	target, err := ws.backupTarget()
	if err != nil {
		return err
	}
	backupName := backup.PathFor(target)

	if err := backup.Restore(ws.path(target), ws.path(backupName)); err != nil {
		return err
	}
	ws.logger.Info(log.WithField(ctx, "backup", backupName), "backup restored")
	ws.printf("Restored %s from backup: %s\n", target, backupName)
	return nil
}
