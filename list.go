package manageenv

import (
	"context"

	"github.com/dasanik2001/manage-env/envfile"
	"github.com/dasanik2001/manage-env/registry"
	"github.com/pentops/log.go/log"
	"golang.org/x/sync/errgroup"
)

const listParallelism = 4

type ListConfig struct {
	WorkspaceConfig
}

// List prints each environment file with its key count, the active one
// marked with '*'.
func (app *App) List(ctx context.Context, cfg ListConfig) error {
	ctx, ws := app.workspace(ctx, cfg.WorkspaceConfig)

	candidates, err := registry.Discover(ws.dir, ws.prefix)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return registry.ErrNoEnvFilesFound
	}

	active, _, err := ws.registry.Load()
	if err != nil {
		return err
	}

	counts := make([]int, len(candidates))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(listParallelism)
	for idx, name := range candidates {
		idx, name := idx, name
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			env, err := envfile.ReadFile(ws.path(name))
			if err != nil {
				return err
			}
			counts[idx] = env.Len()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	ws.logger.Debug(log.WithField(ctx, "count", len(candidates)), "listed environment files")
	for idx, name := range candidates {
		marker := " "
		if name == active {
			marker = "*"
		}
		ws.printf("%s %s (%d keys)\n", marker, name, counts[idx])
	}
	return nil
}
