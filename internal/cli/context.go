package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/forPelevin/redub/internal/config"
	"github.com/forPelevin/redub/internal/logging"
	"github.com/forPelevin/redub/internal/pipeline"
	"github.com/forPelevin/redub/internal/ports"
	"github.com/forPelevin/redub/internal/types"
)

type commandContext struct {
	configFlag string
	verbose    bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if c.verbose {
			cfg.Logging.Level = "debug"
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withApp opens a wired instance for the duration of fn.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(*pipeline.App) error, opts ...pipeline.Option) (err error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	log, closer, err := logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Output:   cmd.ErrOrStderr(),
		FilePath: cfg.Logging.File,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	app, err := pipeline.Open(cmd.Context(), cfg, log, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	log.Debug("redub ready", "wiring", app.Describe())
	return fn(app)
}

// resolveProject accepts a full project id or a unique prefix of one.
func resolveProject(ctx context.Context, store ports.ProjectStore, ref string) (types.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return types.Project{}, errors.New("project id is required")
	}
	p, err := store.GetProject(ctx, ref)
	if err == nil || !errors.Is(err, ports.ErrNotFound) {
		return p, err
	}
	all, err := store.ListProjects(ctx)
	if err != nil {
		return types.Project{}, err
	}
	var matches []types.Project
	for _, candidate := range all {
		if strings.HasPrefix(candidate.ID, ref) {
			matches = append(matches, candidate)
		}
	}
	switch len(matches) {
	case 0:
		return types.Project{}, fmt.Errorf("project %q: %w", ref, ports.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return types.Project{}, fmt.Errorf("project %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
