package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"codexgen/internal/bootstrap"
	"codexgen/internal/domain"
	"codexgen/internal/infra"
	"codexgen/internal/provider"
)

// runFlags are shared by generate and run.
type runFlags struct {
	images     int
	seed       uint64
	seeded     bool
	mode       string
	provider   string
	paramsPath string
	scenesPath string
	verbose    bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.images, "images", "n", 1, "Number of images to generate payloads for")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Seed for reproducible draws")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "Provider mode override (fixed, broadcast, random)")
	cmd.Flags().StringVarP(&f.provider, "provider", "p", "", "Active provider override ("+strings.Join(providerNames(), ", ")+")")
	cmd.Flags().StringVar(&f.paramsPath, "params", "", "Structural params file (overrides STRUCTURE_PARAMS_PATH)")
	cmd.Flags().StringVar(&f.scenesPath, "scenes", "", "Scene descriptions file (overrides SCENES_PATH)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "V", false, "Verbose output")
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "jobgen",
		Short:        "Generate provider job payloads from prompt fragments and scenes",
		SilenceUsage: true,
	}
	root.AddCommand(newGenerateCmd(), newRunCmd(), newTokenCmd())
	return root
}

type session struct {
	cfg     *infra.Config
	runtime bootstrap.Runtime
	logger  zerolog.Logger
}

// load reads the environment, applies flag overrides and validates the
// resulting generation config.
func (f *runFlags) load(ctx context.Context, cmd *cobra.Command) (*session, error) {
	if f.images <= 0 {
		return nil, fmt.Errorf("--images must be positive, got %d", f.images)
	}
	f.seeded = cmd.Flags().Changed("seed")

	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, err
	}
	if f.paramsPath != "" {
		cfg.StructureParamsPath = f.paramsPath
	}
	if f.scenesPath != "" {
		cfg.ScenesPath = f.scenesPath
	}
	if f.provider != "" {
		cfg.Render.RenderMode = f.provider
	}
	logger := infra.NewLogger(cfg.AppEnv)
	if f.verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	rt, err := bootstrap.Load(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if f.mode != "" {
		mode, err := domain.ParseMode(f.mode)
		if err != nil {
			return nil, err
		}
		rt.Generation.Mode = mode
		if err := rt.Generation.Validate(); err != nil {
			return nil, err
		}
	}
	if len(rt.Corpus) == 0 {
		return nil, fmt.Errorf("%w: set SCENES_PATH or --scenes", domain.ErrEmptySceneCorpus)
	}
	return &session{cfg: cfg, runtime: rt, logger: logger}, nil
}

func (f *runFlags) seedPtr() *uint64 {
	if !f.seeded {
		return nil
	}
	s := f.seed
	return &s
}

// providerNames lists accepted --provider values for help output.
func providerNames() []string {
	out := make([]string, 0, len(provider.All))
	for _, k := range provider.All {
		out = append(out, k.String())
	}
	return out
}
