package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"world-forge-api/internal/application/world"
	"world-forge-api/internal/infrastructure/llm"
	"world-forge-api/internal/infrastructure/persistence/memory"
	"world-forge-api/internal/workflow/prompt"
)

var (
	seedData string
	provider string
	apiKey   string
	modelID  string
	format   string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run a world build against an in-memory store and print the report",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&seedData, "seed-data", "", "world description passed to every prompt")
	buildCmd.Flags().StringVar(&provider, "provider", "", "LLM provider (defaults to llm.default_provider)")
	buildCmd.Flags().StringVar(&apiKey, "api-key", "", "API key overriding the provider config")
	buildCmd.Flags().StringVar(&modelID, "model", "", "model overriding the provider config")
	buildCmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	_ = buildCmd.MarkFlagRequired("seed-data")
}

// dryRunOutput 试运行输出
type dryRunOutput struct {
	SeedID string         `json:"seed_id" yaml:"seed_id"`
	Report world.Report   `json:"report" yaml:"report"`
	Counts map[string]int `json:"counts" yaml:"counts"`
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unsupported format %q", format)
	}

	registry, err := prompt.NewRegistry(cfg.World.TemplatesPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store := memory.NewStore()
	opts := world.OptionsFromConfig(&cfg.World)

	seed, err := world.NewSeedService(store, opts).CreateSeed(ctx)
	if err != nil {
		return err
	}

	builds := world.NewBuildService(store, store, llm.NewEinoFactory(cfg), registry, nil, nil, nil, opts)
	outcome, err := builds.Build(ctx, world.BuildRequest{
		SeedID:   seed.ID,
		SeedData: seedData,
		Provider: provider,
		APIKey:   apiKey,
		Model:    modelID,
	})
	if err != nil {
		return err
	}

	snap := store.Snapshot()
	out := dryRunOutput{
		SeedID: seed.ID,
		Report: outcome.Report,
		Counts: map[string]int{
			"characters":    len(snap.Characters),
			"locations":     len(snap.Locations),
			"events":        len(snap.Events),
			"relationships": len(snap.Relationships),
			"skills":        len(snap.CharacterSkills),
			"statuses":      len(snap.CharacterStatuses),
			"items":         len(snap.CharacterItems),
		},
	}

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(out)
}
