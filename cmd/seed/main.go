package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"giftstudio/internal/config"
	"giftstudio/internal/repository"
	"giftstudio/internal/service/project"
	"giftstudio/internal/service/validation"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

func main() {
	fixturesPath := flag.String("fixtures", "", "YAML file with projects to import (default: built-in samples)")
	clearData := flag.Bool("clear-data", false, "Delete every stored project before seeding")
	clearOnly := flag.Bool("clear-only", false, "Delete every stored project and exit")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*clearData || *clearOnly) {
		log.Fatalf("BLOCKED: cannot clear projects in production environment")
	}

	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	ctx := context.Background()
	backend, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open project storage: %v", err)
	}
	defer backend.Close()

	if *clearData || *clearOnly {
		n, err := clearProjects(ctx, backend)
		if err != nil {
			log.Fatalf("Failed to clear projects: %v", err)
		}
		log.Printf("Cleared %d projects (backend: %s)", n, cfg.StorageBackend)
		if *clearOnly {
			return
		}
	}

	raw := defaultFixtures
	if *fixturesPath != "" {
		raw, err = os.ReadFile(*fixturesPath)
		if err != nil {
			log.Fatalf("Failed to read fixtures: %v", err)
		}
	}

	docs, err := parseFixtures(raw)
	if err != nil {
		log.Fatalf("Failed to parse fixtures: %v", err)
	}

	store := project.NewStore(project.StoreConfig{
		Repo:      backend.Repo,
		Validator: validation.NewImportValidator(),
		Logger:    logger,
		Language:  cfg.DefaultLanguage,
	})

	imported := 0
	for i, doc := range docs {
		result := store.ImportProject(ctx, doc)
		if !result.Success {
			log.Printf("Fixture %d rejected: %s", i, result.Error)
			continue
		}
		imported++
		log.Printf("Imported %s (%s)", result.Project.ID, result.Project.Name)
	}

	log.Printf("Seeded %d/%d projects (backend: %s)", imported, len(docs), cfg.StorageBackend)
}

// parseFixtures turns a YAML list of projects into export-format JSON documents
func parseFixtures(raw []byte) ([][]byte, error) {
	var entries []map[string]interface{}
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	docs := make([][]byte, 0, len(entries))
	for i, entry := range entries {
		b, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		docs = append(docs, b)
	}
	return docs, nil
}

func clearProjects(ctx context.Context, backend *repository.Backend) (int, error) {
	projects, err := backend.Repo.LoadProjects(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range projects {
		if err := backend.Repo.DeleteProject(ctx, p.ID); err != nil {
			return 0, fmt.Errorf("delete %s: %w", p.ID, err)
		}
	}
	return len(projects), backend.Repo.FlushPendingWrites(ctx)
}
