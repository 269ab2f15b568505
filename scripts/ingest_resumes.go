// Command ingest_resumes loads résumé files into ResuMatch outside the HTTP API.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"theagentvikram/resumatch/internal/bootstrap"
	"theagentvikram/resumatch/internal/config"
	"theagentvikram/resumatch/internal/models"
	"theagentvikram/resumatch/internal/repositories"
	"theagentvikram/resumatch/internal/services"
)

var rootCmd = &cobra.Command{
	Use:           "ingest_resumes",
	Short:         "Bulk load and reindex résumés",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Store, analyze and index every supported file in a directory",
	RunE:  runIngest,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed every stored résumé, optionally extracting text again",
	RunE:  runReindex,
}

var (
	ingestDir         string
	ingestOwner       string
	ingestConcurrency int
	ingestDryRun      bool
	reindexLimit      int
	reindexExtract    bool
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestDir, "dir", "d", "", "Directory to scan for résumés (required)")
	ingestCmd.Flags().StringVar(&ingestOwner, "owner", "", "User ID that owns the ingested résumés")
	ingestCmd.Flags().IntVarP(&ingestConcurrency, "concurrency", "c", 4, "Files processed in parallel")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "List the files that would be ingested and exit")
	if err := ingestCmd.MarkFlagRequired("dir"); err != nil {
		panic(fmt.Sprintf("failed to mark dir flag as required: %v", err))
	}

	reindexCmd.Flags().IntVar(&reindexLimit, "limit", 0, "Reindex at most this many résumés, newest first (0 means all)")

	reindexCmd.Flags().BoolVar(&reindexExtract, "extract", false, "Drop stored text and extract it again from the original file")

	rootCmd.AddCommand(ingestCmd, reindexCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// collectFiles returns the supported résumé files under dir, sorted by path.
func collectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !services.IsSupportedFile(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func parseOwner(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --owner %q: %w", raw, err)
	}
	return &id, nil
}

// summary counts outcomes across goroutines.
type summary struct {
	mu     sync.Mutex
	ok     int
	failed map[string]error
}

func (s *summary) record(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.failed == nil {
			s.failed = make(map[string]error)
		}
		s.failed[name] = err
		log.Printf("❌ %s: %v\n", name, err)
		return
	}
	s.ok++
}

func (s *summary) report(verb string) error {
	log.Printf("📊 %d %s, %d failed\n", s.ok, verb, len(s.failed))
	if len(s.failed) > 0 {
		return fmt.Errorf("%d of %d failed", len(s.failed), s.ok+len(s.failed))
	}
	return nil
}

func loadContainer(ctx context.Context) (*bootstrap.Container, *config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	container, err := bootstrap.Build(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, nil, err
	}
	return container, cfg, nil
}

func runIngest(cmd *cobra.Command, _ []string) error {
	owner, err := parseOwner(ingestOwner)
	if err != nil {
		return err
	}

	files, err := collectFiles(ingestDir)
	if err != nil {
		return err
	}
	log.Printf("📂 Found %d résumé files in %s\n", len(files), ingestDir)

	if ingestDryRun {
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	}
	if len(files) == 0 {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, _, err := loadContainer(ctx)
	if err != nil {
		return err
	}
	defer container.Close()

	var sum summary
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(ingestConcurrency, 1))

	for _, path := range files {
		g.Go(func() error {
			sum.record(path, ingestFile(gctx, container, path, owner))
			return nil
		})
	}
	_ = g.Wait()

	return sum.report("ingested")
}

func ingestFile(ctx context.Context, c *bootstrap.Container, path string, owner *uuid.UUID) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	resume, err := c.Ingest.Ingest(ctx, services.IngestInput{
		Filename: filepath.Base(path),
		Data:     data,
		OwnerID:  owner,
	})
	if err != nil {
		return err
	}

	if err := c.Indexer.IndexResume(ctx, resume.ID); err != nil {
		return fmt.Errorf("stored as %s but indexing failed: %w", resume.ID, err)
	}
	log.Printf("✅ %s -> %s (%s)\n", path, resume.ID, resume.DisplayName())
	return nil
}

func runReindex(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, cfg, err := loadContainer(ctx)
	if err != nil {
		return err
	}
	defer container.Close()

	if !container.VectorIndex.Enabled() {
		log.Println("⚠️  VECTOR_BACKEND is none, only extracted text will be refreshed")
		if !reindexExtract {
			log.Println("⚠️  Run with --extract to refresh the stored text")
		}
	}

	resumes, err := container.Resumes.List(ctx, models.ResumeFilter{Limit: reindexLimit})
	if err != nil {
		return err
	}
	log.Printf("🔄 Reindexing %d résumés\n", len(resumes))

	var sum summary
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Worker.Concurrency, 1))

	for _, resume := range resumes {
		g.Go(func() error {
			sum.record(resume.ID.String(), reindexResume(gctx, container.Resumes, container.Indexer, resume.ID, reindexExtract))
			return nil
		})
	}
	_ = g.Wait()

	return sum.report("reindexed")
}

func reindexResume(ctx context.Context, resumes repositories.ResumeRepository, indexer services.Indexer, id uuid.UUID, extract bool) error {
	if err := resumes.ResetIndexing(ctx, id, extract); err != nil {
		return err
	}
	return indexer.IndexResume(ctx, id)
}
