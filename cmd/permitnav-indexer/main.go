// Command permitnav-indexer builds and verifies the vector index artifact.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/district-tools/permitnav/internal/chunker"
	"github.com/district-tools/permitnav/internal/config"
	"github.com/district-tools/permitnav/internal/corpus"
	"github.com/district-tools/permitnav/internal/index"
	logpkg "github.com/district-tools/permitnav/internal/logger"
	"github.com/district-tools/permitnav/internal/repository/artifact"
	"github.com/district-tools/permitnav/internal/retry"
	openaiTransport "github.com/district-tools/permitnav/internal/transport/openai"
	indexeruc "github.com/district-tools/permitnav/internal/usecase/indexer"
	"github.com/district-tools/permitnav/internal/version"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:     "permitnav-indexer",
		Short:   "Build and verify the permit vector index",
		Version: version.Version,
	}
	root.AddCommand(buildCmd())
	root.AddCommand(verifyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildCmd() *cobra.Command {
	var (
		corpusPath string
		outDir     string
		upload     bool
		batchSize  int
		maxWords   int
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Chunk the corpus, embed every passage, and publish the artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if corpusPath == "" {
				corpusPath = cfg.Retrieval.CorpusPath
			}
			c, err := corpus.Load(corpusPath)
			if err != nil {
				return fmt.Errorf("load corpus: %w", err)
			}
			logger.Info("Corpus loaded",
				zap.String("path", corpusPath),
				zap.Int("permits", len(c.Records())),
				zap.String("version", c.Version()),
			)

			store, err := artifactStore(cfg, outDir, upload)
			if err != nil {
				return err
			}

			embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
				APIKey:     cfg.Embedding.APIKey,
				BaseURL:    cfg.Embedding.BaseURL,
				Model:      cfg.Embedding.Model,
				Dimensions: cfg.Embedding.Dimensions,
				Provider:   cfg.Embedding.Provider,
				Logger:     logger,
			})

			svc := indexeruc.New(chunker.New(maxWords), embedder, store, logger).
				WithBatchSize(batchSize).
				WithRetryPolicy(retry.Policy{
					Attempts:       cfg.Retry.Attempts,
					InitialBackoff: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
					MaxBackoff:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
					Multiplier:     2,
				})

			idx, err := svc.Build(cmd.Context(), c)
			if err != nil {
				return fmt.Errorf("build index: %w", err)
			}

			cmd.Printf("Built index: %d passages, %d dimensions, corpus version %s\n",
				idx.Size(), idx.Dimensions(), idx.CorpusVersion())
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusPath, "corpus", "", "path to permits.json (default from config)")
	cmd.Flags().StringVar(&outDir, "out", "", "local output directory (default from config)")
	cmd.Flags().BoolVar(&upload, "upload", false, "publish to the configured object store instead of the local dir")
	cmd.Flags().IntVar(&batchSize, "batch-size", indexeruc.DefaultBatchSize, "passages per embedding request")
	cmd.Flags().IntVar(&maxWords, "max-words", chunker.DefaultMaxWords, "max words per passage")

	return cmd
}

func verifyCmd() *cobra.Command {
	var (
		dir        string
		corpusPath string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that a published artifact deserializes and matches the corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if dir == "" {
				dir = cfg.Artifact.Dir
			}
			store := artifact.NewLocal(dir)

			vectors, meta, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load artifact: %w", err)
			}
			idx, err := index.Deserialize(vectors, meta)
			if err != nil {
				return fmt.Errorf("deserialize artifact: %w", err)
			}

			cmd.Printf("Artifact OK: %d passages, %d dimensions, corpus version %s, built %s\n",
				idx.Size(), idx.Dimensions(), idx.CorpusVersion(), idx.BuiltAt().Format(time.RFC3339))

			if corpusPath == "" {
				corpusPath = cfg.Retrieval.CorpusPath
			}
			data, err := os.ReadFile(corpusPath)
			if err != nil {
				// No corpus alongside the artifact is fine for a bare check.
				return nil
			}
			if v := corpus.VersionOf(data); v != idx.CorpusVersion() {
				return fmt.Errorf("artifact version %s does not match corpus version %s", idx.CorpusVersion(), v)
			}
			cmd.Println("Corpus version matches")
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "artifact directory (default from config)")
	cmd.Flags().StringVar(&corpusPath, "corpus", "", "corpus file to check the version against")

	return cmd
}

func loadEnvironment() (config.Config, *zap.Logger, error) {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

func artifactStore(cfg config.Config, outDir string, upload bool) (artifact.Store, error) {
	if upload {
		obj, err := artifact.NewObjectStore(artifact.ObjectConfig{
			Endpoint:  cfg.Artifact.S3.Endpoint,
			AccessKey: cfg.Artifact.S3.AccessKey,
			SecretKey: cfg.Artifact.S3.SecretKey,
			UseSSL:    cfg.Artifact.S3.UseSSL,
			Bucket:    cfg.Artifact.S3.Bucket,
			Prefix:    cfg.Artifact.S3.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("create object store: %w", err)
		}
		return obj, nil
	}
	if outDir == "" {
		outDir = cfg.Artifact.Dir
	}
	return artifact.NewLocal(outDir), nil
}
