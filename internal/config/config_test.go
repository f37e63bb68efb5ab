package config

import "testing"

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-3-small",
		},
		Generation: GenerationConfig{
			Model: "gpt-4o-mini",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_MissingModels(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding model")
	}

	cfg = validConfig()
	cfg.Generation.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing generation model")
	}
}

func TestValidate_BadTimeZone(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.TimeZone = "Mars/Olympus_Mons"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown time zone")
	}
}

func TestValidate_ArtifactDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Artifact.Driver = "ftp"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown artifact driver")
	}

	cfg = validConfig()
	cfg.Artifact.Driver = "s3"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for s3 driver without endpoint and bucket")
	}

	cfg.Artifact.S3.Endpoint = "minio:9000"
	cfg.Artifact.S3.Bucket = "permitnav"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error for configured s3 driver: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Retrieval.CorpusPath != "data/permits.json" {
		t.Errorf("expected corpus path data/permits.json, got %q", cfg.Retrieval.CorpusPath)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MaxQuestionLen != 500 {
		t.Errorf("expected MaxQuestionLen=500, got %d", cfg.Retrieval.MaxQuestionLen)
	}
	if cfg.Retrieval.DailyCeiling != 200 {
		t.Errorf("expected DailyCeiling=200, got %d", cfg.Retrieval.DailyCeiling)
	}
	if cfg.Retrieval.TimeZone != "America/New_York" {
		t.Errorf("expected TimeZone=America/New_York, got %q", cfg.Retrieval.TimeZone)
	}
	if cfg.Retry.Attempts != 3 {
		t.Errorf("expected Attempts=3, got %d", cfg.Retry.Attempts)
	}
	if cfg.Artifact.Driver != "local" {
		t.Errorf("expected Driver=local, got %q", cfg.Artifact.Driver)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("expected embedding provider openai, got %q", cfg.Embedding.Provider)
	}
	if cfg.Generation.Provider != "openai" {
		t.Errorf("expected generation provider openai, got %q", cfg.Generation.Provider)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Retrieval: RetrievalConfig{
			TopK:         3,
			DailyCeiling: 50,
			TimeZone:     "UTC",
		},
		Embedding:  EmbeddingConfig{Provider: "nebius"},
		Generation: GenerationConfig{Provider: "openai"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.DailyCeiling != 50 {
		t.Errorf("expected DailyCeiling=50, got %d", cfg.Retrieval.DailyCeiling)
	}
	if cfg.Retrieval.TimeZone != "UTC" {
		t.Errorf("expected TimeZone=UTC, got %q", cfg.Retrieval.TimeZone)
	}
	if cfg.Generation.Provider != "openai" {
		t.Errorf("expected generation provider openai, got %q", cfg.Generation.Provider)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PERMITNAV_TEST_KEY", "secret")

	in := []byte("api_key: ${PERMITNAV_TEST_KEY}\nmodel: ${PERMITNAV_TEST_MODEL:-gpt-4o-mini}\n")
	out := string(expandEnvVars(in))

	if out != "api_key: secret\nmodel: gpt-4o-mini\n" {
		t.Errorf("unexpected expansion:\n%s", out)
	}
}

func TestExpandEnvVars_SetOverridesDefault(t *testing.T) {
	t.Setenv("PERMITNAV_TEST_MODEL", "gpt-4o")

	out := string(expandEnvVars([]byte("model: ${PERMITNAV_TEST_MODEL:-gpt-4o-mini}")))
	if out != "model: gpt-4o" {
		t.Errorf("unexpected expansion: %s", out)
	}
}
