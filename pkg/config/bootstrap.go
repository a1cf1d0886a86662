package config

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	dmerr "github.com/Halderpritam123/go-common/pkg/errors"
)

// Source provides environment-level bootstrap values that are not baked
// into the deployment: the shared key-value configuration object for the
// environment and the per-application IAM secret. Implementations are
// [RemoteSource] (S3-compatible object storage, used in deployed
// environments) and [FileSource] (local JSON file, used in development).
type Source interface {
	// FetchConfig returns the environment's shared configuration object
	// as a flat key-value map.
	FetchConfig(ctx context.Context) (map[string]string, error)

	// FetchApplicationSecret returns the IAM application secret for the
	// named application.
	FetchApplicationSecret(ctx context.Context, application string) (Secret, error)
}

// ObjectReader reads a single object from a bucket. It is the narrow
// slice of an object-storage client that [RemoteSource] needs; the
// production implementation wraps a minio client, and tests supply fakes.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// RemoteConfig holds the connection settings for the bootstrap object store.
type RemoteConfig struct {
	// Endpoint is the object storage endpoint (host:port, no scheme).
	// Environment variable: BOOTSTRAP_ENDPOINT
	Endpoint string `json:"endpoint" env:"BOOTSTRAP_ENDPOINT" required:"true"`

	// AccessKey authenticates against the object store.
	// Environment variable: BOOTSTRAP_ACCESS_KEY
	AccessKey string `json:"access_key" env:"BOOTSTRAP_ACCESS_KEY" required:"true"`

	// SecretKey authenticates against the object store.
	// Environment variable: BOOTSTRAP_SECRET_KEY
	SecretKey Secret `json:"-" env:"BOOTSTRAP_SECRET_KEY" required:"true"`

	// Bucket is the bucket holding the environment configuration objects.
	// Environment variable: BOOTSTRAP_BUCKET
	Bucket string `json:"bucket" env:"BOOTSTRAP_BUCKET" envDefault:"platform-config"`

	// Environment selects the object prefix (e.g. "dev", "staging",
	// "production").
	// Environment variable: ENVIRONMENT
	Environment string `json:"environment" env:"ENVIRONMENT" envDefault:"dev"`

	// UseSSL enables TLS for the object store connection.
	// Environment variable: BOOTSTRAP_USE_SSL
	UseSSL bool `json:"use_ssl" env:"BOOTSTRAP_USE_SSL" envDefault:"true"`
}

// configObjectName is the object (under the environment prefix) holding the
// shared key-value configuration for all services in an environment.
const configObjectName = "go-config"

// applicationSecretPrefix is the object prefix (under the environment
// prefix) holding per-application IAM secrets.
const applicationSecretPrefix = "iam/v2/application"

// RemoteSource fetches bootstrap configuration from S3-compatible object
// storage. Objects are JSON documents laid out as
//
//	<environment>/go-config                      shared config map
//	<environment>/iam/v2/application/<app>       {"secret": "..."}
//
// Create one with [NewRemoteSource] for production use, or
// [NewRemoteSourceFromReader] to inject a fake reader in tests.
type RemoteSource struct {
	reader ObjectReader
	cfg    RemoteConfig
}

// minioReader adapts a minio client to the [ObjectReader] interface.
type minioReader struct {
	client *minio.Client
}

func (r *minioReader) ReadObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := r.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

// NewRemoteSource creates a RemoteSource backed by an S3-compatible object
// store. It validates the configuration and constructs the underlying
// client; connectivity is verified lazily on the first fetch.
//
// Error codes returned:
//   - [dmerr.CodeInternalConfiguration]: invalid or incomplete configuration
func NewRemoteSource(cfg RemoteConfig) (*RemoteSource, error) {
	if cfg.Endpoint == "" {
		return nil, dmerr.Configuration("bootstrap: endpoint must not be empty")
	}
	if cfg.AccessKey == "" || cfg.SecretKey.Value() == "" {
		return nil, dmerr.Configuration("bootstrap: object store credentials must not be empty")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "platform-config"
	}
	if cfg.Environment == "" {
		cfg.Environment = "dev"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey.Value(), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, dmerr.Wrap(err, dmerr.CodeInternalConfiguration,
			"bootstrap: failed to create object store client")
	}

	return &RemoteSource{
		reader: &minioReader{client: client},
		cfg:    cfg,
	}, nil
}

// NewRemoteSourceFromReader creates a RemoteSource with a pre-existing
// [ObjectReader]. This constructor is intended for testing with fake readers.
func NewRemoteSourceFromReader(reader ObjectReader, cfg RemoteConfig) *RemoteSource {
	if cfg.Bucket == "" {
		cfg.Bucket = "platform-config"
	}
	if cfg.Environment == "" {
		cfg.Environment = "dev"
	}
	return &RemoteSource{reader: reader, cfg: cfg}
}

// FetchConfig downloads and parses the environment's shared configuration
// object. The object must be a flat JSON map of string keys to string values.
//
// Error codes returned:
//   - [dmerr.CodeUnavailableDependency]: object store unreachable or object missing
//   - [dmerr.CodeInternalConfiguration]: object is not valid JSON
func (s *RemoteSource) FetchConfig(ctx context.Context) (map[string]string, error) {
	key := path.Join(s.cfg.Environment, configObjectName)

	data, err := s.reader.ReadObject(ctx, s.cfg.Bucket, key)
	if err != nil {
		return nil, dmerr.Wrapf(err, dmerr.CodeUnavailableDependency,
			"bootstrap: failed to fetch config object %q", key)
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, dmerr.Wrapf(err, dmerr.CodeInternalConfiguration,
			"bootstrap: config object %q is not a valid JSON map", key)
	}
	return values, nil
}

// FetchApplicationSecret downloads the IAM application secret for the named
// application. The object must be a JSON document with a "secret" field.
//
// Error codes returned:
//   - [dmerr.CodeValidation]: application name is empty
//   - [dmerr.CodeUnavailableDependency]: object store unreachable or object missing
//   - [dmerr.CodeInternalConfiguration]: object malformed or secret empty
func (s *RemoteSource) FetchApplicationSecret(ctx context.Context, application string) (Secret, error) {
	if application == "" {
		return "", dmerr.Validation("bootstrap: application name must not be empty")
	}
	key := path.Join(s.cfg.Environment, applicationSecretPrefix, application)

	data, err := s.reader.ReadObject(ctx, s.cfg.Bucket, key)
	if err != nil {
		return "", dmerr.Wrapf(err, dmerr.CodeUnavailableDependency,
			"bootstrap: failed to fetch application secret %q", key)
	}

	var payload struct {
		Secret string `json:"secret"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", dmerr.Wrapf(err, dmerr.CodeInternalConfiguration,
			"bootstrap: application secret object %q is not valid JSON", key)
	}
	if payload.Secret == "" {
		return "", dmerr.Configurationf(
			"bootstrap: application secret object %q has no secret field", key)
	}
	return Secret(payload.Secret), nil
}

// FileSource provides bootstrap configuration from a local JSON file for
// development environments. The file is a JSON object; string values become
// config entries, and the application secret is read from the "secret" key.
type FileSource struct {
	// Path is the JSON file location.
	Path string
}

// FetchConfig reads and parses the local configuration file. Non-string
// values are ignored.
func (s *FileSource) FetchConfig(ctx context.Context) (map[string]string, error) {
	raw, err := s.read()
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if str, ok := v.(string); ok {
			values[k] = str
		}
	}
	return values, nil
}

// FetchApplicationSecret returns the "secret" entry of the local
// configuration file. The application parameter is accepted for interface
// compatibility; a development file holds a single application's secret.
func (s *FileSource) FetchApplicationSecret(ctx context.Context, application string) (Secret, error) {
	raw, err := s.read()
	if err != nil {
		return "", err
	}

	secret, ok := raw["secret"].(string)
	if !ok || secret == "" {
		return "", dmerr.Configurationf(
			"bootstrap: file %q has no secret entry", s.Path)
	}
	return Secret(secret), nil
}

func (s *FileSource) read() (map[string]any, error) {
	if strings.Contains(s.Path, "..") {
		return nil, dmerr.Configuration(
			"bootstrap: file path must not contain directory traversal (..) sequences")
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, dmerr.Wrapf(err, dmerr.CodeInternalConfiguration,
			"bootstrap: failed to read file %q", s.Path)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, dmerr.Wrapf(err, dmerr.CodeInternalConfiguration,
			"bootstrap: file %q is not a valid JSON object", s.Path)
	}
	return raw, nil
}
