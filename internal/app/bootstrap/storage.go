package bootstrap

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/fjstoneservices/site-api/internal/config"
	"github.com/fjstoneservices/site-api/internal/storage"
	"github.com/fjstoneservices/site-api/pkg/logging"
)

// ObjectStorage is the attachment store selected by STORAGE_BACKEND.
type ObjectStorage struct {
	Store   storage.ObjectStore
	Backend string
	// Download serves /files/{token}; nil when the backend signs its own links.
	Download http.Handler
	// S3 is set for the s3 backend so callers can verify the bucket posture.
	S3 *storage.S3Store
}

// BuildObjectStore wires the private attachment store. awsCfg is only read
// for the s3 backend.
func BuildObjectStore(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (*ObjectStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.StorageBackend {
	case "s3":
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if strings.TrimSpace(cfg.AWSEndpointOverride) != "" {
				o.UsePathStyle = true
			}
		})
		store := storage.NewS3Store(client, s3.NewPresignClient(client), cfg.QuoteUploadsBucket, logger)
		return &ObjectStorage{Store: store, Backend: "s3", S3: store}, nil
	case "local":
		signer := storage.NewSigner(cfg.StorageSigningSecret)
		store, err := storage.NewLocalStore(cfg.LocalStorageDir, cfg.PublicBaseURL, signer)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: local storage: %w", err)
		}
		return &ObjectStorage{
			Store:    store,
			Backend:  "local",
			Download: storage.NewDownloadHandler(store, signer, logger),
		}, nil
	case "memory":
		logger.Warn("using in-memory attachment storage; uploads are lost on restart")
		secret := cfg.StorageSigningSecret
		if strings.TrimSpace(secret) == "" {
			// Objects die with the process, so a per-process key is enough.
			secret = rand.Text()
		}
		signer := storage.NewSigner(secret)
		store := storage.NewMemoryStore().WithSignedLinks(cfg.PublicBaseURL, signer)
		return &ObjectStorage{
			Store:    store,
			Backend:  "memory",
			Download: storage.NewDownloadHandler(store, signer, logger),
		}, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown storage backend %q", cfg.StorageBackend)
	}
}

// VerifyStorage refuses to start against a bucket that is not fully
// private. Other backends have nothing to check.
func VerifyStorage(ctx context.Context, st *ObjectStorage) error {
	if st == nil || st.S3 == nil {
		return nil
	}
	return st.S3.VerifyPrivate(ctx)
}
