package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/fjstoneservices/site-api/pkg/logging"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	GetPublicAccessBlock(ctx context.Context, params *s3.GetPublicAccessBlockInput, optFns ...func(*s3.Options)) (*s3.GetPublicAccessBlockOutput, error)
}

// Presigner is the subset of s3.PresignClient used for download links.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store keeps objects in a private S3 bucket. No ACL is ever set on
// uploads, so objects inherit the bucket's private posture.
type S3Store struct {
	bucket    string
	client    S3API
	presigner Presigner
	logger    *logging.Logger
}

// NewS3Store creates an S3-backed object store.
func NewS3Store(client S3API, presigner Presigner, bucket string, logger *logging.Logger) *S3Store {
	if client == nil || presigner == nil {
		panic("storage: s3 client and presigner required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Store{bucket: bucket, client: client, presigner: presigner, logger: logger}
}

// Put uploads with If-None-Match so an existing key is never replaced.
func (s *S3Store) Put(ctx context.Context, in PutObjectInput) error {
	if err := ValidatePath(in.Path); err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(in.Path),
		Body:        in.Body,
		ContentType: aws.String(in.ContentType),
		IfNoneMatch: aws.String("*"),
	}
	if in.Size > 0 {
		input.ContentLength = aws.Int64(in.Size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		if isConditionalWriteConflict(err) {
			return ErrObjectExists
		}
		return fmt.Errorf("storage: s3 put %s: %w", in.Path, err)
	}
	return nil
}

// SignedURL presigns a GET for objectPath.
func (s *S3Store) SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error) {
	if err := ValidatePath(objectPath); err != nil {
		return "", err
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("storage: s3 presign %s: %w", objectPath, err)
	}
	return req.URL, nil
}

// Delete removes objectPath. Missing objects are not an error.
func (s *S3Store) Delete(ctx context.Context, objectPath string) error {
	if err := ValidatePath(objectPath); err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	}); err != nil {
		return fmt.Errorf("storage: s3 delete %s: %w", objectPath, err)
	}
	return nil
}

// VerifyPrivate checks that every public access block flag is on for the bucket.
func (s *S3Store) VerifyPrivate(ctx context.Context) error {
	out, err := s.client.GetPublicAccessBlock(ctx, &s3.GetPublicAccessBlockInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("storage: read public access block for %s: %w", s.bucket, err)
	}
	cfg := out.PublicAccessBlockConfiguration
	if cfg == nil ||
		!aws.ToBool(cfg.BlockPublicAcls) ||
		!aws.ToBool(cfg.IgnorePublicAcls) ||
		!aws.ToBool(cfg.BlockPublicPolicy) ||
		!aws.ToBool(cfg.RestrictPublicBuckets) {
		return fmt.Errorf("%w: %s", ErrPublicBucket, s.bucket)
	}
	s.logger.Info("upload bucket is private", "bucket", s.bucket)
	return nil
}

func isConditionalWriteConflict(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}
