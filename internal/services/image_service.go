package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/isdelr/recipehub-be/internal/apperrors"
	"github.com/isdelr/recipehub-be/internal/config"
	"github.com/isdelr/recipehub-be/internal/policy"
)

const presignExpiry = 15 * time.Minute

// ImageURLResolver turns a stored image key into a URL clients can fetch.
type ImageURLResolver interface {
	ImageURL(ctx context.Context, key string) (string, error)
}

// ImageUpload is a presigned slot a seller can PUT image bytes into.
type ImageUpload struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
}

// ImageServiceProvider defines the interface for image services.
type ImageServiceProvider interface {
	ImageURLResolver
	RequestUpload(ctx context.Context, actor *policy.Actor) (ImageUpload, error)
}

// ImageService presigns recipe image uploads and downloads against an
// S3-compatible bucket. Only the object key is stored with a recipe.
type ImageService struct {
	bucket  string
	presign *s3.PresignClient
	policy  *policy.Policy
	now     func() time.Time
}

// NewImageService creates an ImageService. When cfg has no bucket the
// service is disabled: uploads fail with ErrUnavailable and ImageURL
// returns an empty string.
func NewImageService(ctx context.Context, cfg config.S3Config, p *policy.Policy) (*ImageService, error) {
	s := &ImageService{bucket: cfg.Bucket, policy: p, now: time.Now}
	if !cfg.Enabled() {
		return s, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	s.presign = s3.NewPresignClient(client)
	return s, nil
}

// Enabled reports whether object storage is configured.
func (s *ImageService) Enabled() bool {
	return s.presign != nil
}

// RequestUpload allocates a fresh object key and returns a presigned PUT
// URL for it. Only accounts that may create recipes can upload.
func (s *ImageService) RequestUpload(ctx context.Context, actor *policy.Actor) (ImageUpload, error) {
	if err := s.policy.Authorize(actor, policy.CreateRecipe); err != nil {
		return ImageUpload{}, err
	}
	if !s.Enabled() {
		return ImageUpload{}, fmt.Errorf("image storage: %w", apperrors.ErrUnavailable)
	}

	key := s.storageKey()
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return ImageUpload{}, fmt.Errorf("failed to presign upload: %w", err)
	}
	return ImageUpload{Key: key, UploadURL: req.URL}, nil
}

// ImageURL returns a presigned GET URL for key.
func (s *ImageService) ImageURL(ctx context.Context, key string) (string, error) {
	if !s.Enabled() || key == "" {
		return "", nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return req.URL, nil
}

func (s *ImageService) storageKey() string {
	d := s.now().UTC()
	return fmt.Sprintf("recipes/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}
