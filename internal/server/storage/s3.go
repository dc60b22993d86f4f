package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/indexdothtml/yt-backend/internal/common"
	"github.com/indexdothtml/yt-backend/internal/filex"
	sc "github.com/indexdothtml/yt-backend/internal/server/config"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in)
	}
)

// S3Gateway stores profile images in an S3-compatible bucket.
type S3Gateway struct {
	config *sc.Config
	client *s3.Client
}

// NewS3Gateway builds a gateway bound to the configured bucket.
func NewS3Gateway(cfg *sc.Config) (*S3Gateway, error) {
	awsCfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,     // MINIO_ROOT_USER
			cfg.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Gateway{config: cfg, client: client}, nil
}

// imageStorageKey spreads uploads by date and keeps the original extension
// so content types survive a round trip.
func imageStorageKey(localPath string) string {
	d := time.Now()
	return fmt.Sprintf("users/images/%d/%d/%d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), filepath.Ext(localPath))
}

// Upload streams the staged file into the bucket and returns its public
// URL. The staged file is removed after the attempt no matter what.
func (g *S3Gateway) Upload(ctx context.Context, localPath string) (*UploadResult, error) {
	defer func() {
		_ = filex.RemoveIfExists(localPath)
	}()

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open staged file: %v", common.ErrorUpload, err)
	}
	defer f.Close()

	key := imageStorageKey(localPath)
	bucket := g.config.S3Bucket
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := putObject(g.client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        f,
		ContentType: &contentType,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorUpload, err)
	}

	return &UploadResult{Key: key, URL: g.publicURL(key)}, nil
}

// Remove deletes a stored object by key.
func (g *S3Gateway) Remove(ctx context.Context, key string) error {
	bucket := g.config.S3Bucket
	if _, err := deleteObject(g.client, ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (g *S3Gateway) publicURL(key string) string {
	base := strings.TrimRight(g.config.S3PublicBaseURL, "/")
	return base + "/" + g.config.S3Bucket + "/" + key
}

var _ Gateway = (*S3Gateway)(nil)
