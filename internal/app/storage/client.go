package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"hmspace/internal/pkg/logx"
)

// maxObjectSize bounds how much of an object Download will buffer.
const maxObjectSize = 4 << 20

// ErrObjectNotFound is returned when the requested key does not exist in the bucket.
var ErrObjectNotFound = errors.New("storage: object not found")

// s3Client implements StorageService against S3-compatible storage.
type s3Client struct {
	cfg        ServiceConfig
	s3Client   *s3.Client
	downloader *manager.Downloader
	logger     zerolog.Logger
}

// newS3Client initializes the S3 client using a custom configuration that supports S3-compatible endpoints.
func newS3Client(ctx context.Context, cfg ServiceConfig) (*s3Client, error) {
	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &s3Client{
		cfg:        cfg,
		s3Client:   client,
		downloader: manager.NewDownloader(client),
		logger:     logx.Component("storage"),
	}, nil
}

// Download fetches the object under key into memory.
func (c *s3Client) Download(ctx context.Context, key string) ([]byte, error) {
	meta, err := c.GetObjectMetadata(ctx, key)
	if err != nil {
		return nil, err
	}

	if size, convErr := strconv.ParseInt(meta["Content-Length"], 10, 64); convErr == nil && size > maxObjectSize {
		return nil, fmt.Errorf("storage: object %q is %d bytes, limit is %d", key, size, maxObjectSize)
	}

	buf := manager.NewWriteAtBuffer(make([]byte, 0, 64<<10))
	n, err := c.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: &c.cfg.S3BucketName,
		Key:    &key,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("S3 download failed")
		return nil, fmt.Errorf("storage: download %q: %w", key, err)
	}

	c.logger.Info().Str("key", key).Int64("bytes", n).Msg("Object downloaded.")
	return buf.Bytes(), nil
}

// GetObjectMetadata retrieves the metadata of an object.
func (c *s3Client) GetObjectMetadata(ctx context.Context, key string) (map[string]string, error) {
	resp, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &c.cfg.S3BucketName,
		Key:    &key,
	})

	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, fmt.Errorf("%w: %q", ErrObjectNotFound, key)
		}
		c.logger.Error().Err(err).Str("key", key).Msg("Failed to get S3 object metadata")
		return nil, fmt.Errorf("storage: head %q: %w", key, err)
	}

	metadata := make(map[string]string)
	if resp.ContentType != nil {
		metadata["Content-Type"] = *resp.ContentType
	}
	if resp.ContentLength != nil {
		metadata["Content-Length"] = strconv.FormatInt(*resp.ContentLength, 10)
	}

	return metadata, nil
}
