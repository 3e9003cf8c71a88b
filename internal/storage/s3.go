package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/zfogg/biolink/internal/config"
	"github.com/zfogg/biolink/internal/logger"
	"github.com/zfogg/biolink/internal/metrics"
	"github.com/zfogg/biolink/internal/telemetry"
	"go.uber.org/zap"
)

// S3Uploader stores objects in an S3 bucket (or any S3-compatible endpoint).
// Uploads go through a circuit breaker so an unavailable bucket fails fast
// instead of tying up request goroutines.
type S3Uploader struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
	breaker *gobreaker.CircuitBreaker[*s3.PutObjectOutput]
}

// NewS3Uploader creates a new S3 uploader
func NewS3Uploader(ctx context.Context, cfg config.StorageConfig) (*S3Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		breaker: newUploadBreaker("s3:" + cfg.Bucket),
	}, nil
}

func newUploadBreaker(name string) *gobreaker.CircuitBreaker[*s3.PutObjectOutput] {
	return gobreaker.NewCircuitBreaker[*s3.PutObjectOutput](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.Get().StorageBreakerChanges.WithLabelValues(to.String()).Inc()
			logger.Log.Warn("Storage circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Put validates and uploads an object
func (u *S3Uploader) Put(ctx context.Context, obj Object, policy UploadPolicy) (*UploadResult, error) {
	if err := policy.Check(obj); err != nil {
		metrics.Get().StorageUploadsTotal.WithLabelValues(policy.Name, "rejected").Inc()
		return nil, err
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = ContentTypeForKey(obj.Key)
	}
	cacheControl := obj.CacheControl
	if cacheControl == "" {
		cacheControl = "private, max-age=0"
	}

	metadata := map[string]string{
		"upload-timestamp": time.Now().UTC().Format(time.RFC3339),
		"file-type":        policy.Name,
	}
	for k, v := range obj.Metadata {
		metadata[k] = v
	}

	ctx, span := telemetry.TraceObjectCall(ctx, "put_object", telemetry.ObjectCall{
		Bucket:      u.bucket,
		Key:         obj.Key,
		ContentType: contentType,
		Size:        int64(len(obj.Body)),
	})
	defer span.End()

	_, err := u.breaker.Execute(func() (*s3.PutObjectOutput, error) {
		return u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(u.bucket),
			Key:           aws.String(obj.Key),
			Body:          bytes.NewReader(obj.Body),
			ContentLength: aws.Int64(int64(len(obj.Body))),
			ContentType:   aws.String(contentType),
			CacheControl:  aws.String(cacheControl),
			Metadata:      metadata,
		})
	})
	if err != nil {
		telemetry.RecordServiceError(span, "s3", err)
		metrics.Get().StorageUploadsTotal.WithLabelValues(policy.Name, "error").Inc()
		return nil, fmt.Errorf("failed to upload %s to S3: %w", obj.Key, err)
	}

	metrics.Get().StorageUploadsTotal.WithLabelValues(policy.Name, "ok").Inc()
	metrics.Get().StorageUploadBytes.Observe(float64(len(obj.Body)))

	return &UploadResult{
		Key:    obj.Key,
		URL:    u.baseURL + "/" + obj.Key,
		Bucket: u.bucket,
		Region: u.region,
		Size:   int64(len(obj.Body)),
	}, nil
}

// Delete removes a file from S3
func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	ctx, span := telemetry.TraceObjectCall(ctx, "delete_object", telemetry.ObjectCall{
		Bucket: u.bucket,
		Key:    key,
	})
	defer span.End()

	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		telemetry.RecordServiceError(span, "s3", err)
		return fmt.Errorf("failed to delete %s from S3: %w", key, err)
	}

	return nil
}

// KeyFromURL maps a public URL back to its object key
func (u *S3Uploader) KeyFromURL(url string) (string, bool) {
	return keyFromURL(u.baseURL, url)
}

func keyFromURL(baseURL, url string) (string, bool) {
	prefix := strings.TrimSuffix(baseURL, "/") + "/"
	if baseURL == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	return key, key != ""
}

// CheckBucketAccess verifies that the bucket exists and is accessible
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}

	return nil
}
