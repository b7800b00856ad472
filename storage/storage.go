// Package storage fetches model artifacts from local disk or from an S3
// compatible bucket (Cloudflare R2 in production).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const s3Scheme = "s3://"

// Limit on concurrent artifact downloads.
const maxConcurrentFetches = 2

// ObjectGetter is the part of *s3.Client the fetcher needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// R2Options configures the bucket client.
type R2Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewR2Client builds an S3 client pointed at an R2 (or any S3 compatible)
// endpoint. With no static keys the default AWS credential chain is used.
func NewR2Client(ctx context.Context, opts R2Options) (*s3.Client, error) {
	region := opts.Region
	if region == "" {
		region = "auto"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if opts.AccessKey != "" || opts.SecretKey != "" {
		if opts.AccessKey == "" || opts.SecretKey == "" {
			return nil, errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must both be set")
		}
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Fetcher reads artifacts by location: "s3://bucket/key" or a file path.
type Fetcher struct {
	objects ObjectGetter
	log     *zap.Logger
}

// NewFetcher accepts a nil getter when every location is local.
func NewFetcher(objects ObjectGetter, log *zap.Logger) *Fetcher {
	return &Fetcher{objects: objects, log: log}
}

// IsRemote reports whether location points into a bucket.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

func parseS3(location string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(location, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 location %q, want s3://bucket/key", location)
	}
	return bucket, key, nil
}

func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if !IsRemote(location) {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", location, err)
		}
		return data, nil
	}

	if f.objects == nil {
		return nil, fmt.Errorf("no bucket client configured for %s", location)
	}
	bucket, key, err := parseS3(location)
	if err != nil {
		return nil, err
	}

	out, err := f.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", location, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	return data, nil
}

// FetchAll fetches every location concurrently. Results keep the order of
// locations; the first error wins.
func (f *Fetcher) FetchAll(ctx context.Context, locations ...string) ([][]byte, error) {
	start := time.Now()
	results := make([][]byte, len(locations))

	sem := make(chan struct{}, maxConcurrentFetches)
	errChan := make(chan error, len(locations))
	var wg sync.WaitGroup

	for idx, location := range locations {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			data, err := f.Fetch(ctx, location)
			if err != nil {
				errChan <- err
				return
			}
			results[idx] = data
			f.log.Debug("artifact fetched", zap.String("location", location), zap.Int("bytes", len(data)))
		}()
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	f.log.Info("artifacts loaded", zap.Int("count", len(locations)), zap.Duration("took", time.Since(start)))
	return results, nil
}
