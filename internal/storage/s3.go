// Package storage reads and writes submission files on local disk or in
// S3, chosen by the path: s3://bucket/key goes to S3, anything else is a
// local file.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectClient defines the object store operations the Store needs.
type ObjectClient interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, data []byte) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
}

// S3Adapter adapts the AWS S3 client to ObjectClient.
type S3Adapter struct {
	client *s3.Client
}

// NewS3Adapter loads the default AWS credential chain for region.
func NewS3Adapter(ctx context.Context, region string) (*S3Adapter, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Adapter{client: s3.NewFromConfig(cfg)}, nil
}

func (a *S3Adapter) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	output, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	defer output.Body.Close()
	return io.ReadAll(output.Body)
}

func (a *S3Adapter) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	return err
}

func (a *S3Adapter) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	input := &s3.ListObjectsV2Input{
		Bucket: &bucket,
		Prefix: &prefix,
	}
	for {
		output, err := a.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, obj := range output.Contents {
			keys = append(keys, *obj.Key)
		}
		if output.IsTruncated == nil || !*output.IsTruncated {
			break
		}
		input.ContinuationToken = output.NextContinuationToken
	}
	return keys, nil
}
