package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store writes through the AWS SDK. Payloads are sent unsigned so the body
// streams without being read twice, which requires a known length.
type S3Store struct {
	client *s3.Client
	bucket string
}

func newS3Store(ctx context.Context, t Target) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(t.region()),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			t.AccessKey,
			t.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load aws config: %w", err)
	}

	base, err := t.baseURL()
	if err != nil {
		return nil, err
	}
	amazon := strings.HasSuffix(strings.ToLower(base), ".amazonaws.com")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if !amazon {
			o.BaseEndpoint = aws.String(base)
		}
		o.UsePathStyle = t.pathStyle(!amazon)
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return &S3Store{client: client, bucket: t.bucket()}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if size < 0 {
		return ErrLengthRequired
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	}, s3.WithAPIOptions(v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware))
	return classify("put object", err)
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return nil
	}
	return classify("delete object", err)
}
