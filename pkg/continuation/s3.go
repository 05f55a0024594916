package continuation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"

	"github.com/openfga/consentsync/pkg/id"
)

// S3API is the subset of *s3.Client used by the S3 sink.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ S3API = (*s3.Client)(nil)

// S3Config locates the bucket holding checkpoints.
type S3Config struct {
	Bucket string
	Region string
	// Endpoint overrides the AWS endpoint, e.g. for MinIO.
	Endpoint  string
	Prefix    string
	PathStyle bool
}

// NewS3Client builds an S3 client from the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// S3 stores each checkpoint as one object under a prefix. Object names are ULIDs, so
// listing order is hand-off order.
type S3 struct {
	client S3API
	bucket string
	prefix string
	clock  clockwork.Clock
}

var _ SinkSource = (*S3)(nil)

func NewS3(client S3API, bucket, prefix string, clock clockwork.Clock) *S3 {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &S3{client: client, bucket: bucket, prefix: prefix, clock: clock}
}

func (s *S3) Continue(ctx context.Context, checkpoint *Checkpoint) error {
	name, err := id.NewStringFromTime(s.clock.Now())
	if err != nil {
		return err
	}
	checkpoint.ID = name

	data, err := checkpoint.Marshal()
	if err != nil {
		return err
	}

	key := s.key(name)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put checkpoint s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Next reads and deletes the oldest checkpoint under the prefix.
func (s *S3) Next(ctx context.Context) (*Checkpoint, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("list checkpoints in s3://%s/%s: %w", s.bucket, s.prefix, err)
	}
	if len(out.Contents) == 0 {
		return nil, ErrNoCheckpoint
	}

	key := aws.ToString(out.Contents[0].Key)
	checkpoint, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("delete checkpoint s3://%s/%s: %w", s.bucket, key, err)
	}

	return checkpoint, nil
}

// Get reads a named checkpoint object without deleting it.
func (s *S3) Get(ctx context.Context, key string) (*Checkpoint, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("get checkpoint s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint s3://%s/%s: %w", s.bucket, key, err)
	}
	return Unmarshal(data)
}

func (s *S3) key(name string) string {
	if s.prefix == "" {
		return name + checkpointExt
	}
	return strings.TrimSuffix(s.prefix, "/") + "/" + name + checkpointExt
}
