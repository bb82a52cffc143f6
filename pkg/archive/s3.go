package archive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the part of the S3 client the archive uses.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 reads scripts stored as objects in one bucket. Locators are key
// prefixes; "/" separates directory levels.
type S3 struct {
	client S3API
	bucket string
	match  Matcher
}

// NewS3 creates an archive over bucket.
func NewS3(client S3API, bucket string, opts ...Option) (*S3, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &S3{client: client, bucket: bucket, match: Matcher{pattern: o.pattern}}, nil
}

// Type implements Archive.
func (s *S3) Type() string { return "s3" }

// List pages through the objects under the locator prefix.
func (s *S3) List(ctx context.Context, locator string, recursive bool) ([]Resource, error) {
	prefix := strings.TrimPrefix(locator, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}
	if !recursive {
		input.Delimiter = aws.String("/")
	}

	var resources []Resource
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", s.bucket, prefix, err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			rel := strings.TrimPrefix(*obj.Key, prefix)
			if rel == "" || (!recursive && !isDirectChild(rel)) || !s.match.Match(rel) {
				continue
			}
			res := Resource{
				Name:     rel,
				Location: *obj.Key,
				Size:     aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				res.ModTime = *obj.LastModified
			}
			resources = append(resources, res)
		}
	}

	sortResources(resources)
	return resources, nil
}

// Open implements Archive.
func (s *S3) Open(ctx context.Context, res Resource) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(res.Location),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, res.Location, err)
	}
	return out.Body, nil
}

// defaultRegion is used when neither the options nor the AWS environment
// name a region.
const defaultRegion = "us-east-1"

// S3ClientOptions describes how to reach an S3-compatible endpoint.
type S3ClientOptions struct {
	// Region overrides the region from the AWS environment and shared config.
	Region       string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint     string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" validate:"omitempty,url"`
	UsePathStyle bool   `yaml:"use_path_style" json:"use_path_style"`

	// Anonymous sends unsigned requests, for public buckets.
	Anonymous bool `yaml:"anonymous" json:"anonymous"`
}

// NewS3Client builds an S3 client from the default AWS configuration chain:
// environment, shared config and credentials files, SSO, web identity and
// instance roles. Anonymous skips credential lookup altogether.
func NewS3Client(ctx context.Context, o S3ClientOptions) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if o.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(o.Region))
	}
	if o.Anonymous {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}

	return s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
		so.UsePathStyle = o.UsePathStyle
	}), nil
}
