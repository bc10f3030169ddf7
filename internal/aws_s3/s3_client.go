package aws_s3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/IliaW/util-cli/config"
	"github.com/IliaW/util-cli/internal/model"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	crd "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	jsoniter "github.com/json-iterator/go"
)

type BucketClient interface {
	WriteReport(context.Context, *model.CrawlReport) (string, error)
}

// putObjectAPI is the part of *s3.Client the bucket client uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3BucketClient struct {
	client putObjectAPI
	cfg    *config.S3Config
	log    *slog.Logger
}

func NewS3BucketClient(ctx context.Context, cfg *config.S3Config, log *slog.Logger) (*S3BucketClient, error) {
	log.Info("connecting to s3...")
	opts := []func(*awsCfg.LoadOptions) error{awsCfg.WithRegion(cfg.Region)}
	if cfg.AwsAccessKey != "" {
		opts = append(opts, awsCfg.WithCredentialsProvider(
			crd.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, "")))
	}
	if cfg.AwsBaseEndpoint != "" {
		opts = append(opts, awsCfg.WithBaseEndpoint(cfg.AwsBaseEndpoint))
	}
	s3Config, err := awsCfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	// LocalStack does not support `virtual host addressing style` that uses s3 by default.
	// For test purposes use configuration with disabled 'virtual hosted bucket addressing'.
	var s3client *s3.Client
	if cfg.AwsAccessKey == "test" {
		log.Warn("test configuration for s3")
		s3client = s3.NewFromConfig(s3Config, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	} else {
		s3client = s3.NewFromConfig(s3Config)
	}
	log.Info("connected to s3")

	return newBucketClient(s3client, cfg, log), nil
}

func newBucketClient(client putObjectAPI, cfg *config.S3Config, log *slog.Logger) *S3BucketClient {
	return &S3BucketClient{client: client, cfg: cfg, log: log}
}

// WriteReport uploads the report and returns the object link.
func (bc *S3BucketClient) WriteReport(ctx context.Context, report *model.CrawlReport) (string, error) {
	s3Key := ReportKey(bc.cfg.KeyPrefix, report)
	body, err := jsoniter.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshaling failed: %w", err)
	}

	_, err = bc.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bc.cfg.BucketName,
		Key:         &s3Key,
		Body:        bytes.NewReader(body),
		ContentType: ptr("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save report to s3: %w", err)
	}
	bc.log.Debug("report saved to s3.", slog.String("key", s3Key))

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bc.cfg.BucketName, bc.cfg.Region, s3Key), nil
}

// ReportKey is <prefix>/<sha256 of the seed url>/<crawl start unix time>/report.json.
func ReportKey(prefix string, report *model.CrawlReport) string {
	hash := sha256.New()
	hash.Write([]byte(report.Summary.SeedURL))
	hashUrl := hex.EncodeToString(hash.Sum(nil))

	return fmt.Sprintf("%s/%s/%d/%s", prefix, hashUrl, report.Summary.StartedAt.Unix(), "report.json")
}

func ptr[T any](v T) *T {
	return &v
}
