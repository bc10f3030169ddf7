package aws_s3

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/IliaW/util-cli/config"
	"github.com/IliaW/util-cli/internal/model"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func testReport() *model.CrawlReport {
	return &model.CrawlReport{
		Summary: model.CrawlSummary{
			CrawlSettings: model.CrawlSettings{SeedURL: "http://example.com/"},
			Total:         2,
			Successful:    2,
			StartedAt:     time.Unix(1700000000, 0),
		},
		Pages: []model.PageResult{{URL: "http://example.com/", Success: true}},
	}
}

func TestReportKey(t *testing.T) {
	key := ReportKey("crawl-reports", testReport())

	parts := strings.Split(key, "/")
	require.Len(t, parts, 4)
	assert.Equal(t, "crawl-reports", parts[0])
	assert.Len(t, parts[1], 64)
	assert.Equal(t, "1700000000", parts[2])
	assert.Equal(t, "report.json", parts[3])
}

func TestWriteReport(t *testing.T) {
	putter := &fakePutter{}
	cfg := &config.S3Config{BucketName: "reports", Region: "eu-west-1", KeyPrefix: "crawl-reports"}
	bc := newBucketClient(putter, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	link, err := bc.WriteReport(context.Background(), testReport())
	require.NoError(t, err)

	assert.Equal(t, "reports", *putter.input.Bucket)
	assert.Equal(t, "https://reports.s3.eu-west-1.amazonaws.com/"+*putter.input.Key, link)

	var got model.CrawlReport
	require.NoError(t, jsoniter.Unmarshal(putter.body, &got))
	assert.Equal(t, 2, got.Summary.Total)
	assert.Len(t, got.Pages, 1)
}

func TestWriteReportError(t *testing.T) {
	putter := &fakePutter{err: errors.New("access denied")}
	bc := newBucketClient(putter, &config.S3Config{BucketName: "reports"}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	link, err := bc.WriteReport(context.Background(), testReport())
	assert.ErrorContains(t, err, "access denied")
	assert.Empty(t, link)
}
