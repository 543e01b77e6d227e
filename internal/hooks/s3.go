package hooks

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/ivlev/audiogram/internal/config"
	"github.com/ivlev/audiogram/internal/log"
	"github.com/ivlev/audiogram/internal/metrics"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Deliverer uploads finished videos to <bucket>/<prefix><id>.mp4. Status
// and error events are ignored.
type S3Deliverer struct {
	client putObjectAPI
	bucket string
	prefix string
	logger zerolog.Logger
}

func NewS3Deliverer(ctx context.Context, cfg config.S3Config) (*S3Deliverer, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Deliverer(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Deliverer(client putObjectAPI, bucket, prefix string) *S3Deliverer {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Deliverer{client: client, bucket: bucket, prefix: prefix, logger: log.WithComponent("hooks")}
}

// Key is the object key of a job's video.
func (d *S3Deliverer) Key(id string) string {
	return d.prefix + path.Base(id) + ".mp4"
}

func (d *S3Deliverer) UpdateStatus(context.Context, string, Status) error { return nil }
func (d *S3Deliverer) ReportError(context.Context, string, string) error  { return nil }

func (d *S3Deliverer) Deliver(ctx context.Context, id, file string) error {
	err := d.put(ctx, id, file)
	metrics.RecordHook("s3", err)
	if err != nil {
		d.logger.Warn().Err(err).Str("job_id", id).Msg("s3 upload failed")
		return err
	}
	d.logger.Info().Str("job_id", id).Str("bucket", d.bucket).Str("key", d.Key(id)).Msg("video uploaded")
	return nil
}

func (d *S3Deliverer) put(ctx context.Context, id, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	_, err = d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(d.Key(id)),
		Body:          f,
		ContentType:   aws.String("video/mp4"),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}
	return nil
}
