// Package s3store hosts identity reference assets in S3 and hands out
// presigned GET URLs that the media provider can fetch.
package s3store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"shotline/internal/retry"
	"shotline/internal/services"
)

const providerName = "s3"

// Config selects the bucket and key layout.
type Config struct {
	Bucket     string
	Region     string
	Prefix     string
	Endpoint   string
	PresignTTL time.Duration
}

// Uploader stores files under content-addressed keys.
type Uploader struct {
	cfg      Config
	client   *s3.S3
	uploader *s3manager.Uploader
	policy   *retry.Policy
}

// New builds an uploader from the default AWS credential chain.
func New(cfg Config, policy *retry.Policy) (*Uploader, error) {
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	if cfg.Bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "s3 uploader", "bucket required", nil)
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = time.Hour
	}
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "s3 uploader", "create session", err)
	}
	if policy == nil {
		policy = retry.New()
	}
	client := s3.New(sess)
	return &Uploader{
		cfg:      cfg,
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
		policy:   policy,
	}, nil
}

// Key returns the object key for a file's contents.
func (u *Uploader) Key(localPath string, data []byte) string {
	sum := sha256.Sum256(data)
	name := filepath.Base(localPath)
	return path.Join(u.cfg.Prefix, hex.EncodeToString(sum[:])[:16], name)
}

// Upload stores localPath (skipping the put when an identical object already
// exists) and returns a presigned GET URL.
func (u *Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrMissingInput, "", "s3 upload", "read "+localPath, err)
	}
	key := u.Key(localPath, data)

	exists, err := u.exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		err = u.policy.Do(ctx, providerName, "upload", func(ctx context.Context) error {
			_, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
				Bucket:      aws.String(u.cfg.Bucket),
				Key:         aws.String(key),
				Body:        bytes.NewReader(data),
				ContentType: aws.String(http.DetectContentType(data)),
			})
			return classify(err)
		})
		if err != nil {
			return "", err
		}
	}
	return u.Presign(key)
}

// Presign returns a time-limited GET URL for key.
func (u *Uploader) Presign(key string) (string, error) {
	req, _ := u.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(u.cfg.PresignTTL)
	if err != nil {
		return "", fmt.Errorf("s3 presign %s: %w", key, err)
	}
	return url, nil
}

func (u *Uploader) exists(ctx context.Context, key string) (bool, error) {
	found := false
	err := u.policy.Do(ctx, providerName, "head", func(ctx context.Context) error {
		_, err := u.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(u.cfg.Bucket),
			Key:    aws.String(key),
		})
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == "NotFound" || aerr.Code() == s3.ErrCodeNoSuchKey) {
			return nil
		}
		if err != nil {
			return classify(err)
		}
		found = true
		return nil
	})
	return found, err
}

// requestFailure marks SDK failures for the retry policy.
type requestFailure struct {
	err       error
	retryable bool
}

func (e *requestFailure) Error() string     { return e.err.Error() }
func (e *requestFailure) Unwrap() error     { return e.err }
func (e *requestFailure) IsRetryable() bool { return e.retryable }

func classify(err error) error {
	if err == nil {
		return nil
	}
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		code := reqErr.StatusCode()
		return &requestFailure{err: err, retryable: code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError}
	}
	return &requestFailure{err: err, retryable: true}
}
