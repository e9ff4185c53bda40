// Package archive keeps an optional S3 copy of generated documents.
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/types"
)

const (
	OptimizedResumeFile = "optimized_resume.txt"
	CoverLetterFile     = "cover_letter.txt"
	textContentType     = "text/plain; charset=utf-8"
)

// Archiver stores the generated documents of a record.
type Archiver interface {
	Archive(ctx context.Context, rec *types.ApplicationRecord) ([]string, error)
}

// Noop discards everything.
type Noop struct{}

func (Noop) Archive(context.Context, *types.ApplicationRecord) ([]string, error) { return nil, nil }

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes plain-text documents under {prefix}/applications/{id}/.
type S3Archiver struct {
	client   objectPutter
	bucket   string
	prefix   string
	kmsKeyID string
}

// New returns Noop when archiving is disabled.
func New(ctx context.Context, cfg config.ArchiveConfig) (Archiver, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Archiver(client, cfg), nil
}

func newS3Archiver(client objectPutter, cfg config.ArchiveConfig) *S3Archiver {
	return &S3Archiver{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   normalizePrefix(cfg.Prefix),
		kmsKeyID: strings.TrimSpace(cfg.KMSKeyID),
	}
}

// Archive uploads whichever documents the record holds and returns their keys.
func (a *S3Archiver) Archive(ctx context.Context, rec *types.ApplicationRecord) ([]string, error) {
	if rec == nil {
		return nil, nil
	}
	docs := map[string]*string{
		OptimizedResumeFile: rec.OptimizedResume,
		CoverLetterFile:     rec.CoverLetter,
	}

	var keys []string
	for _, name := range []string{OptimizedResumeFile, CoverLetterFile} {
		body := docs[name]
		if body == nil {
			continue
		}
		key := applyPrefix(a.prefix, DocumentKey(rec.ID, name))
		if err := a.put(ctx, key, *body); err != nil {
			return keys, errors.NewIOError(errors.ErrCodeStorageFailed, "Failed to archive document", err).
				WithContext("key", key)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (a *S3Archiver) put(ctx context.Context, key, body string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(body),
		ContentType: aws.String(textContentType),
	}
	if a.kmsKeyID != "" {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(a.kmsKeyID)
	} else {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}
	if _, err := a.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 put object bucket=%s key=%s: %w", a.bucket, key, err)
	}
	return nil
}

// DocumentKey is the unprefixed object key of one generated document.
func DocumentKey(id, name string) string {
	return path.Join("applications", id, name)
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}
