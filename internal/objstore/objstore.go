// Package objstore is a thin wrapper around the S3 object store used
// for the capture and archive buckets (spec.md §6). Per spec.md §1,
// the low-level object-store SDK is an external collaborator — this
// package exists only to give the capture/archive/stage engines a
// narrow, mockable surface over github.com/aws/aws-sdk-go-v2/service/s3,
// matching the handle-per-iteration lifecycle described in spec.md §5:
// "Object-store ... handles are re-created on each polling iteration to
// accommodate short-lived cloud credentials."
package objstore

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// Store is a bucket-scoped handle for put/get/delete operations.
type Store struct {
	client *s3.Client
	bucket string
}

// Open creates a new Store for bucket, using ambient AWS credentials
// (or a custom endpoint, for S3-compatible stores used in tests).
// A fresh client is intended to be created per polling iteration, per
// spec.md §5.
func Open(ctx context.Context, bucket, region, endpoint string) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{client: client, bucket: bucket}, nil
}

// Put uploads body to key, per spec.md §4.2.4 "Upload to the capture
// object store under key <namespace>/<name>.zip".
func (s *Store) Put(ctx context.Context, key string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	return errors.Wrapf(err, "putting object %s/%s", s.bucket, key)
}

// Get downloads key. The caller must Close the returned reader.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "getting object %s/%s", s.bucket, key)
	}
	return out.Body, nil
}

// Copy copies key from this store into dest under the same key, per
// spec.md §4.3 step d ("Upload the object to the archive bucket under
// the same key (copy)").
func (s *Store) Copy(ctx context.Context, key string, dest *Store) error {
	body, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	defer body.Close()
	return dest.Put(ctx, key, body)
}

// Delete removes key. Deleting an already-absent key is not an error,
// matching S3 semantics, so that redelivery-driven retries (spec.md §7)
// stay idempotent.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "deleting object %s/%s", s.bucket, key)
}
