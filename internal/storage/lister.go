package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Object is one stored object under a recording prefix, as reported by the
// storage listing.
type Object struct {
	Key          string
	LastModified time.Time
	SizeBytes    int64
}

// Lister abstracts the object-listing side of the storage backend so callers
// can be tested against fakes.
type Lister interface {
	// List returns all objects under prefix in bucket. Order is whatever the
	// backend returns; callers sort as needed.
	List(ctx context.Context, bucket, prefix string) ([]Object, error)
}

// S3Lister lists objects with ListObjectsV2, following continuation tokens so
// prefixes holding more than one page of clips are fully enumerated.
type S3Lister struct {
	client s3.ListObjectsV2APIClient
}

// NewS3Lister returns a Lister backed by the given S3 client.
func NewS3Lister(client s3.ListObjectsV2APIClient) *S3Lister {
	return &S3Lister{client: client}
}

// List implements Lister.
func (l *S3Lister) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var objects []Object

	paginator := s3.NewListObjectsV2Paginator(l.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			o := Object{
				Key:       aws.ToString(obj.Key),
				SizeBytes: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			objects = append(objects, o)
		}
	}

	return objects, nil
}
