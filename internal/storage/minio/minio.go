// Package minio backs the upload pipeline with a self-hosted bucket for
// deployments that do not use the hosted CDN.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"greenlens/internal/models"
	"greenlens/internal/storage"
)

type Client struct {
	client *minio.Client
	bucket string
}

// NewClient creates a new Minio-backed storage client and ensures the
// bucket exists.
func NewClient(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Client, error) {
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	client := &Client{client: minioClient, bucket: bucket}
	if err := client.ensureBucketExists(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket %s exists: %w", bucket, err)
	}

	log.Printf("Minio storage initialized with bucket: %s", bucket)
	return client, nil
}

func (c *Client) ensureBucketExists(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if !exists {
		if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Printf("Created bucket: %s", c.bucket)
	}
	return nil
}

// Upload stores the file under folder/<uuid><ext> and reports transfer
// progress through the PutObject progress hook.
func (c *Client) Upload(ctx context.Context, f models.CaptureFile, folder string, onProgress storage.ProgressFunc) (storage.Reference, error) {
	ext := strings.ToLower(path.Ext(f.Filename))
	objectName := path.Join(folder, uuid.New().String()+ext)

	opts := minio.PutObjectOptions{ContentType: f.MIME}
	if onProgress != nil {
		opts.Progress = &progressCounter{total: f.Size, fn: onProgress}
	}

	info, err := c.client.PutObject(ctx, c.bucket, objectName, bytes.NewReader(f.Data), f.Size, opts)
	if err != nil {
		return storage.Reference{}, fmt.Errorf("failed to upload file: %w", err)
	}

	return storage.Reference{
		ContentID: objectName,
		RawURL:    c.objectURL(objectName),
		Format:    strings.TrimPrefix(ext, "."),
		Bytes:     info.Size,
	}, nil
}

// DisplayURL returns the path-style object URL. The self-hosted backend
// serves originals only; transformation options are ignored.
func (c *Client) DisplayURL(contentID string, _ storage.TransformOptions) string {
	return c.objectURL(contentID)
}

// Remove deletes the object from the bucket.
func (c *Client) Remove(ctx context.Context, contentID string) error {
	if err := c.client.RemoveObject(ctx, c.bucket, contentID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

func (c *Client) objectURL(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", c.client.EndpointURL(), c.bucket, objectName)
}

// progressCounter adapts the PutObject progress hook to a ProgressFunc.
// The hook hands it the byte count of each chunk sent.
type progressCounter struct {
	sent  int64
	total int64
	fn    storage.ProgressFunc
}

func (p *progressCounter) Read(b []byte) (int, error) {
	p.sent += int64(len(b))
	if p.sent > p.total {
		p.sent = p.total
	}
	p.fn(p.sent, p.total)
	return len(b), nil
}
