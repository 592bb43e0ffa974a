package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// UploadResult is what callers get back after a successful put.
type UploadResult struct {
	Key       string `json:"key"`
	PublicURL string `json:"public_url"`
}

// Uploader writes user documents to S3-compatible object storage under
// {document_type}/{user_id}/{generated_filename}.
type Uploader struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewUploader(endpoint, accessKey, secretKey, bucket, publicURL string, useSSL bool) (*Uploader, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + endpoint + "/" + bucket
	}
	return &Uploader{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (u *Uploader) Upload(ctx context.Context, documentType string, userID uuid.UUID, filename, contentType string, data []byte) (*UploadResult, error) {
	ext := path.Ext(filename)
	key := fmt.Sprintf("%s/%s/%s%s", documentType, userID, uuid.NewString(), ext)

	_, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return &UploadResult{
		Key:       key,
		PublicURL: u.publicURL + "/" + key,
	}, nil
}

func (u *Uploader) Delete(ctx context.Context, key string) error {
	return u.client.RemoveObject(ctx, u.bucket, key, minio.RemoveObjectOptions{})
}
