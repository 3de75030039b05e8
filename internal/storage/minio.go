// Package storage archives raw submission payloads to MinIO. The archive is
// optional: when the client is not configured the service keeps running and
// payloads are only persisted in the database.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var Client *minio.Client
var BucketName string

func Init() error {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "minio:9000"
	}

	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	if accessKey == "" || secretKey == "" {
		return fmt.Errorf("MINIO_ACCESS_KEY / MINIO_SECRET_KEY not configured")
	}

	BucketName = os.Getenv("MINIO_BUCKET")
	if BucketName == "" {
		BucketName = "invoices"
	}

	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	var err error
	Client, err = minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	// Verify bucket exists
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := Client.BucketExists(ctx, BucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", BucketName)
	}

	return nil
}

// ArchiveRawSubmission stores the raw payload JSON under the record id.
// Object key layout: raw/<yyyy>/<mm>/<id>.json
func ArchiveRawSubmission(ctx context.Context, id string, rawJSON []byte) (string, error) {
	if Client == nil {
		return "", fmt.Errorf("storage not initialized")
	}

	key := fmt.Sprintf("raw/%s/%s.json", time.Now().Format("2006/01"), id)
	_, err := Client.PutObject(ctx, BucketName, key,
		bytes.NewReader(rawJSON), int64(len(rawJSON)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("failed to archive submission %s: %w", id, err)
	}
	return key, nil
}

// GetRawObject fetches an archived payload by object key.
func GetRawObject(ctx context.Context, key string) ([]byte, error) {
	if Client == nil {
		return nil, fmt.Errorf("storage not initialized")
	}
	obj, err := Client.GetObject(ctx, BucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}
