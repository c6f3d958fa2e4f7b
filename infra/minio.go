package infra

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"time"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/config"
)

type MinioClient struct {
	Admin       *madmin.AdminClient
	Client      *minio.Client
	Endpoint    string
	AssetBucket string
	PhotoBucket string
}

func InitMinioClient(cfg *config.EnvConfig) *MinioClient {
	endpoint := cfg.Minio.Endpoint
	if endpoint == "" {
		panic("MinIO endpoint is not configured")
	}
	rootUser := cfg.Minio.RootUser
	if rootUser == "" {
		panic("MinIO root user is not configured")
	}
	rootPassword := cfg.Minio.RootPassword
	if rootPassword == "" {
		panic("MinIO root password is not configured")
	}

	madminClient, err := madmin.New(endpoint, rootUser, rootPassword, false)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO admin client: %v", err))
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(rootUser, rootPassword, ""),
		Secure: false,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO client: %v", err))
	}

	client := &MinioClient{
		Admin:       madminClient,
		Client:      minioClient,
		Endpoint:    endpoint,
		AssetBucket: cfg.Minio.AssetBucket,
		PhotoBucket: cfg.Minio.PhotoBucket,
	}

	ctx := context.Background()
	for _, bucket := range []string{cfg.Minio.AssetBucket, cfg.Minio.PhotoBucket} {
		if err := client.ensureBucket(ctx, bucket); err != nil {
			panic(fmt.Sprintf("Failed to ensure bucket %s: %v", bucket, err))
		}
	}

	log.Println("Connected to MinIO:", endpoint)

	return client
}

func (m *MinioClient) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := m.Client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.Client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}

// PutPhoto stores one reference photo under the user's prefix and returns
// the object key.
func (m *MinioClient) PutPhoto(ctx context.Context, userID, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	objectKey := fmt.Sprintf("%s/%d-%s", userID, time.Now().UnixMilli(), fileName)
	_, err := m.Client.PutObject(ctx, m.PhotoBucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store photo %s: %w", objectKey, err)
	}
	return objectKey, nil
}

// PresignedPhotoURL returns a temporary GET URL for a stored photo.
func (m *MinioClient) PresignedPhotoURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := m.Client.PresignedGetObject(ctx, m.PhotoBucket, objectKey, expiry, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// PresignedAssetURL returns a temporary GET URL for a generated asset.
func (m *MinioClient) PresignedAssetURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := m.Client.PresignedGetObject(ctx, m.AssetBucket, objectKey, expiry, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// RemovePhoto deletes a stored reference photo.
func (m *MinioClient) RemovePhoto(ctx context.Context, objectKey string) error {
	return m.Client.RemoveObject(ctx, m.PhotoBucket, objectKey, minio.RemoveObjectOptions{})
}

// StorageHealth summarizes the object store for the dashboard.
type StorageHealth struct {
	Online  bool   `json:"online"`
	Mode    string `json:"mode"`
	Servers int    `json:"servers"`
	Buckets int    `json:"buckets"`
	Objects uint64 `json:"objects"`
}

// GetStorageHealth queries the MinIO admin API for cluster state.
func (m *MinioClient) GetStorageHealth(ctx context.Context) (*StorageHealth, error) {
	info, err := m.Admin.ServerInfo(ctx)
	if err != nil {
		return &StorageHealth{Online: false}, err
	}
	return &StorageHealth{
		Online:  true,
		Mode:    info.Mode,
		Servers: len(info.Servers),
		Buckets: int(info.Buckets.Count),
		Objects: info.Objects.Count,
	}, nil
}
