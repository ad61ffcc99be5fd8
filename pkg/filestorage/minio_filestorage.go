package filestorage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOFileStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIOFileStorage создает клиент MinIO и бакет, если его еще нет.
func NewMinIOFileStorage(endpoint, accessKey, secretKey, bucket, publicURL string, useSSL bool) (FileStorageInterface, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось создать клиент minio: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("не удалось проверить бакет: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("не удалось создать бакет: %w", err)
		}
	}

	return &MinIOFileStorage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (s *MinIOFileStorage) Upload(file io.Reader, size int64, originalFileName string, folder string) (*UploadResult, error) {
	ext := filepath.Ext(originalFileName)
	objectName := fmt.Sprintf("%s/%s-%s%s", folder, time.Now().Format("2006-01-02"), uuid.New().String(), ext)

	_, err := s.client.PutObject(context.Background(), s.bucket, objectName, file, size, minio.PutObjectOptions{
		ContentType: contentTypeByExt(ext),
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось загрузить файл в minio: %w", err)
	}

	return &UploadResult{
		URL:      s.publicURL + "/" + objectName,
		PublicID: objectName,
	}, nil
}

// Delete удаляет объект по его PublicID. Отсутствующий объект не считается ошибкой.
func (s *MinIOFileStorage) Delete(publicID string) error {
	err := s.client.RemoveObject(context.Background(), s.bucket, publicID, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}
		return err
	}
	return nil
}

func contentTypeByExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}
