// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"context"
	"io"

	"seqbank-go/internal/config"
	"seqbank-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore 是上传子系统需要的最小对象存储能力：
// 提交成功的清单文件会归档到这里。
type ObjectStore interface {
	Put(ctx context.Context, objectName string, reader io.Reader, size int64) error
}

// MinioStore 是 ObjectStore 的 MinIO 实现。
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore 初始化 MinIO 客户端并确保指定的存储桶存在。
func NewMinioStore(cfg config.MinIOConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	log.Info("MinIO 客户端初始化成功")

	// 检查存储桶是否存在，如果不存在则创建
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
		log.Infof("存储桶 '%s' 创建成功", cfg.BucketName)
	}

	return &MinioStore{client: client, bucket: cfg.BucketName}, nil
}

// Put 将一个对象写入存储桶。
func (s *MinioStore) Put(ctx context.Context, objectName string, reader io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{})
	return err
}
