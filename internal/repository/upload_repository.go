// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"seqbank-go/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// 提交方法：仅新增、仅更新、存在则更新否则新增。
const (
	CommitMethodAdd       = "add"
	CommitMethodUpdate    = "update"
	CommitMethodAddUpdate = "add_update"
)

// SampleRecord 是从上传清单解析出的一行样本数据。
// CollectionCode 为空表示样本暂不归入任何样本集。
type SampleRecord struct {
	Code           string
	Name           string
	CollectionCode string
}

// UploadRepository 接口定义了上传会话与条目的持久化操作，
// 以及把完成的会话原子地提交为领域记录的事务。
type UploadRepository interface {
	// 会话记录
	CreateSession(session *model.UploadSession) error
	GetSessionByKey(sessionKey string) (*model.UploadSession, error)
	UpdateSession(session *model.UploadSession) error
	// DeleteSession 在同一事务中删除会话及其全部条目记录，
	// 不允许留下孤儿条目行。
	DeleteSession(sessionID uint) error

	// 条目记录
	CreateItem(item *model.UploadItem) error
	GetItem(sessionID uint, fileName string) (*model.UploadItem, error)
	UpdateItem(item *model.UploadItem) error
	DeleteItem(sessionID uint, fileName string) error
	ListItems(sessionID uint) ([]model.UploadItem, error)

	// 提交事务
	CommitSamples(records []SampleRecord, method string) (added int, updated int, err error)
	MarkCommitted(sessionID uint) error

	// 进度缓存 (Redis)，仅服务于进度展示，磁盘与数据库才是权威状态
	CacheItemProgress(ctx context.Context, sessionKey, fileName string, bytes int64) error
	GetCachedProgress(ctx context.Context, sessionKey string) (map[string]int64, error)
	DeleteProgressCache(ctx context.Context, sessionKey string) error
}

// uploadRepository 是 UploadRepository 接口的 GORM+Redis 实现。
type uploadRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewUploadRepository 创建一个新的 UploadRepository 实例。
func NewUploadRepository(db *gorm.DB, redisClient *redis.Client) UploadRepository {
	return &uploadRepository{db: db, redisClient: redisClient}
}

// progressKey 生成会话进度缓存的 Redis key。
func (r *uploadRepository) progressKey(sessionKey string) string {
	return "upload:progress:" + sessionKey
}

// CreateSession 在数据库中创建一个新的上传会话记录。
// 会话键的唯一约束冲突被分类为字段级错误，调用方据此区分
// "并发创建撞车"与其它存储故障。
func (r *uploadRepository) CreateSession(session *model.UploadSession) error {
	return classifyIntegrityError(r.db.Create(session).Error, "session_key", session.SessionKey)
}

// GetSessionByKey 根据会话键检索上传会话记录。
func (r *uploadRepository) GetSessionByKey(sessionKey string) (*model.UploadSession, error) {
	var session model.UploadSession
	err := r.db.Where("session_key = ?", sessionKey).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateSession 更新一个上传会话记录。
func (r *uploadRepository) UpdateSession(session *model.UploadSession) error {
	return r.db.Save(session).Error
}

// DeleteSession 在一个事务中删除会话记录与其所有条目记录。
func (r *uploadRepository) DeleteSession(sessionID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.UploadItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.UploadSession{}, sessionID).Error
	})
}

// CreateItem 在数据库中创建一个新的上传条目记录。
func (r *uploadRepository) CreateItem(item *model.UploadItem) error {
	return r.db.Create(item).Error
}

// GetItem 根据会话 ID 与文件名检索上传条目记录。
func (r *uploadRepository) GetItem(sessionID uint, fileName string) (*model.UploadItem, error) {
	var item model.UploadItem
	err := r.db.Where("session_id = ? AND file_name = ?", sessionID, fileName).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem 更新一个上传条目记录。
func (r *uploadRepository) UpdateItem(item *model.UploadItem) error {
	return r.db.Save(item).Error
}

// DeleteItem 删除一个上传条目记录（不存在时为幂等空操作）。
func (r *uploadRepository) DeleteItem(sessionID uint, fileName string) error {
	return r.db.Where("session_id = ? AND file_name = ?", sessionID, fileName).
		Delete(&model.UploadItem{}).Error
}

// ListItems 按文件名顺序列出会话的所有条目记录。
func (r *uploadRepository) ListItems(sessionID uint) ([]model.UploadItem, error) {
	var items []model.UploadItem
	err := r.db.Where("session_id = ?", sessionID).Order("file_name asc").Find(&items).Error
	return items, err
}

// CommitSamples 在单个事务中把解析出的样本记录写入领域表：
// 要么全部成功，要么全部回滚。唯一键冲突被分类为字段级的
// DuplicateValueError（add 语义下），其余完整性错误原样上抛。
func (r *uploadRepository) CommitSamples(records []SampleRecord, method string) (int, int, error) {
	var added, updated int

	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			collectionID, err := r.resolveCollection(tx, rec.CollectionCode)
			if err != nil {
				return err
			}

			switch method {
			case CommitMethodAdd:
				sample := model.Sample{Code: rec.Code, Name: rec.Name, CollectionID: collectionID}
				if err := tx.Create(&sample).Error; err != nil {
					return classifyIntegrityError(err, "code", rec.Code)
				}
				added++

			case CommitMethodUpdate:
				var existing model.Sample
				if err := tx.Where("code = ?", rec.Code).First(&existing).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return fmt.Errorf("更新失败：样本 %q 不存在: %w", rec.Code, err)
					}
					return err
				}
				existing.Name = rec.Name
				existing.CollectionID = collectionID
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
				updated++

			case CommitMethodAddUpdate:
				var existing model.Sample
				err := tx.Where("code = ?", rec.Code).First(&existing).Error
				switch {
				case err == nil:
					existing.Name = rec.Name
					existing.CollectionID = collectionID
					if err := tx.Save(&existing).Error; err != nil {
						return err
					}
					updated++
				case errors.Is(err, gorm.ErrRecordNotFound):
					sample := model.Sample{Code: rec.Code, Name: rec.Name, CollectionID: collectionID}
					if err := tx.Create(&sample).Error; err != nil {
						return classifyIntegrityError(err, "code", rec.Code)
					}
					added++
				default:
					return err
				}

			default:
				return fmt.Errorf("未知的提交方法: %q", method)
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return added, updated, nil
}

// resolveCollection 在事务内把样本集编码解析为 ID；空编码表示不归集。
func (r *uploadRepository) resolveCollection(tx *gorm.DB, code string) (uint, error) {
	if code == "" {
		return 0, nil
	}
	var collection model.SampleCollection
	if err := tx.Where("code = ?", code).First(&collection).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("样本集 %q 不存在: %w", code, err)
		}
		return 0, err
	}
	return collection.ID, nil
}

// MarkCommitted 把会话状态置为已提交并记录提交时间。
func (r *uploadRepository) MarkCommitted(sessionID uint) error {
	now := time.Now()
	return r.db.Model(&model.UploadSession{}).Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":       model.SessionStatusCommitted,
			"committed_at": now,
		}).Error
}

// CacheItemProgress 把某个文件已接收的字节数写入进度缓存。
func (r *uploadRepository) CacheItemProgress(ctx context.Context, sessionKey, fileName string, bytes int64) error {
	return r.redisClient.HSet(ctx, r.progressKey(sessionKey), fileName, bytes).Err()
}

// GetCachedProgress 读出会话内各文件的已接收字节数。
func (r *uploadRepository) GetCachedProgress(ctx context.Context, sessionKey string) (map[string]int64, error) {
	raw, err := r.redisClient.HGetAll(ctx, r.progressKey(sessionKey)).Result()
	if err != nil {
		return nil, err
	}
	progress := make(map[string]int64, len(raw))
	for name, val := range raw {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			continue
		}
		progress[name] = n
	}
	return progress, nil
}

// DeleteProgressCache 删除会话的进度缓存。
func (r *uploadRepository) DeleteProgressCache(ctx context.Context, sessionKey string) error {
	return r.redisClient.Del(ctx, r.progressKey(sessionKey)).Err()
}
