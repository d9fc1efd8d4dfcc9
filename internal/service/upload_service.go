// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"seqbank-go/internal/model"
	"seqbank-go/internal/repository"
	"seqbank-go/pkg/log"
	"seqbank-go/pkg/storage"
	"seqbank-go/pkg/tasks"

	"gorm.io/gorm"
)

// DefaultMaxChunkSize 是单个分片允许的最大字节数 (8MB)。
// 分片先整体读入内存完成校验，校验通过后才追加写入磁盘。
const DefaultMaxChunkSize = 8 * 1024 * 1024

// sessionKeyPattern 限定会话键的字符集，会话键会成为磁盘目录名。
var sessionKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// EventPublisher 是上传服务需要的最小事件发布能力。
// 由 pkg/kafka 的 Producer 实现。
type EventPublisher interface {
	PublishSessionCommitted(ctx context.Context, task tasks.SessionCommittedTask) error
}

// ChunkResult 描述一个分片被接受后该文件与会话的最新状态。
type ChunkResult struct {
	FileName      string `json:"fileName"`
	BytesReceived int64  `json:"bytesReceived"`
	DeclaredSize  int64  `json:"declaredSize"`
	ItemComplete  bool   `json:"itemComplete"`
	SessionStatus string `json:"sessionStatus"`
}

// SessionStatus 是会话状态查询的返回结构。
type SessionStatus struct {
	SessionKey     string    `json:"sessionKey"`
	Status         string    `json:"status"`
	StartedAt      time.Time `json:"startedAt"`
	DeclaredCount  int       `json:"declaredCount"`
	CompletedCount int       `json:"completedCount"`
}

// CommitResult 是提交操作的返回结构。
type CommitResult struct {
	AddedCount   int `json:"addedCount"`
	UpdatedCount int `json:"updatedCount"`
}

// UploadService 接口定义了断点续传上传协议的全部操作。
type UploadService interface {
	Start(ctx context.Context, sessionKey, slot string, userID uint) (*model.UploadSession, error)
	Chunk(ctx context.Context, sessionKey, fileName string, offset, declaredSize int64, body io.Reader, userID uint) (*ChunkResult, error)
	Status(ctx context.Context, sessionKey string, userID uint) (*SessionStatus, error)
	Progress(ctx context.Context, sessionKey string, userID uint) (map[string]int64, error)
	DeleteItem(ctx context.Context, sessionKey, fileName string, userID uint) error
	Delete(ctx context.Context, sessionKey string, userID uint) error
	Commit(ctx context.Context, sessionKey, method string, userID uint) (*CommitResult, error)
}

type uploadService struct {
	uploadRepo repository.UploadRepository
	userRepo   repository.UserRepository
	store      storage.ObjectStore
	events     EventPublisher
	tempDir    string
	maxChunk   int64
	locks      *keyedMutex
}

// NewUploadService 创建一个新的 UploadService 实例。
func NewUploadService(uploadRepo repository.UploadRepository, userRepo repository.UserRepository, store storage.ObjectStore, events EventPublisher, tempDir string, maxChunkSize int64) UploadService {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	return &uploadService{
		uploadRepo: uploadRepo,
		userRepo:   userRepo,
		store:      store,
		events:     events,
		tempDir:    tempDir,
		maxChunk:   maxChunkSize,
		locks:      newKeyedMutex(),
	}
}

// itemPath 由会话键与文件名确定性地推导临时文件路径。
// 进程重启后推导结果不变，续传的偏移校验直接以磁盘状态为准。
func (s *uploadService) itemPath(sessionKey, fileName string) string {
	return filepath.Join(s.tempDir, sessionKey, fileName)
}

// validateSessionKey 校验会话键的合法性（会话键会成为目录名）。
func validateSessionKey(sessionKey string) error {
	if !sessionKeyPattern.MatchString(sessionKey) {
		return &BadFileNameError{FileName: sessionKey}
	}
	return nil
}

// validateFileName 拒绝空文件名与任何带路径成分的文件名。
func validateFileName(name string) error {
	if name == "" || name == "." || name == ".." ||
		name != filepath.Base(name) || filepath.IsAbs(name) {
		return &BadFileNameError{FileName: name}
	}
	return nil
}

// ownedSession 取出会话并做所有权检查：会话归创建者所有，
// 管理员角色可以代管。
func (s *uploadService) ownedSession(sessionKey string, userID uint) (*model.UploadSession, error) {
	session, err := s.uploadRepo.GetSessionByKey(sessionKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &SessionNotFoundError{SessionKey: sessionKey}
		}
		return nil, err
	}
	if session.UserID != userID {
		user, err := s.userRepo.FindByID(userID)
		if err != nil || !user.IsAdmin() {
			return nil, &NotOwnerError{SessionKey: sessionKey}
		}
	}
	return session, nil
}

// sessionLock 返回会话记录级别的互斥锁。会话行上的所有
// "取出 -> 修改 -> 写回" 序列都必须在这把锁内执行，否则并发的
// 槽位登记会互相覆盖（最后写入者赢，悄悄丢掉一个声明槽位）。
// 键以 "/" 结尾，不会与任何 (会话, 文件名) 的文件锁冲突。
func (s *uploadService) sessionLock(sessionKey string) *sync.Mutex {
	return s.locks.get(sessionKey + "/")
}

// createOrReloadSession 创建会话；多实例并发创建撞上唯一键时
// 改走读取路径（仍然做所有权检查）。
func (s *uploadService) createOrReloadSession(sessionKey, slot string, userID uint) (*model.UploadSession, error) {
	session := &model.UploadSession{
		SessionKey:    sessionKey,
		UserID:        userID,
		DeclaredSlots: slot,
		Status:        model.SessionStatusOpen,
	}
	err := s.uploadRepo.CreateSession(session)
	if err == nil {
		return session, nil
	}
	var dup *repository.DuplicateValueError
	if !errors.As(err, &dup) {
		return nil, err
	}
	return s.ownedSession(sessionKey, userID)
}

// Start 注册开始某个文件槽位的意图。会话不存在时创建（归调用者所有）。
func (s *uploadService) Start(ctx context.Context, sessionKey, slot string, userID uint) (*model.UploadSession, error) {
	if err := validateSessionKey(sessionKey); err != nil {
		return nil, err
	}
	if err := validateFileName(slot); err != nil {
		return nil, err
	}

	mu := s.sessionLock(sessionKey)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.ownedSession(sessionKey, userID)
	var notFound *SessionNotFoundError
	if errors.As(err, &notFound) {
		session, err = s.createOrReloadSession(sessionKey, slot, userID)
		if err != nil {
			return nil, err
		}
		if session.HasSlot(slot) {
			log.Infof("[UploadStart] 创建上传会话 %s，槽位: %s，用户ID: %d", sessionKey, slot, userID)
			return session, nil
		}
	} else if err != nil {
		return nil, err
	}

	if session.Status == model.SessionStatusCommitted || session.Status == model.SessionStatusDiscarded {
		return nil, &SessionClosedError{SessionKey: sessionKey, Status: session.Status}
	}

	if !session.HasSlot(slot) {
		if session.DeclaredSlots == "" {
			session.DeclaredSlots = slot
		} else {
			session.DeclaredSlots += "," + slot
		}
		// 新增槽位后会话必然回到未完成状态
		session.Status = model.SessionStatusOpen
		if err := s.uploadRepo.UpdateSession(session); err != nil {
			return nil, err
		}
		log.Infof("[UploadStart] 会话 %s 新增槽位: %s", sessionKey, slot)
	}
	return session, nil
}

// Chunk 处理一个分片：offset=0 表示文件开始（已存在则重置），
// 其余偏移必须与磁盘上已写入的字节数严格一致。
// 校验全部通过之前不触碰存储；写入只以追加方式进行。
func (s *uploadService) Chunk(ctx context.Context, sessionKey, fileName string, offset, declaredSize int64, body io.Reader, userID uint) (*ChunkResult, error) {
	if err := validateSessionKey(sessionKey); err != nil {
		return nil, err
	}
	if err := validateFileName(fileName); err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, fmt.Errorf("非法的分片偏移: %d", offset)
	}

	// 先把分片整体读入内存，后续的校验与写入才能作为原子步骤执行
	data, err := io.ReadAll(io.LimitReader(body, s.maxChunk+1))
	if err != nil {
		return nil, fmt.Errorf("读取分片内容失败: %w", err)
	}
	if int64(len(data)) > s.maxChunk {
		return nil, fmt.Errorf("分片超过最大允许大小 %d 字节", s.maxChunk)
	}

	session, err := s.ensureSession(sessionKey, fileName, offset, userID)
	if err != nil {
		return nil, err
	}

	// 同一 (会话, 文件名) 的分片严格串行；不同文件互不阻塞
	mu := s.locks.get(sessionKey + "/" + fileName)
	mu.Lock()
	defer mu.Unlock()

	path := s.itemPath(sessionKey, fileName)
	var item *model.UploadItem
	if offset == 0 {
		item, err = s.startItem(session, fileName, declaredSize, path, data)
	} else {
		item, err = s.appendItem(session, fileName, path, offset, data)
	}
	if err != nil {
		return nil, err
	}

	// 进度缓存只服务于展示，失败不影响协议本身
	if cacheErr := s.uploadRepo.CacheItemProgress(ctx, sessionKey, fileName, item.BytesReceived); cacheErr != nil {
		log.Warnf("[UploadChunk] 写入进度缓存失败, session: %s, file: %s, error: %v", sessionKey, fileName, cacheErr)
	}

	status, err := s.refreshSessionStatus(session)
	if err != nil {
		return nil, err
	}

	log.Infof("[UploadChunk] 会话 %s 文件 %s 已接收 %d/%d 字节", sessionKey, fileName, item.BytesReceived, item.DeclaredSize)
	return &ChunkResult{
		FileName:      fileName,
		BytesReceived: item.BytesReceived,
		DeclaredSize:  item.DeclaredSize,
		ItemComplete:  item.Completed,
		SessionStatus: status,
	}, nil
}

// ensureSession 在会话锁内完成"取出（或隐式创建）会话并登记槽位"
// 的读-改-写序列。不同文件的并发起始分片各自追加自己的槽位，
// 彼此的声明不会被覆盖。
func (s *uploadService) ensureSession(sessionKey, fileName string, offset int64, userID uint) (*model.UploadSession, error) {
	mu := s.sessionLock(sessionKey)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.ownedSession(sessionKey, userID)
	var notFound *SessionNotFoundError
	if errors.As(err, &notFound) && offset == 0 {
		// 首个起始分片隐式创建会话，与显式 Start 等价
		session, err = s.createOrReloadSession(sessionKey, fileName, userID)
	}
	if err != nil {
		return nil, err
	}

	if session.Status == model.SessionStatusCommitted || session.Status == model.SessionStatusDiscarded {
		return nil, &SessionClosedError{SessionKey: sessionKey, Status: session.Status}
	}

	if offset == 0 && !session.HasSlot(fileName) {
		if session.DeclaredSlots == "" {
			session.DeclaredSlots = fileName
		} else {
			session.DeclaredSlots += "," + fileName
		}
		if err := s.uploadRepo.UpdateSession(session); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// startItem 处理偏移 0 的起始分片："偏移 0 永远获胜"——
// 已存在的条目被截断重建，之前写入的字节全部作废。
func (s *uploadService) startItem(session *model.UploadSession, fileName string, declaredSize int64, path string, data []byte) (*model.UploadItem, error) {
	if declaredSize < 0 {
		return nil, fmt.Errorf("非法的声明大小: %d", declaredSize)
	}
	if int64(len(data)) > declaredSize {
		return nil, &DeclaredSizeExceededError{FileName: fileName, Declared: declaredSize, WouldBe: int64(len(data))}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}

	received := int64(len(data))
	item, err := s.uploadRepo.GetItem(session.ID, fileName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		item = &model.UploadItem{
			SessionID:     session.ID,
			FileName:      fileName,
			DeclaredSize:  declaredSize,
			BytesReceived: received,
			Completed:     received == declaredSize,
			StoragePath:   path,
		}
		if err := s.uploadRepo.CreateItem(item); err != nil {
			return nil, err
		}
		return item, nil
	}
	if err != nil {
		return nil, err
	}

	item.DeclaredSize = declaredSize
	item.BytesReceived = received
	item.Completed = received == declaredSize
	item.StoragePath = path
	if err := s.uploadRepo.UpdateItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// appendItem 处理续传分片。磁盘上的文件大小是偏移校验的唯一依据；
// 任何校验失败都不改动存储。
func (s *uploadService) appendItem(session *model.UploadSession, fileName, path string, offset int64, data []byte) (*model.UploadItem, error) {
	item, err := s.uploadRepo.GetItem(session.ID, fileName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ItemNotPreparedError{FileName: fileName}
	}
	if err != nil {
		return nil, err
	}

	var onDisk int64
	if info, err := os.Stat(path); err == nil {
		onDisk = info.Size()
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if offset != onDisk {
		return nil, &OffsetMismatchError{FileName: fileName, Expected: onDisk, Got: offset}
	}
	if onDisk+int64(len(data)) > item.DeclaredSize {
		return nil, &DeclaredSizeExceededError{
			FileName: fileName,
			Declared: item.DeclaredSize,
			WouldBe:  onDisk + int64(len(data)),
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	item.BytesReceived = onDisk + int64(len(data))
	item.Completed = item.BytesReceived == item.DeclaredSize
	if err := s.uploadRepo.UpdateItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// refreshSessionStatus 重新派生会话的完成状态并把镜像值写回。
// 完成与否始终由"每个声明槽位都有完整条目"派生，不单独记账。
// 派生基于会话锁内重新取出的最新会话行，不用调用方手里可能已经
// 过期的副本回写；committed/discarded 是终态，绝不被派生值覆盖。
func (s *uploadService) refreshSessionStatus(session *model.UploadSession) (string, error) {
	mu := s.sessionLock(session.SessionKey)
	mu.Lock()
	defer mu.Unlock()

	fresh, err := s.uploadRepo.GetSessionByKey(session.SessionKey)
	if err != nil {
		return "", err
	}
	if fresh.Status == model.SessionStatusCommitted || fresh.Status == model.SessionStatusDiscarded {
		*session = *fresh
		return fresh.Status, nil
	}

	items, err := s.uploadRepo.ListItems(fresh.ID)
	if err != nil {
		return "", err
	}

	completed := make(map[string]bool, len(items))
	for _, item := range items {
		completed[item.FileName] = item.Completed
	}

	derived := model.SessionStatusComplete
	slots := fresh.SlotList()
	if len(slots) == 0 {
		derived = model.SessionStatusOpen
	}
	for _, slot := range slots {
		if !completed[slot] {
			derived = model.SessionStatusOpen
			break
		}
	}

	if fresh.Status != derived {
		fresh.Status = derived
		if err := s.uploadRepo.UpdateSession(fresh); err != nil {
			return "", err
		}
	}
	*session = *fresh
	return derived, nil
}

// Status 返回会话的汇总状态。
func (s *uploadService) Status(ctx context.Context, sessionKey string, userID uint) (*SessionStatus, error) {
	session, err := s.ownedSession(sessionKey, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.uploadRepo.ListItems(session.ID)
	if err != nil {
		return nil, err
	}

	completedCount := 0
	for _, item := range items {
		if item.Completed {
			completedCount++
		}
	}
	return &SessionStatus{
		SessionKey:     session.SessionKey,
		Status:         session.Status,
		StartedAt:      session.CreatedAt,
		DeclaredCount:  len(session.SlotList()),
		CompletedCount: completedCount,
	}, nil
}

// Progress 返回会话内各文件已接收的字节数。
// 优先读进度缓存，缓存不可用时回退到数据库。
func (s *uploadService) Progress(ctx context.Context, sessionKey string, userID uint) (map[string]int64, error) {
	session, err := s.ownedSession(sessionKey, userID)
	if err != nil {
		return nil, err
	}

	if cached, err := s.uploadRepo.GetCachedProgress(ctx, sessionKey); err == nil && len(cached) > 0 {
		return cached, nil
	}

	items, err := s.uploadRepo.ListItems(session.ID)
	if err != nil {
		return nil, err
	}
	progress := make(map[string]int64, len(items))
	for _, item := range items {
		progress[item.FileName] = item.BytesReceived
	}
	return progress, nil
}

// DeleteItem 取消一个文件的传输：删除条目记录与已写入的字节。
// 条目不存在时为幂等空操作。
func (s *uploadService) DeleteItem(ctx context.Context, sessionKey, fileName string, userID uint) error {
	if err := validateSessionKey(sessionKey); err != nil {
		return err
	}
	if err := validateFileName(fileName); err != nil {
		return err
	}

	session, err := s.ownedSession(sessionKey, userID)
	var notFound *SessionNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	if err != nil {
		return err
	}
	// 已关闭的会话不再接受任何条目变更，终态不允许被重新打开
	if session.Status == model.SessionStatusCommitted || session.Status == model.SessionStatusDiscarded {
		return &SessionClosedError{SessionKey: sessionKey, Status: session.Status}
	}

	mu := s.locks.get(sessionKey + "/" + fileName)
	mu.Lock()
	defer mu.Unlock()

	if err := os.Remove(s.itemPath(sessionKey, fileName)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := s.uploadRepo.DeleteItem(session.ID, fileName); err != nil {
		return err
	}
	if cacheErr := s.uploadRepo.CacheItemProgress(ctx, sessionKey, fileName, 0); cacheErr != nil {
		log.Warnf("[UploadDeleteItem] 重置进度缓存失败, session: %s, file: %s, error: %v", sessionKey, fileName, cacheErr)
	}
	_, err = s.refreshSessionStatus(session)
	return err
}

// Delete 丢弃整个会话：临时文件、条目记录与会话记录一起移除，
// 不允许留下孤儿。重复删除是幂等空操作。
func (s *uploadService) Delete(ctx context.Context, sessionKey string, userID uint) error {
	if err := validateSessionKey(sessionKey); err != nil {
		return err
	}

	session, err := s.ownedSession(sessionKey, userID)
	var notFound *SessionNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	if err != nil {
		return err
	}

	// 先清磁盘再清记录：中途失败时记录仍在，重试可以收敛，
	// 最终不会留下没有记录指向的临时文件
	if err := os.RemoveAll(filepath.Join(s.tempDir, sessionKey)); err != nil {
		return err
	}
	if err := s.uploadRepo.DeleteSession(session.ID); err != nil {
		return err
	}
	if cacheErr := s.uploadRepo.DeleteProgressCache(ctx, sessionKey); cacheErr != nil {
		log.Warnf("[UploadDelete] 删除进度缓存失败, session: %s, error: %v", sessionKey, cacheErr)
	}
	s.locks.drop(sessionKey + "/")
	log.Infof("[UploadDelete] 会话 %s 已丢弃", sessionKey)
	return nil
}

// Commit 把一个完整接收的会话原子地提交为领域记录：
// 解析全部清单文件，在单个事务内按指定方法写入，全部成功后
// 归档原始文件、发布提交事件并清理临时存储。
func (s *uploadService) Commit(ctx context.Context, sessionKey, method string, userID uint) (*CommitResult, error) {
	if err := validateSessionKey(sessionKey); err != nil {
		return nil, err
	}
	if method != repository.CommitMethodAdd && method != repository.CommitMethodUpdate && method != repository.CommitMethodAddUpdate {
		return nil, fmt.Errorf("未知的提交方法: %q", method)
	}

	session, err := s.ownedSession(sessionKey, userID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionStatusCommitted || session.Status == model.SessionStatusDiscarded {
		return nil, &SessionClosedError{SessionKey: sessionKey, Status: session.Status}
	}

	items, err := s.uploadRepo.ListItems(session.ID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]model.UploadItem, len(items))
	completedCount := 0
	for _, item := range items {
		byName[item.FileName] = item
		if item.Completed {
			completedCount++
		}
	}

	slots := session.SlotList()
	for _, slot := range slots {
		item, ok := byName[slot]
		if !ok || !item.Completed {
			return nil, &SessionNotCompleteError{
				SessionKey: sessionKey,
				Declared:   len(slots),
				Completed:  completedCount,
			}
		}
	}

	// 按槽位声明顺序聚合全部清单记录
	var records []repository.SampleRecord
	for _, slot := range slots {
		item := byName[slot]
		recs, err := parseSampleManifest(item.StoragePath)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}

	added, updated, err := s.uploadRepo.CommitSamples(records, method)
	if err != nil {
		return nil, err
	}

	// 领域事务已经成功，归档失败只记警告不回滚
	for _, slot := range slots {
		item := byName[slot]
		if err := s.archiveItem(ctx, sessionKey, item); err != nil {
			log.Warnf("[UploadCommit] 归档文件失败, session: %s, file: %s, error: %v", sessionKey, item.FileName, err)
		}
	}

	if s.events != nil {
		task := tasks.SessionCommittedTask{
			SessionKey:   sessionKey,
			UserID:       session.UserID,
			FileNames:    slots,
			Method:       method,
			AddedCount:   added,
			UpdatedCount: updated,
		}
		if err := s.events.PublishSessionCommitted(ctx, task); err != nil {
			log.Errorf("[UploadCommit] 发布会话提交事件失败, session: %s, error: %v", sessionKey, err)
		}
	}

	if err := s.uploadRepo.MarkCommitted(session.ID); err != nil {
		return nil, err
	}

	if err := os.RemoveAll(filepath.Join(s.tempDir, sessionKey)); err != nil {
		log.Warnf("[UploadCommit] 清理临时目录失败, session: %s, error: %v", sessionKey, err)
	}
	if cacheErr := s.uploadRepo.DeleteProgressCache(ctx, sessionKey); cacheErr != nil {
		log.Warnf("[UploadCommit] 删除进度缓存失败, session: %s, error: %v", sessionKey, cacheErr)
	}
	s.locks.drop(sessionKey + "/")

	log.Infof("[UploadCommit] 会话 %s 提交成功，新增 %d 条，更新 %d 条", sessionKey, added, updated)
	return &CommitResult{AddedCount: added, UpdatedCount: updated}, nil
}

// archiveItem 把提交成功的清单文件归档到对象存储。
func (s *uploadService) archiveItem(ctx context.Context, sessionKey string, item model.UploadItem) error {
	if s.store == nil {
		return nil
	}
	f, err := os.Open(item.StoragePath)
	if err != nil {
		return err
	}
	defer f.Close()
	objectName := fmt.Sprintf("committed/%s/%s", sessionKey, item.FileName)
	return s.store.Put(ctx, objectName, f, item.BytesReceived)
}
