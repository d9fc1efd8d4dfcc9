package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"seqbank-go/internal/model"
	"seqbank-go/internal/repository"
	"seqbank-go/pkg/log"
	"seqbank-go/pkg/tasks"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

// fakeStore 把归档对象收进内存，记录提交时的归档行为。
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(ctx context.Context, objectName string, reader io.Reader, size int64) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectName] = data
	return nil
}

// fakeEvents 记录发布出去的提交事件。
type fakeEvents struct {
	mu    sync.Mutex
	tasks []tasks.SessionCommittedTask
}

func (f *fakeEvents) PublishSessionCommitted(ctx context.Context, task tasks.SessionCommittedTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return nil
}

type uploadFixture struct {
	svc     UploadService
	db      *gorm.DB
	repo    repository.UploadRepository
	users   repository.UserRepository
	store   *fakeStore
	events  *fakeEvents
	tempDir string
	alice   *model.User
	bob     *model.User
	admin   *model.User
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	err = db.AutoMigrate(
		&model.User{},
		&model.Institution{},
		&model.SampleCollection{},
		&model.Sample{},
		&model.UploadSession{},
		&model.UploadItem{},
	)
	if err != nil {
		t.Fatalf("迁移测试表失败: %v", err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	f := &uploadFixture{
		db:      db,
		repo:    repository.NewUploadRepository(db, client),
		users:   repository.NewUserRepository(db),
		store:   newFakeStore(),
		events:  &fakeEvents{},
		tempDir: t.TempDir(),
		alice:   &model.User{Username: "alice", Password: "x", Role: "USER"},
		bob:     &model.User{Username: "bob", Password: "x", Role: "USER"},
		admin:   &model.User{Username: "root", Password: "x", Role: "ADMIN"},
	}
	for _, u := range []*model.User{f.alice, f.bob, f.admin} {
		if err := f.users.Create(u); err != nil {
			t.Fatal(err)
		}
	}
	f.svc = NewUploadService(f.repo, f.users, f.store, f.events, f.tempDir, 0)
	return f
}

// chunk 是发送分片的便捷包装。
func (f *uploadFixture) chunk(t *testing.T, key, name string, offset, declared int64, body string, userID uint) (*ChunkResult, error) {
	t.Helper()
	return f.svc.Chunk(context.Background(), key, name, offset, declared, strings.NewReader(body), userID)
}

func (f *uploadFixture) diskContent(t *testing.T, key, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.tempDir, key, name))
	if err != nil {
		t.Fatalf("读取临时文件失败: %v", err)
	}
	return string(data)
}

func TestChunkSequentialCompletion(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	res, err := f.chunk(t, "sess-1", "reads.csv", 0, 10, "abcdef", f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.BytesReceived != 6 || res.ItemComplete {
		t.Fatalf("首个分片后的状态错误: %+v", res)
	}
	if res.SessionStatus != model.SessionStatusOpen {
		t.Fatalf("未完成会话应为 open: %s", res.SessionStatus)
	}

	res, err = f.chunk(t, "sess-1", "reads.csv", 6, 0, "ghij", f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.BytesReceived != 10 || !res.ItemComplete {
		t.Fatalf("续传分片后的状态错误: %+v", res)
	}
	if res.SessionStatus != model.SessionStatusComplete {
		t.Fatalf("所有槽位完成后会话应为 complete: %s", res.SessionStatus)
	}
	if got := f.diskContent(t, "sess-1", "reads.csv"); got != "abcdefghij" {
		t.Fatalf("磁盘内容错误: %q", got)
	}

	// 进度可查询
	progress, err := f.svc.Progress(ctx, "sess-1", f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if progress["reads.csv"] != 10 {
		t.Fatalf("进度错误: %v", progress)
	}
}

func TestChunkZeroOffsetAlwaysWins(t *testing.T) {
	f := newUploadFixture(t)

	if _, err := f.chunk(t, "sess-2", "a.csv", 0, 100, "partial", f.alice.ID); err != nil {
		t.Fatal(err)
	}

	// 客户端重启后从头再传: 旧字节作废
	res, err := f.chunk(t, "sess-2", "a.csv", 0, 5, "abcde", f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.BytesReceived != 5 || !res.ItemComplete || res.DeclaredSize != 5 {
		t.Fatalf("重新开始后的状态错误: %+v", res)
	}
	if got := f.diskContent(t, "sess-2", "a.csv"); got != "abcde" {
		t.Fatalf("偏移 0 应截断重建: %q", got)
	}
}

func TestChunkOffsetMismatchLeavesStorageUntouched(t *testing.T) {
	f := newUploadFixture(t)

	if _, err := f.chunk(t, "sess-3", "a.csv", 0, 20, "abcdef", f.alice.ID); err != nil {
		t.Fatal(err)
	}

	// 乱序分片: 磁盘上有 6 字节, 声称偏移 3
	_, err := f.chunk(t, "sess-3", "a.csv", 3, 0, "xyz", f.alice.ID)
	var mismatch *OffsetMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("期望 OffsetMismatchError, 得到 %v", err)
	}
	if mismatch.Expected != 6 || mismatch.Got != 3 {
		t.Fatalf("错误内容不完整: %+v", mismatch)
	}
	if got := f.diskContent(t, "sess-3", "a.csv"); got != "abcdef" {
		t.Fatalf("被拒绝的分片不得改动存储: %q", got)
	}

	// 重复投递同理: 偏移 12 也被拒绝
	if _, err := f.chunk(t, "sess-3", "a.csv", 12, 0, "dup", f.alice.ID); err == nil {
		t.Fatal("超前偏移应被拒绝")
	}

	// 正确的续传仍然可行
	if _, err := f.chunk(t, "sess-3", "a.csv", 6, 0, "ghi", f.alice.ID); err != nil {
		t.Fatalf("校验失败不应破坏后续续传: %v", err)
	}
}

func TestChunkContinuationRequiresStart(t *testing.T) {
	f := newUploadFixture(t)

	if _, err := f.chunk(t, "sess-4", "a.csv", 0, 10, "abc", f.alice.ID); err != nil {
		t.Fatal(err)
	}

	// b.csv 从未发过起始分片
	_, err := f.chunk(t, "sess-4", "b.csv", 5, 0, "xyz", f.alice.ID)
	var notPrepared *ItemNotPreparedError
	if !errors.As(err, &notPrepared) {
		t.Fatalf("期望 ItemNotPreparedError, 得到 %v", err)
	}

	// 未知会话的续传分片同样被拒绝
	_, err = f.chunk(t, "sess-unknown", "a.csv", 5, 0, "xyz", f.alice.ID)
	var notFound *SessionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("期望 SessionNotFoundError, 得到 %v", err)
	}
}

func TestChunkDeclaredSizeEnforced(t *testing.T) {
	f := newUploadFixture(t)

	// 起始分片就超过声明大小
	_, err := f.chunk(t, "sess-5", "a.csv", 0, 3, "abcdef", f.alice.ID)
	var exceeded *DeclaredSizeExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("期望 DeclaredSizeExceededError, 得到 %v", err)
	}

	// 续传中超出
	if _, err := f.chunk(t, "sess-5", "a.csv", 0, 8, "abcdef", f.alice.ID); err != nil {
		t.Fatal(err)
	}
	_, err = f.chunk(t, "sess-5", "a.csv", 6, 0, "ghij", f.alice.ID)
	if !errors.As(err, &exceeded) {
		t.Fatalf("期望 DeclaredSizeExceededError, 得到 %v", err)
	}
	if got := f.diskContent(t, "sess-5", "a.csv"); got != "abcdef" {
		t.Fatalf("被拒绝的分片不得改动存储: %q", got)
	}
}

func TestChunkRejectsPathFileNames(t *testing.T) {
	f := newUploadFixture(t)

	for _, name := range []string{"", "..", "../evil.csv", "a/b.csv", "/etc/passwd"} {
		_, err := f.chunk(t, "sess-6", name, 0, 10, "x", f.alice.ID)
		var bad *BadFileNameError
		if !errors.As(err, &bad) {
			t.Fatalf("文件名 %q 应被拒绝, 得到 %v", name, err)
		}
	}

	// 会话键同样受限
	_, err := f.chunk(t, "../escape", "a.csv", 0, 10, "x", f.alice.ID)
	var bad *BadFileNameError
	if !errors.As(err, &bad) {
		t.Fatalf("非法会话键应被拒绝, 得到 %v", err)
	}
}

func TestMultiSlotSessionCompletion(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Start(ctx, "sess-7", "read-1.csv", f.alice.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Start(ctx, "sess-7", "read-2.csv", f.alice.ID); err != nil {
		t.Fatal(err)
	}

	res, err := f.chunk(t, "sess-7", "read-1.csv", 0, 3, "abc", f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.SessionStatus != model.SessionStatusOpen {
		t.Fatalf("仍有未完成槽位, 会话应为 open: %s", res.SessionStatus)
	}

	res, err = f.chunk(t, "sess-7", "read-2.csv", 0, 3, "def", f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.SessionStatus != model.SessionStatusComplete {
		t.Fatalf("两个槽位都完成后会话应为 complete: %s", res.SessionStatus)
	}

	status, err := f.svc.Status(ctx, "sess-7", f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status.DeclaredCount != 2 || status.CompletedCount != 2 {
		t.Fatalf("状态汇总错误: %+v", status)
	}
}

func TestOwnershipEnforced(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	if _, err := f.chunk(t, "sess-8", "a.csv", 0, 3, "abc", f.alice.ID); err != nil {
		t.Fatal(err)
	}

	// 其他用户被拒绝
	_, err := f.chunk(t, "sess-8", "a.csv", 0, 3, "abc", f.bob.ID)
	var notOwner *NotOwnerError
	if !errors.As(err, &notOwner) {
		t.Fatalf("期望 NotOwnerError, 得到 %v", err)
	}
	if _, err := f.svc.Status(ctx, "sess-8", f.bob.ID); !errors.As(err, &notOwner) {
		t.Fatalf("非所有者查询状态应被拒绝, 得到 %v", err)
	}

	// 管理员可以代管
	if _, err := f.svc.Status(ctx, "sess-8", f.admin.ID); err != nil {
		t.Fatalf("管理员应可访问: %v", err)
	}
}

func TestDeleteItemReopensSession(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	res, err := f.chunk(t, "sess-9", "a.csv", 0, 3, "abc", f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.SessionStatus != model.SessionStatusComplete {
		t.Fatalf("单槽位完成后会话应为 complete: %s", res.SessionStatus)
	}

	if err := f.svc.DeleteItem(ctx, "sess-9", "a.csv", f.alice.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(f.tempDir, "sess-9", "a.csv")); !os.IsNotExist(err) {
		t.Fatal("删除条目后临时文件应被移除")
	}

	status, err := f.svc.Status(ctx, "sess-9", f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != model.SessionStatusOpen || status.CompletedCount != 0 {
		t.Fatalf("删除条目后会话应回到 open: %+v", status)
	}

	// 幂等删除
	if err := f.svc.DeleteItem(ctx, "sess-9", "a.csv", f.alice.ID); err != nil {
		t.Fatalf("重复删除条目应为空操作: %v", err)
	}
}

func TestDeleteSessionIsIdempotent(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	if _, err := f.chunk(t, "sess-10", "a.csv", 0, 3, "abc", f.alice.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Delete(ctx, "sess-10", f.alice.ID); err != nil {
		t.Fatal(err)
	}

	// 磁盘与记录一起消失
	if _, err := os.Stat(filepath.Join(f.tempDir, "sess-10")); !os.IsNotExist(err) {
		t.Fatal("删除会话后临时目录应被移除")
	}
	var notFound *SessionNotFoundError
	if _, err := f.svc.Status(ctx, "sess-10", f.alice.ID); !errors.As(err, &notFound) {
		t.Fatalf("删除后状态查询应报不存在, 得到 %v", err)
	}

	// 重复删除是空操作
	if err := f.svc.Delete(ctx, "sess-10", f.alice.ID); err != nil {
		t.Fatalf("重复删除会话应为空操作: %v", err)
	}
}

func seedCollection(t *testing.T, db *gorm.DB, code string, groupID uint) {
	t.Helper()
	inst := model.Institution{Code: "INST-" + code, Name: "研究院"}
	if err := db.Create(&inst).Error; err != nil {
		t.Fatal(err)
	}
	col := model.SampleCollection{Code: code, Name: "样本集", InstitutionID: inst.ID, GroupID: groupID}
	if err := db.Create(&col).Error; err != nil {
		t.Fatal(err)
	}
}

func TestCommitFlow(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()
	seedCollection(t, f.db, "C-1", 1)

	manifest := "code,name,collection_code\nS-10,ten,C-1\nS-11,eleven,\n"
	if _, err := f.chunk(t, "sess-11", "manifest.csv", 0, int64(len(manifest)), manifest, f.alice.ID); err != nil {
		t.Fatal(err)
	}

	result, err := f.svc.Commit(ctx, "sess-11", repository.CommitMethodAdd, f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.AddedCount != 2 || result.UpdatedCount != 0 {
		t.Fatalf("提交计数错误: %+v", result)
	}

	// 样本已写入领域表
	var count int64
	if err := f.db.Model(&model.Sample{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("期望 2 个样本, 得到 %d", count)
	}

	// 原始清单已归档
	if _, ok := f.store.objects["committed/sess-11/manifest.csv"]; !ok {
		t.Fatalf("清单未归档: %v", f.store.objects)
	}

	// 提交事件已发布
	if len(f.events.tasks) != 1 {
		t.Fatalf("期望 1 条提交事件, 得到 %d", len(f.events.tasks))
	}
	task := f.events.tasks[0]
	if task.SessionKey != "sess-11" || task.AddedCount != 2 || task.Method != repository.CommitMethodAdd {
		t.Fatalf("事件内容错误: %+v", task)
	}

	// 临时目录已清理, 会话关闭
	if _, err := os.Stat(filepath.Join(f.tempDir, "sess-11")); !os.IsNotExist(err) {
		t.Fatal("提交后临时目录应被移除")
	}
	var closed *SessionClosedError
	if _, err := f.chunk(t, "sess-11", "more.csv", 0, 3, "abc", f.alice.ID); !errors.As(err, &closed) {
		t.Fatalf("已提交会话不应再接收分片, 得到 %v", err)
	}
	if _, err := f.svc.Commit(ctx, "sess-11", repository.CommitMethodAdd, f.alice.ID); !errors.As(err, &closed) {
		t.Fatalf("重复提交应被拒绝, 得到 %v", err)
	}
}

func TestCommitRequiresCompleteSession(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	// 声明两个槽位但只完成一个
	if _, err := f.svc.Start(ctx, "sess-12", "a.csv", f.alice.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Start(ctx, "sess-12", "b.csv", f.alice.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.chunk(t, "sess-12", "a.csv", 0, 4, "S-20", f.alice.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.Commit(ctx, "sess-12", repository.CommitMethodAdd, f.alice.ID)
	var notComplete *SessionNotCompleteError
	if !errors.As(err, &notComplete) {
		t.Fatalf("期望 SessionNotCompleteError, 得到 %v", err)
	}
	if notComplete.Declared != 2 || notComplete.Completed != 1 {
		t.Fatalf("错误内容不完整: %+v", notComplete)
	}
}

func TestCommitRejectsUnknownMethod(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	if _, err := f.chunk(t, "sess-13", "a.csv", 0, 4, "S-30", f.alice.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Commit(ctx, "sess-13", "replace", f.alice.ID); err == nil {
		t.Fatal("未知提交方法应被拒绝")
	}
}

func TestCommitDuplicateRollsBack(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	if err := f.db.Create(&model.Sample{Code: "S-40", Name: "已存在"}).Error; err != nil {
		t.Fatal(err)
	}

	manifest := "S-41,new\nS-40,dup\n"
	if _, err := f.chunk(t, "sess-14", "m.csv", 0, int64(len(manifest)), manifest, f.alice.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.Commit(ctx, "sess-14", repository.CommitMethodAdd, f.alice.ID)
	var dup *repository.DuplicateValueError
	if !errors.As(err, &dup) {
		t.Fatalf("期望 DuplicateValueError, 得到 %v", err)
	}

	// 整体回滚: S-41 不存在, 会话仍可重试
	var count int64
	if err := f.db.Model(&model.Sample{}).Where("code = ?", "S-41").Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatal("失败的提交不应留下部分写入")
	}
	status, err := f.svc.Status(ctx, "sess-14", f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != model.SessionStatusComplete {
		t.Fatalf("失败的提交不应关闭会话: %s", status.Status)
	}

	// add_update 语义下重试成功
	result, err := f.svc.Commit(ctx, "sess-14", repository.CommitMethodAddUpdate, f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.AddedCount != 1 || result.UpdatedCount != 1 {
		t.Fatalf("重试计数错误: %+v", result)
	}
}

func TestConcurrentStartChunksDeclareAllSlots(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	// 两个新文件的起始分片并发到达一个尚不存在的会话:
	// 会话的隐式创建与两次槽位登记都不允许丢失
	for i := 0; i < 25; i++ {
		key := fmt.Sprintf("sess-race-%d", i)
		var wg sync.WaitGroup
		errs := make(chan error, 2)
		for _, name := range []string{"read-1.csv", "read-2.csv"} {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				if _, err := f.chunk(t, key, name, 0, 3, "abc", f.alice.ID); err != nil {
					errs <- err
				}
			}(name)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("并发起始分片不应失败: %v", err)
		}

		status, err := f.svc.Status(ctx, key, f.alice.ID)
		if err != nil {
			t.Fatal(err)
		}
		if status.DeclaredCount != 2 || status.CompletedCount != 2 {
			t.Fatalf("槽位声明被并发覆盖: %+v", status)
		}
		if status.Status != model.SessionStatusComplete {
			t.Fatalf("两个槽位都完成后会话应为 complete: %+v", status)
		}
	}
}

func TestDeleteItemOnCommittedSessionRejected(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	manifest := "S-60,sixty\n"
	if _, err := f.chunk(t, "sess-16", "m.csv", 0, int64(len(manifest)), manifest, f.alice.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Commit(ctx, "sess-16", repository.CommitMethodAdd, f.alice.ID); err != nil {
		t.Fatal(err)
	}

	// 已提交会话的条目不可再变更, 对从未存在过的条目也一样
	var closed *SessionClosedError
	if err := f.svc.DeleteItem(ctx, "sess-16", "m.csv", f.alice.ID); !errors.As(err, &closed) {
		t.Fatalf("期望 SessionClosedError, 得到 %v", err)
	}
	if err := f.svc.DeleteItem(ctx, "sess-16", "ghost.csv", f.alice.ID); !errors.As(err, &closed) {
		t.Fatalf("未知条目同样不得触碰已提交会话, 得到 %v", err)
	}

	// committed 是终态: 不被降级, 也不能借降级再次提交
	status, err := f.svc.Status(ctx, "sess-16", f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != model.SessionStatusCommitted {
		t.Fatalf("终态被降级: %+v", status)
	}
	if _, err := f.svc.Commit(ctx, "sess-16", repository.CommitMethodAdd, f.alice.ID); !errors.As(err, &closed) {
		t.Fatalf("重复提交应被拒绝, 得到 %v", err)
	}
}

func TestConcurrentChunksOnDifferentFiles(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Start(ctx, "sess-15", "a.csv", f.alice.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Start(ctx, "sess-15", "b.csv", f.alice.ID); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, name := range []string{"a.csv", "b.csv"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if _, err := f.chunk(t, "sess-15", name, 0, 6, "abc", f.alice.ID); err != nil {
				errs <- err
				return
			}
			if _, err := f.chunk(t, "sess-15", name, 3, 0, "def", f.alice.ID); err != nil {
				errs <- err
			}
		}(name)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("并发上传不同文件不应互相干扰: %v", err)
	}

	status, err := f.svc.Status(ctx, "sess-15", f.alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status.CompletedCount != 2 {
		t.Fatalf("两个文件都应完成: %+v", status)
	}
}
