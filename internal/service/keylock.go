// Package service 包含了应用的业务逻辑层。
package service

import (
	"strings"
	"sync"
)

// keyedMutex 提供按 key 的互斥锁。
// 上传协议用它保证同一 (会话, 文件名) 的分片严格串行：
// "读磁盘大小 -> 校验偏移 -> 追加写入" 必须作为一个原子序列执行，
// 否则并发分片会悄悄写坏文件。不同文件之间互不阻塞。
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// get 返回 key 对应的互斥锁，必要时创建。
func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// drop 清理某个前缀下的全部锁（会话删除或提交后回收）。
// 只能在确认没有持有者时调用。
func (k *keyedMutex) drop(prefix string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for key := range k.locks {
		if strings.HasPrefix(key, prefix) {
			delete(k.locks, key)
		}
	}
}
