// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"seqbank-go/internal/model"
	"seqbank-go/internal/repository"
	"seqbank-go/internal/service"
	"seqbank-go/pkg/log"
	"seqbank-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// WebSocket 推送的心跳与超时参数。写超时配合读端的 pong 期限，
// 客户端悄悄消失时连接在一个心跳周期内被回收，不会让推送
// goroutine 一直挂到 TCP 层超时。
const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsPushPeriod = time.Second
)

// UploadHandler 负责处理断点续传上传协议的 API 请求。
type UploadHandler struct {
	uploadService service.UploadService
	userService   service.UserService
	jwtManager    *token.JWTManager
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(uploadService service.UploadService, userService service.UserService, jwtManager *token.JWTManager) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		userService:   userService,
		jwtManager:    jwtManager,
	}
}

// currentUser 取出 AuthMiddleware 注入的用户对象。
func currentUser(c *gin.Context) (*model.User, bool) {
	userValue, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return nil, false
	}
	user, ok := userValue.(*model.User)
	if !ok || user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "用户数据类型错误"})
		return nil, false
	}
	return user, true
}

// uploadErrorStatus 把上传协议的错误映射到 HTTP 状态码。
// 协议校验失败是客户端问题（400），所有权问题是 403，
// 不存在是 404，提交前置条件不满足与重复编码冲突是 409。
func uploadErrorStatus(err error) int {
	var (
		offsetErr    *service.OffsetMismatchError
		notPrepared  *service.ItemNotPreparedError
		sizeErr      *service.DeclaredSizeExceededError
		badName      *service.BadFileNameError
		notFound     *service.SessionNotFoundError
		notOwner     *service.NotOwnerError
		closed       *service.SessionClosedError
		notComplete  *service.SessionNotCompleteError
		duplicateErr *repository.DuplicateValueError
	)
	switch {
	case errors.As(err, &offsetErr), errors.As(err, &notPrepared),
		errors.As(err, &sizeErr), errors.As(err, &badName):
		return http.StatusBadRequest
	case errors.As(err, &notOwner):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &closed), errors.As(err, &notComplete), errors.As(err, &duplicateErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// StartRequest 定义了声明文件槽位 API 的请求体结构。
type StartRequest struct {
	FileName string `json:"fileName" binding:"required"`
}

// Start 声明会话中的一个文件槽位，必要时创建会话。
func (h *UploadHandler) Start(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：fileName 不能为空",
		})
		return
	}

	session, err := h.uploadService.Start(c.Request.Context(), c.Param("sessionKey"), req.FileName, user.ID)
	if err != nil {
		status := uploadErrorStatus(err)
		log.Warnf("Start: 声明槽位失败, session: %s, error: %v", c.Param("sessionKey"), err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"sessionKey": session.SessionKey,
			"status":     session.Status,
			"fileNames":  session.SlotList(),
		},
	})
}

// Chunk 接收一个分片。文件名、偏移与声明大小通过查询参数传递，
// 分片字节流即请求体。
func (h *UploadHandler) Chunk(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	fileName := c.Query("fileName")
	offset, err := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "非法的 offset 参数"})
		return
	}
	declaredSize, err := strconv.ParseInt(c.DefaultQuery("size", "-1"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "非法的 size 参数"})
		return
	}

	result, err := h.uploadService.Chunk(c.Request.Context(), c.Param("sessionKey"), fileName, offset, declaredSize, c.Request.Body, user.ID)
	if err != nil {
		status := uploadErrorStatus(err)
		log.Warnf("Chunk: 分片被拒绝, session: %s, file: %s, offset: %d, error: %v",
			c.Param("sessionKey"), fileName, offset, err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": result})
}

// Status 返回会话的汇总状态。
func (h *UploadHandler) Status(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	status, err := h.uploadService.Status(c.Request.Context(), c.Param("sessionKey"), user.ID)
	if err != nil {
		code := uploadErrorStatus(err)
		c.JSON(code, gin.H{"code": code, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": status})
}

// Progress 返回会话内各文件已接收的字节数。
func (h *UploadHandler) Progress(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	progress, err := h.uploadService.Progress(c.Request.Context(), c.Param("sessionKey"), user.ID)
	if err != nil {
		code := uploadErrorStatus(err)
		c.JSON(code, gin.H{"code": code, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": progress})
}

// ProgressWS 通过 WebSocket 周期性推送上传进度。
// 浏览器的 WebSocket API 无法自定义请求头，token 经由路径传递。
func (h *UploadHandler) ProgressWS(c *gin.Context) {
	claims, err := h.jwtManager.VerifyToken(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token"})
		return
	}
	user, err := h.userService.GetProfile(claims.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "用户不存在"})
		return
	}

	sessionKey := c.Param("sessionKey")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("上传进度 WebSocket 已建立, session: %s, 用户: %s", sessionKey, user.Username)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// 读泵只处理控制帧：客户端关闭或 pong 超时都会让它退出
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pushTicker := time.NewTicker(wsPushPeriod)
	defer pushTicker.Stop()
	pingTicker := time.NewTicker(wsPingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-done:
			return
		case <-pingTicker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-pushTicker.C:
			progress, err := h.uploadService.Progress(c.Request.Context(), sessionKey, user.ID)
			if err != nil {
				// 会话被删除或提交后结束推送
				payload, _ := json.Marshal(gin.H{"type": "end", "message": err.Error()})
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				_ = conn.WriteMessage(websocket.TextMessage, payload)
				return
			}
			payload, _ := json.Marshal(gin.H{"type": "progress", "data": progress})
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

// DeleteItem 取消会话中单个文件的传输。
func (h *UploadHandler) DeleteItem(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	fileName := c.Query("fileName")
	if err := h.uploadService.DeleteItem(c.Request.Context(), c.Param("sessionKey"), fileName, user.ID); err != nil {
		code := uploadErrorStatus(err)
		c.JSON(code, gin.H{"code": code, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success"})
}

// Delete 丢弃整个上传会话。
func (h *UploadHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.uploadService.Delete(c.Request.Context(), c.Param("sessionKey"), user.ID); err != nil {
		code := uploadErrorStatus(err)
		c.JSON(code, gin.H{"code": code, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success"})
}

// CommitRequest 定义了提交会话 API 的请求体结构。
type CommitRequest struct {
	Method string `json:"method" binding:"required"`
}

// Commit 把完整接收的会话提交为样本记录。
func (h *UploadHandler) Commit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：method 不能为空",
		})
		return
	}

	result, err := h.uploadService.Commit(c.Request.Context(), c.Param("sessionKey"), req.Method, user.ID)
	if err != nil {
		status := uploadErrorStatus(err)
		log.Warnf("Commit: 提交失败, session: %s, method: %s, error: %v", c.Param("sessionKey"), req.Method, err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	log.Infof("会话 %s 提交成功, 新增 %d 条, 更新 %d 条", c.Param("sessionKey"), result.AddedCount, result.UpdatedCount)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": result})
}
