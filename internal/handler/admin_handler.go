// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"seqbank-go/internal/repository"
	"seqbank-go/internal/service"
	"seqbank-go/pkg/log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AdminHandler 负责处理管理员专属的 API 请求。
// 路由挂载在 AdminAuthMiddleware 之后，进入这里的调用方必然是管理员。
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// pathID 解析路径中的数字 ID 参数。
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "非法的 ID 参数"})
		return 0, false
	}
	return uint(id), true
}

// GroupRequest 定义了创建/更新研究组 API 的请求体结构。
type GroupRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateGroup 创建一个新的研究组。
func (h *AdminHandler) CreateGroup(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	group, err := h.adminService.CreateGroup(req.Code, req.Name, req.Description, user.ID)
	if err != nil {
		var dup *repository.DuplicateValueError
		if errors.As(err, &dup) {
			c.JSON(http.StatusConflict, gin.H{"code": http.StatusConflict, "message": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": group})
}

// GetGroup 根据 ID 获取研究组。
func (h *AdminHandler) GetGroup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	group, err := h.adminService.GetGroup(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "研究组不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": group})
}

// ListGroups 获取全部研究组。
func (h *AdminHandler) ListGroups(c *gin.Context) {
	groups, err := h.adminService.ListGroups()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": groups})
}

// UpdateGroup 更新研究组的名称与描述。
func (h *AdminHandler) UpdateGroup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	group, err := h.adminService.UpdateGroup(id, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "研究组不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": group})
}

// DeleteGroup 删除研究组。
func (h *AdminHandler) DeleteGroup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.adminService.DeleteGroup(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "研究组不存在"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"code": http.StatusConflict, "message": err.Error()})
		return
	}
	log.Infof("研究组 %d 已删除", id)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success"})
}

// AssignGroupsRequest 定义了分配研究组 API 的请求体结构。
type AssignGroupsRequest struct {
	GroupIDs []uint `json:"groupIds"`
}

// AssignGroups 整体替换用户的研究组成员关系。
func (h *AdminHandler) AssignGroups(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req AssignGroupsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	user, err := h.adminService.AssignGroupsToUser(id, req.GroupIDs)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "用户不存在"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": user})
}

// SetRoleRequest 定义了设置用户角色 API 的请求体结构。
type SetRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SetUserRole 设置用户角色。
func (h *AdminHandler) SetUserRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	user, err := h.adminService.SetUserRole(id, req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": user})
}

// ListUsers 分页获取用户列表。
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	users, total, err := h.adminService.ListUsers(page, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"records": users,
			"total":   total,
			"page":    page,
			"size":    size,
		},
	})
}
