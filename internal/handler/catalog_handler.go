// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"seqbank-go/internal/query"
	"seqbank-go/internal/service"
	"seqbank-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// CatalogHandler 负责处理目录实体（机构/样本集/样本/测序批次）的 API 请求。
type CatalogHandler struct {
	catalogService service.CatalogService
}

// NewCatalogHandler 创建一个新的 CatalogHandler 实例。
func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// specFromQuery 把 URL 查询参数翻译成单个 AND 组的过滤规格。
// 只认 allowed 中列出的键；逗号分隔的值翻译成集合成员条件，
// 含 "*" 的值保持原样交给编译器做通配匹配。
func specFromQuery(c *gin.Context, allowed ...string) query.FilterSpec {
	var group query.SpecGroup
	for _, key := range allowed {
		raw, ok := c.GetQuery(key)
		if !ok || raw == "" {
			continue
		}
		if strings.Contains(raw, ",") {
			parts := strings.Split(raw, ",")
			values := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					values = append(values, p)
				}
			}
			group = append(group, query.Term{Key: key, Value: values})
			continue
		}
		group = append(group, query.Term{Key: key, Value: raw})
	}
	if len(group) == 0 {
		return nil
	}
	return query.FilterSpec{group}
}

// queryErrorStatus 把查询流水线的错误映射到 HTTP 状态码。
func queryErrorStatus(err error) int {
	var (
		unknownKey *query.UnknownFilterKeyError
		dupField   *query.DuplicateFieldError
		empty      *query.EmptyResultError
	)
	switch {
	case errors.As(err, &unknownKey), errors.As(err, &dupField):
		return http.StatusBadRequest
	case errors.As(err, &empty):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ListInstitutions 查询机构列表。
func (h *CatalogHandler) ListInstitutions(c *gin.Context) {
	specs := specFromQuery(c, "code", "name", "institution_code")
	rows, err := h.catalogService.ListInstitutions(specs)
	if err != nil {
		status := queryErrorStatus(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": rows})
}

// ListCollections 查询调用方可见的样本集列表。
func (h *CatalogHandler) ListCollections(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	specs := specFromQuery(c, "code", "name", "institution_code", "group_id")
	rows, err := h.catalogService.ListCollections(user, specs)
	if err != nil {
		status := queryErrorStatus(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": rows})
}

// ListSamples 查询调用方可见的样本列表，支持分页。
func (h *CatalogHandler) ListSamples(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	specs := specFromQuery(c, "id", "code", "name", "collection_code", "institution_code")
	order := c.Query("order")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	samples, total, err := h.catalogService.PageSamples(user, specs, order, page, size)
	if err != nil {
		status := queryErrorStatus(err)
		log.Warnf("ListSamples: 查询失败, user: %s, error: %v", user.Username, err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"records": samples,
			"total":   total,
			"page":    page,
			"size":    size,
		},
	})
}

// SampleQueryRequest 定义了高级样本查询 API 的请求体结构。
// Filters 是"组间 OR、组内 AND"的两层结构。
type SampleQueryRequest struct {
	Filters [][]query.Term `json:"filters"`
	Order   string         `json:"order"`
	Page    int            `json:"page"`
	Size    int            `json:"size"`
}

// QuerySamples 处理高级样本查询：请求体携带完整的过滤规格。
func (h *CatalogHandler) QuerySamples(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req SampleQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	specs := make(query.FilterSpec, 0, len(req.Filters))
	for _, group := range req.Filters {
		specs = append(specs, query.SpecGroup(group))
	}

	samples, total, err := h.catalogService.PageSamples(user, specs, req.Order, req.Page, req.Size)
	if err != nil {
		status := queryErrorStatus(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"records": samples, "total": total},
	})
}

// ListRuns 查询调用方可见的测序批次列表。
func (h *CatalogHandler) ListRuns(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	specs := specFromQuery(c, "code", "name", "group_id")
	rows, err := h.catalogService.ListRuns(user, specs)
	if err != nil {
		status := queryErrorStatus(err)
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": rows})
}

// CreateInstitutionRequest 定义了录入机构 API 的请求体结构。
type CreateInstitutionRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// CreateInstitution 录入一个机构（仅管理员路由挂载）。
func (h *CatalogHandler) CreateInstitution(c *gin.Context) {
	var req CreateInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	inst, err := h.catalogService.CreateInstitution(req.Code, req.Name)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"code": http.StatusConflict, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": inst})
}

// CreateCollectionRequest 定义了录入样本集 API 的请求体结构。
type CreateCollectionRequest struct {
	Code            string `json:"code" binding:"required"`
	Name            string `json:"name"`
	InstitutionCode string `json:"institutionCode" binding:"required"`
	GroupID         uint   `json:"groupId" binding:"required"`
}

// CreateCollection 录入一个样本集。
func (h *CatalogHandler) CreateCollection(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	col, err := h.catalogService.CreateCollection(user, req.Code, req.Name, req.InstitutionCode, req.GroupID)
	if err != nil {
		status := queryErrorStatus(err)
		if status == http.StatusInternalServerError {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"code": status, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": col})
}

// CreateRunRequest 定义了录入测序批次 API 的请求体结构。
type CreateRunRequest struct {
	Code    string `json:"code" binding:"required"`
	Name    string `json:"name"`
	GroupID uint   `json:"groupId" binding:"required"`
}

// CreateRun 录入一个测序批次。
func (h *CatalogHandler) CreateRun(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载"})
		return
	}

	run, err := h.catalogService.CreateRun(user, req.Code, req.Name, req.GroupID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"code": http.StatusConflict, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": run})
}
