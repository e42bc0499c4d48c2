package admin

import (
	"errors"
	"strconv"

	"github.com/puntoz/puntoz/internal/http/response"
	"github.com/puntoz/puntoz/internal/repository"
	"github.com/puntoz/puntoz/internal/service"

	"github.com/gin-gonic/gin"
)

// GetSyncJobs 获取同步任务列表
func (h *Handler) GetSyncJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	jobs, total, err := h.SyncService.List(repository.SyncJobListFilter{
		Page:       page,
		PageSize:   pageSize,
		OpType:     c.Query("op_type"),
		Status:     c.Query("status"),
		ResourceID: c.Query("resource_id"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "sync job fetch failed", err)
		return
	}

	response.SuccessWithPage(c, jobs, response.NewPagination(page, pageSize, total))
}

// GetSyncJob 获取同步任务详情
func (h *Handler) GetSyncJob(c *gin.Context) {
	jobID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || jobID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	job, err := h.SyncJobRepo.GetByID(uint(jobID))
	if err != nil {
		respondError(c, response.CodeInternal, "sync job fetch failed", err)
		return
	}
	if job == nil {
		respondError(c, response.CodeNotFound, "sync job not found", nil)
		return
	}

	response.Success(c, job)
}

// RetrySyncJob 重置终态任务重新排队
func (h *Handler) RetrySyncJob(c *gin.Context) {
	jobID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || jobID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if err := h.SyncService.RetryTerminal(uint(jobID)); err != nil {
		switch {
		case errors.Is(err, service.ErrSyncJobNotFound):
			respondError(c, response.CodeNotFound, "sync job not found", nil)
		case errors.Is(err, service.ErrSyncJobNotTerminal):
			respondError(c, response.CodeConflict, "sync job not in terminal status", nil)
		default:
			respondError(c, response.CodeInternal, "sync job retry failed", err)
		}
		return
	}

	response.SuccessWithMsg(c, "sync job requeued", nil)
}

// ReclaimSyncJobs 回收认领超时的任务
func (h *Handler) ReclaimSyncJobs(c *gin.Context) {
	reclaimed, err := h.SyncService.ReclaimExpired()
	if err != nil {
		respondError(c, response.CodeInternal, "sync job reclaim failed", err)
		return
	}

	response.Success(c, gin.H{"reclaimed": reclaimed})
}

// GetSyncStats 按状态统计同步任务
func (h *Handler) GetSyncStats(c *gin.Context) {
	stats, err := h.SyncService.CountByStatus()
	if err != nil {
		respondError(c, response.CodeInternal, "sync stats fetch failed", err)
		return
	}

	response.Success(c, stats)
}
