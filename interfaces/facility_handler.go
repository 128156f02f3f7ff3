package interfaces

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"shiftmatch/application"
	"shiftmatch/domain"
)

func (h *HTTPHandler) ListPublishedJobs(c *gin.Context) {
	page, err := h.Jobs.ListPublished(c.Request.Context(),
		c.Query("prefecture"), c.Query("date"), queryInt(c, "page", 1), queryInt(c, "limit", 20))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *HTTPHandler) JobDetail(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	job, err := h.Jobs.Detail(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *HTTPHandler) ListFacilityJobs(c *gin.Context) {
	jobs, err := h.Jobs.ListForFacility(c.Request.Context(), actor(c).FacilityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *HTTPHandler) CreateJob(c *gin.Context) {
	var in application.JobInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	job, err := h.Jobs.Create(c.Request.Context(), actor(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *HTTPHandler) UpdateJob(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	var in application.JobInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	job, err := h.Jobs.Update(c.Request.Context(), actor(c), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *HTTPHandler) SetJobStatus(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	job, err := h.Jobs.SetStatus(c.Request.Context(), actor(c), id, domain.JobStatus(strings.ToUpper(req.Status)))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *HTTPHandler) DeleteJob(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.Jobs.Delete(c.Request.Context(), actor(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) ListFacilityApplications(c *gin.Context) {
	var jobID uint
	if v, err := strconv.ParseUint(c.Query("job_id"), 10, 64); err == nil {
		jobID = uint(v)
	}
	apps, err := h.Applications.ListForFacility(c.Request.Context(), actor(c).FacilityID, jobID, statusFilter(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (h *HTTPHandler) UpdateApplicationStatus(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	app, err := h.Applications.UpdateStatusByFacility(c.Request.Context(), actor(c), id,
		domain.ApplicationStatus(strings.ToUpper(req.Status)))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *HTTPHandler) ReviewWorker(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	var in application.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	r, err := h.Reviews.ReviewWorker(c.Request.Context(), actor(c), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *HTTPHandler) ListFacilityReviews(c *gin.Context) {
	reviews, err := h.Reviews.ForFacility(c.Request.Context(), actor(c).FacilityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

func (h *HTTPHandler) ListPendingModifications(c *gin.Context) {
	ctx := c.Request.Context()
	facilityID := actor(c).FacilityID
	mods, err := h.Attendance.PendingModifications(ctx, facilityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	count, err := h.Attendance.PendingCount(ctx, facilityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modifications": mods, "pending_count": count})
}

func (h *HTTPHandler) ApproveModification(c *gin.Context) {
	h.reviewModification(c, h.Attendance.Approve)
}

func (h *HTTPHandler) RejectModification(c *gin.Context) {
	h.reviewModification(c, h.Attendance.Reject)
}

func (h *HTTPHandler) reviewModification(c *gin.Context,
	decide func(ctx context.Context, actor application.Actor, id uint, in application.ReviewModificationInput) (*domain.AttendanceModificationRequest, error)) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	var in application.ReviewModificationInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			h.badRequest(c, err)
			return
		}
	}
	mod, err := decide(c.Request.Context(), actor(c), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mod)
}

func (h *HTTPHandler) AttendanceSettings(c *gin.Context) {
	s, err := h.Attendance.Settings(c.Request.Context(), actor(c).FacilityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *HTTPHandler) RegenerateQR(c *gin.Context) {
	s, err := h.Attendance.RegenerateQR(c.Request.Context(), actor(c).FacilityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type emergencyCodeRequest struct {
	Code string `json:"emergency_code" binding:"required"`
}

func (h *HTTPHandler) UpdateEmergencyCode(c *gin.Context) {
	var req emergencyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	s, err := h.Attendance.UpdateEmergencyCode(c.Request.Context(), actor(c).FacilityID, req.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *HTTPHandler) PayrollWorkbook(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		month = h.Clock.Now().In(domain.JST).Format("2006-01")
	}
	data, name, err := h.Attendance.PayrollWorkbook(c.Request.Context(), actor(c).FacilityID, month)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, data)
}
