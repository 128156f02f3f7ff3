package interfaces

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shiftmatch/application"
	"shiftmatch/domain"
)

func (h *HTTPHandler) GetProfile(c *gin.Context) {
	view, err := h.Profiles.Get(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *HTTPHandler) UpdateProfile(c *gin.Context) {
	var in application.ProfileUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	view, err := h.Profiles.Update(c.Request.Context(), actor(c).ID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// readUpload pulls the multipart "file" field into memory.
func (h *HTTPHandler) readUpload(c *gin.Context) (application.Upload, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		h.respondError(c, domain.Validation("file is required"))
		return application.Upload{}, false
	}
	if header.Size > application.MaxUploadBytes {
		h.respondError(c, domain.Validation("ファイルサイズは10MBまでです"))
		return application.Upload{}, false
	}
	f, err := header.Open()
	if err != nil {
		h.respondError(c, fmt.Errorf("failed to open upload: %w", err))
		return application.Upload{}, false
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, application.MaxUploadBytes+1))
	if err != nil {
		h.respondError(c, fmt.Errorf("failed to read upload: %w", err))
		return application.Upload{}, false
	}
	return application.Upload{FileName: header.Filename, Data: data}, true
}

func (h *HTTPHandler) UploadCertificate(c *gin.Context) {
	up, ok := h.readUpload(c)
	if !ok {
		return
	}
	cert, err := h.Profiles.UploadCertificate(c.Request.Context(), actor(c).ID, c.PostForm("qualification"), up)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cert)
}

func (h *HTTPHandler) UploadProfileDocument(c *gin.Context) {
	up, ok := h.readUpload(c)
	if !ok {
		return
	}
	u, err := h.Profiles.UploadDocument(c.Request.Context(), actor(c).ID, application.ProfileDocument(c.Param("kind")), up)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type applyRequest struct {
	WorkDateID  uint   `json:"work_date_id"`
	WorkDateIDs []uint `json:"work_date_ids"`
}

func (h *HTTPHandler) Apply(c *gin.Context) {
	jobID, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	var req applyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, err)
			return
		}
	}
	userID := actor(c).ID
	if len(req.WorkDateIDs) > 0 {
		results, err := h.Applications.ApplyMultiple(c.Request.Context(), userID, jobID, req.WorkDateIDs)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
		return
	}
	app, err := h.Applications.Apply(c.Request.Context(), userID, jobID, req.WorkDateID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func statusFilter(c *gin.Context) []domain.ApplicationStatus {
	raw := c.Query("status")
	if raw == "" {
		return nil
	}
	var out []domain.ApplicationStatus
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, domain.ApplicationStatus(strings.ToUpper(s)))
		}
	}
	return out
}

func (h *HTTPHandler) ListWorkerApplications(c *gin.Context) {
	apps, err := h.Applications.ListForWorker(c.Request.Context(), actor(c).ID, statusFilter(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (h *HTTPHandler) CancelApplication(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	app, err := h.Applications.CancelByWorker(c.Request.Context(), actor(c).ID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// LaborDocument streams the working-conditions notice for workers and facility admins.
func (h *HTTPHandler) LaborDocument(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.LaborDocs.Render(c.Request.Context(), actor(c), id, application.DocumentFormat(c.DefaultQuery("format", "pdf")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.FileName))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

func (h *HTTPHandler) ListMessages(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	msgs, err := h.Messages.List(c.Request.Context(), actor(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *HTTPHandler) SendMessage(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	msg, err := h.Messages.Send(c.Request.Context(), actor(c), id, req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *HTTPHandler) RecordAttendance(c *gin.Context) {
	var in application.RecordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.Attendance.Record(c.Request.Context(), actor(c).ID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *HTTPHandler) AttendanceStatus(c *gin.Context) {
	view, err := h.Attendance.Status(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *HTTPHandler) AttendanceHistory(c *gin.Context) {
	page, err := h.Attendance.History(c.Request.Context(), actor(c).ID, queryInt(c, "page", 1), queryInt(c, "limit", 20))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *HTTPHandler) CreateModification(c *gin.Context) {
	var in application.ModificationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.Attendance.CreateModification(c.Request.Context(), actor(c).ID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *HTTPHandler) ResubmitModification(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	var in application.ModificationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.Attendance.Resubmit(c.Request.Context(), actor(c).ID, id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *HTTPHandler) ListWorkerModifications(c *gin.Context) {
	mods, err := h.Attendance.WorkerModifications(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modifications": mods})
}

type jobReviewRequest struct {
	JobID        uint   `json:"job_id" binding:"required"`
	Rating       int    `json:"rating"`
	GoodPoints   string `json:"good_points"`
	Improvements string `json:"improvements"`
}

func (h *HTTPHandler) ReviewJob(c *gin.Context) {
	var req jobReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	r, err := h.Reviews.ReviewJob(c.Request.Context(), actor(c).ID, application.ReviewInput{
		JobID:        req.JobID,
		Rating:       req.Rating,
		GoodPoints:   req.GoodPoints,
		Improvements: req.Improvements,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *HTTPHandler) ListWorkerReviews(c *gin.Context) {
	reviews, err := h.Reviews.ForWorker(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// inboxOwner maps the caller onto the notification target it reads.
func inboxOwner(a application.Actor) (domain.TargetType, uint) {
	if a.Type == domain.AccountFacilityAdmin {
		return domain.TargetFacility, a.FacilityID
	}
	return domain.TargetWorker, a.ID
}

func (h *HTTPHandler) ListNotifications(c *gin.Context) {
	target, owner := inboxOwner(actor(c))
	items, err := h.Notifier.Inbox(c.Request.Context(), target, owner, queryInt(c, "limit", 50))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func (h *HTTPHandler) MarkNotificationRead(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	target, owner := inboxOwner(actor(c))
	if err := h.Notifier.MarkRead(c.Request.Context(), id, target, owner); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
