package interfaces

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shiftmatch/application"
	"shiftmatch/domain"
)

func (h *HTTPHandler) SearchBanks(c *gin.Context) {
	res, err := h.Banks.SearchBanks(c.Request.Context(), c.Query("q"), c.Query("source"), queryInt(c, "limit", 0))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *HTTPHandler) SearchBranches(c *gin.Context) {
	res, err := h.Banks.SearchBranches(c.Request.Context(),
		c.Param("bankCode"), c.Query("q"), c.Query("source"), queryInt(c, "limit", 0))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *HTTPHandler) TrackLandingPage(c *gin.Context) {
	var e domain.LPTrackingEvent
	if err := c.ShouldBindJSON(&e); err != nil {
		h.badRequest(c, err)
		return
	}
	e.UserAgent = c.Request.UserAgent()
	if err := h.LandingPages.TrackEvent(c.Request.Context(), e); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *HTTPHandler) ListMinimumWages(c *gin.Context) {
	wages, err := h.MinimumWages.Active(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"minimum_wages": wages})
}

func (h *HTTPHandler) AdminMinimumWages(c *gin.Context) {
	ctx := c.Request.Context()
	view, err := h.MinimumWages.AdminView(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	missing, err := h.MinimumWages.MissingPrefectures(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prefectures": view, "missing_prefectures": missing})
}

func (h *HTTPHandler) UpsertMinimumWage(c *gin.Context) {
	var in application.WageUpsert
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.MinimumWages.Upsert(c.Request.Context(), in, actor(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type importRequest struct {
	CSV           string `json:"csv"`
	EffectiveFrom string `json:"effective_from"`
}

// ImportMinimumWages takes the CSV as a multipart "file" or as JSON.
func (h *HTTPHandler) ImportMinimumWages(c *gin.Context) {
	var req importRequest
	if header, err := c.FormFile("file"); err == nil {
		f, err := header.Open()
		if err != nil {
			h.respondError(c, fmt.Errorf("failed to open csv: %w", err))
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, application.MaxUploadBytes))
		if err != nil {
			h.respondError(c, fmt.Errorf("failed to read csv: %w", err))
			return
		}
		req.CSV = string(data)
		req.EffectiveFrom = c.PostForm("effective_from")
	} else if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	effective := domain.StartOfDayJST(h.Clock.Now())
	if req.EffectiveFrom != "" {
		d, err := domain.ParseJSTDate(req.EffectiveFrom)
		if err != nil {
			h.respondError(c, domain.Validation("effective_from must be YYYY-MM-DD"))
			return
		}
		effective = d
	}
	res, err := h.MinimumWages.Import(c.Request.Context(), req.CSV, effective, actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *HTTPHandler) DeleteScheduledWage(c *gin.Context) {
	id, ok := h.uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.MinimumWages.DeleteScheduled(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *HTTPHandler) MinimumWageHistory(c *gin.Context) {
	hist, err := h.MinimumWages.History(c.Request.Context(), c.Query("prefecture"), queryInt(c, "limit", 100))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": hist})
}

func (h *HTTPHandler) ExportMinimumWages(c *gin.Context) {
	withDate, _ := strconv.ParseBool(c.DefaultQuery("with_date", "false"))
	csv, err := h.MinimumWages.ExportCSV(c.Request.Context(), withDate)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="minimum_wages.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csv))
}

func (h *HTTPHandler) ListNotificationSettings(c *gin.Context) {
	settings, err := h.NotifAdmin.ListSettings(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *HTTPHandler) UpdateNotificationSetting(c *gin.Context) {
	var in application.SettingUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	s, err := h.NotifAdmin.UpdateSetting(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *HTTPHandler) SeedNotificationSettings(c *gin.Context) {
	n, err := h.NotifAdmin.SeedDefaults(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": n})
}

func (h *HTTPHandler) ListNotificationLogs(c *gin.Context) {
	logs, err := h.NotifAdmin.ListLogs(c.Request.Context(), application.NotificationLogFilter{
		Key:     c.Query("key"),
		Channel: domain.NotificationChannel(c.Query("channel")),
		Status:  domain.NotificationLogStatus(c.Query("status")),
		Limit:   queryInt(c, "limit", 100),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

type testEmailRequest struct {
	NotificationKey string `json:"notification_key" binding:"required"`
	To              string `json:"to" binding:"required,email"`
}

func (h *HTTPHandler) SendTestEmail(c *gin.Context) {
	var req testEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.NotifAdmin.SendTestEmail(c.Request.Context(), req.NotificationKey, req.To); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *HTTPHandler) ListSettings(c *gin.Context) {
	settings, err := h.Settings.GetAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

type settingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}

func (h *HTTPHandler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.Settings.BulkUpdate(c.Request.Context(), req.Settings, actor(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *HTTPHandler) ListLandingPages(c *gin.Context) {
	pages, err := h.LandingPages.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"landing_pages": pages})
}

func (h *HTTPHandler) CreateLandingPage(c *gin.Context) {
	var in application.LandingPageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	lp, err := h.LandingPages.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lp)
}

func (h *HTTPHandler) UpdateLandingPage(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("lpNumber"))
	if err != nil || n <= 0 {
		h.respondError(c, domain.Validation("lpNumber must be a positive integer"))
		return
	}
	var in application.LandingPageUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	lp, err := h.LandingPages.Update(c.Request.Context(), n, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lp)
}

type checkTagsRequest struct {
	LPNumbers []int `json:"lpNumbers"`
}

func (h *HTTPHandler) CheckLandingPageTags(c *gin.Context) {
	var req checkTagsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, err)
			return
		}
	}
	results, err := h.LandingPages.CheckTags(c.Request.Context(), req.LPNumbers)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// AnalyticsSummary defaults to the last 30 days.
func (h *HTTPHandler) AnalyticsSummary(c *gin.Context) {
	to := h.Clock.Now()
	from := to.AddDate(0, 0, -30)
	if v := c.Query("from"); v != "" {
		d, err := domain.ParseJSTDate(v)
		if err != nil {
			h.respondError(c, domain.Validation("from must be YYYY-MM-DD"))
			return
		}
		from = d
	}
	if v := c.Query("to"); v != "" {
		d, err := domain.ParseJSTDate(v)
		if err != nil {
			h.respondError(c, domain.Validation("to must be YYYY-MM-DD"))
			return
		}
		to = d.Add(24*time.Hour - time.Nanosecond)
	}
	sum, err := h.Analytics.Summary(c.Request.Context(), from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *HTTPHandler) AnalyticsForecast(c *gin.Context) {
	var in domain.ForecastInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	f, err := h.Analytics.Forecast(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *HTTPHandler) ActivityLogs(c *gin.Context) {
	logs, err := h.Activity.Recent(c.Request.Context(), queryInt(c, "limit", 100))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
