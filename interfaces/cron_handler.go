package interfaces

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shiftmatch/application"
)

// cronDone records the run and writes the result.
func (h *HTTPHandler) cronDone(c *gin.Context, job string, result any, err error) {
	h.recorder.CronRun(job, err)
	if err != nil {
		h.logger.Error("cron job failed", zap.String("job", job), zap.Error(err))
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "job": job, "result": result})
}

func (h *HTTPHandler) CronUpdateStatuses(c *gin.Context) {
	res, err := h.Statuses.Run(c.Request.Context(), application.StatusScope{})
	h.cronDone(c, "update-statuses", res, err)
}

func (h *HTTPHandler) CronJobBatch(c *gin.Context) {
	res := h.JobBatch.Run(c.Request.Context())
	if len(res.Errors) > 0 {
		h.logger.Warn("job batch finished with errors", zap.Strings("errors", res.Errors))
		h.recorder.CronRun("job-batch", errors.New(res.Errors[0]))
	} else {
		h.recorder.CronRun("job-batch", nil)
	}
	c.JSON(http.StatusOK, gin.H{"success": len(res.Errors) == 0, "job": "job-batch", "result": res})
}

// CronReminders runs both reminder passes; ?kind= limits it to one.
func (h *HTTPHandler) CronReminders(c *gin.Context) {
	kinds := []application.ReminderKind{application.ReminderDayBefore, application.ReminderSameDay}
	if k := c.Query("kind"); k != "" {
		kinds = []application.ReminderKind{application.ReminderKind(k)}
	}
	total := application.ReminderResult{}
	var errs []error
	for _, k := range kinds {
		res, err := h.Reminders.Run(c.Request.Context(), k)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		total.WorkerDayBefore += res.WorkerDayBefore
		total.FacilityDayBefore += res.FacilityDayBefore
		total.WorkerSameDay += res.WorkerSameDay
	}
	h.cronDone(c, "notifications", total, errors.Join(errs...))
}

func (h *HTTPHandler) CronPromoteWages(c *gin.Context) {
	n, err := h.MinimumWages.Promote(c.Request.Context())
	h.cronDone(c, "minimum-wage-promote", gin.H{"archived": n}, err)
}

func (h *HTTPHandler) CronUpdateBankData(c *gin.Context) {
	res, err := h.Banks.UpdateBankData(c.Request.Context())
	h.cronDone(c, "update-bank-data", res, err)
}
