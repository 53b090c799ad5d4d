package api

import (
	"bytes"
	"io"
	"net/http"

	"hpmsklad/server/internal/services"

	"github.com/gin-gonic/gin"
)

// AuditLogController журнал движений, его выгрузки и графики
type AuditLogController struct {
	auditService  *services.AuditLogService
	exportService *services.ExportService
	reportService *services.ReportService
}

// NewAuditLogController создает контроллер журнала
func NewAuditLogController(auditService *services.AuditLogService, exportService *services.ExportService, reportService *services.ReportService) *AuditLogController {
	return &AuditLogController{
		auditService:  auditService,
		exportService: exportService,
		reportService: reportService,
	}
}

// List возвращает страницу журнала
// GET /api/v1/audit-log?query=&ucetnictvi=&typ_operace=&typ_udrzby=&month=&year=&sort=&order=&page=
func (ac *AuditLogController) List(c *gin.Context) {
	page, err := ac.auditService.List(c.Request.Context(), auditFilterFromQuery(c))
	if err != nil {
		respondError(c, "Chyba načtení záznamů", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get возвращает запись журнала
// GET /api/v1/audit-log/:id
func (ac *AuditLogController) Get(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	entry, err := ac.auditService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Záznam nenalezen", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ExportCSV выгружает отфильтрованный журнал
// GET /api/v1/audit-log/export/csv
func (ac *AuditLogController) ExportCSV(c *gin.Context) {
	f := auditFilterFromQuery(c)
	sendFile(c, "audit_log_export.csv", contentTypeCSV, "Chyba exportu záznamů", func(w io.Writer) error {
		return ac.exportService.AuditLogCSV(c.Request.Context(), f, w)
	})
}

// ExportSpotreba выгружает только расходы
// GET /api/v1/audit-log/export/spotreba
func (ac *AuditLogController) ExportSpotreba(c *gin.Context) {
	f := auditFilterFromQuery(c)
	sendFile(c, "spotreba_export.csv", contentTypeCSV, "Chyba exportu spotřeby", func(w io.Writer) error {
		return ac.exportService.SpotrebaCSV(c.Request.Context(), f, w)
	})
}

// SpotrebaPDF график расходов по месяцам
// GET /api/v1/audit-log/graph/spotreba.pdf
func (ac *AuditLogController) SpotrebaPDF(c *gin.Context) {
	f := auditFilterFromQuery(c)
	sendFile(c, "spotreba.pdf", contentTypePDF, "Chyba vytvoření grafu", func(w io.Writer) error {
		return ac.reportService.SpotrebaPDF(c.Request.Context(), f, w)
	})
}

// UdrzbaPDF график расходов по типу обслуживания
// GET /api/v1/audit-log/graph/udrzba.pdf
func (ac *AuditLogController) UdrzbaPDF(c *gin.Context) {
	f := auditFilterFromQuery(c)
	sendFile(c, "udrzba.pdf", contentTypePDF, "Chyba vytvoření grafu", func(w io.Writer) error {
		return ac.reportService.UdrzbaPDF(c.Request.Context(), f, w)
	})
}

// SpotrebaHTML оба графика интерактивно
// GET /api/v1/audit-log/graph/spotreba.html
func (ac *AuditLogController) SpotrebaHTML(c *gin.Context) {
	f := auditFilterFromQuery(c)
	var buf bytes.Buffer
	if err := ac.reportService.SpotrebaHTML(c.Request.Context(), f, &buf); err != nil {
		respondError(c, "Chyba vytvoření grafu", err)
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, buf.Bytes())
}
