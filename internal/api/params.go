package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"hpmsklad/server/internal/services"

	"github.com/gin-gonic/gin"
)

// parseUintParam разбирает числовой параметр пути
func parseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Neplatné ID",
			"details": fmt.Sprintf("%s=%q", name, c.Param(name)),
		})
		return 0, false
	}
	return uint(id), true
}

// optBool разбирает необязательный булев параметр запроса (true/false, ano/ne)
func optBool(c *gin.Context, key string) *bool {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil
	}
	var v bool
	switch raw {
	case "ano", "ANO", "on":
		v = true
	case "ne", "NE", "off":
		v = false
	default:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil
		}
		v = b
	}
	return &v
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

func skladFilterFromQuery(c *gin.Context) services.SkladFilter {
	return services.SkladFilter{
		Query:       c.Query("query"),
		KritickyDil: optBool(c, "kriticky_dil"),
		Ucetnictvi:  optBool(c, "ucetnictvi"),
		PodMinimem:  optBool(c, "pod_minimem"),
		Zarizeni:    c.Query("zarizeni"),
		Sort:        c.Query("sort"),
		Order:       c.Query("order"),
		Page:        queryInt(c, "page"),
	}
}

func auditFilterFromQuery(c *gin.Context) services.AuditLogFilter {
	f := services.AuditLogFilter{
		Query:      c.Query("query"),
		Ucetnictvi: optBool(c, "ucetnictvi"),
		TypOperace: c.Query("typ_operace"),
		TypUdrzby:  c.Query("typ_udrzby"),
		Month:      queryInt(c, "month"),
		Year:       queryInt(c, "year"),
		Sort:       c.Query("sort"),
		Order:      c.Query("order"),
		Page:       queryInt(c, "page"),
	}
	if id, err := strconv.ParseUint(c.Query("evidencni_cislo"), 10, 64); err == nil {
		f.EvidencniCislo = uint(id)
	}
	return f
}

// sendFile формирует файл в памяти и отдает его как вложение.
// Ошибка до отправки превращается в обычный JSON ответ.
func sendFile(c *gin.Context, filename, contentType, errMessage string, render func(w io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		respondError(c, errMessage, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
	contentTypeHTML = "text/html; charset=utf-8"
)
