package api

import (
	"io"
	"net/http"

	"hpmsklad/server/internal/services"

	"github.com/gin-gonic/gin"
)

// DodavatelController управляет API endpoints для поставщиков
type DodavatelController struct {
	dodavatelService *services.DodavatelService
	exportService    *services.ExportService
}

// NewDodavatelController создает новый контроллер поставщиков
func NewDodavatelController(dodavatelService *services.DodavatelService, exportService *services.ExportService) *DodavatelController {
	return &DodavatelController{
		dodavatelService: dodavatelService,
		exportService:    exportService,
	}
}

// List возвращает поставщиков
// GET /api/v1/dodavatele?query=
func (dc *DodavatelController) List(c *gin.Context) {
	list, err := dc.dodavatelService.GetAll(c.Request.Context(), c.Query("query"))
	if err != nil {
		respondError(c, "Chyba načtení dodavatelů", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dodavatele": list,
		"count":      len(list),
	})
}

// Get возвращает поставщика
// GET /api/v1/dodavatele/:id
func (dc *DodavatelController) Get(c *gin.Context) {
	d, err := dc.dodavatelService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Dodavatel nenalezen", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Create создает поставщика
// POST /api/v1/dodavatele
func (dc *DodavatelController) Create(c *gin.Context) {
	var req services.DodavatelInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := dc.dodavatelService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Chyba vytvoření dodavatele", err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// Update меняет контакты поставщика
// PUT /api/v1/dodavatele/:id
func (dc *DodavatelController) Update(c *gin.Context) {
	var req services.DodavatelInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := dc.dodavatelService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "Chyba úpravy dodavatele", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Delete удаляет поставщика без вариант и запросов
// DELETE /api/v1/dodavatele/:id
func (dc *DodavatelController) Delete(c *gin.Context) {
	if err := dc.dodavatelService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Chyba smazání dodavatele", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dodavatel smazán"})
}

// ExportCSV выгружает поставщиков
// GET /api/v1/dodavatele/export/csv
func (dc *DodavatelController) ExportCSV(c *gin.Context) {
	query := c.Query("query")
	sendFile(c, "dodavatele_export.csv", contentTypeCSV, "Chyba exportu dodavatelů", func(w io.Writer) error {
		return dc.exportService.DodavateleCSV(c.Request.Context(), query, w)
	})
}
