package api

import (
	"io"
	"net/http"

	"hpmsklad/server/internal/services"

	"github.com/gin-gonic/gin"
)

// SkladController управляет API endpoints для складских позиций
type SkladController struct {
	skladService  *services.SkladService
	exportService *services.ExportService
	importService *services.ImportService
}

// NewSkladController создает новый контроллер склада
func NewSkladController(skladService *services.SkladService, exportService *services.ExportService, importService *services.ImportService) *SkladController {
	return &SkladController{
		skladService:  skladService,
		exportService: exportService,
		importService: importService,
	}
}

// List возвращает страницу склада
// GET /api/v1/sklad?query=&kriticky_dil=&ucetnictvi=&pod_minimem=&zarizeni=&sort=&order=&page=
func (sc *SkladController) List(c *gin.Context) {
	page, err := sc.skladService.List(c.Request.Context(), skladFilterFromQuery(c))
	if err != nil {
		respondError(c, "Chyba načtení skladu", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get возвращает карточку с оборудованием и вариантами
// GET /api/v1/sklad/:id
func (sc *SkladController) Get(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	item, err := sc.skladService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Položka nenalezena", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// NextInterneCislo возвращает следующее číslo karty
// GET /api/v1/sklad/next-interne-cislo
func (sc *SkladController) NextInterneCislo(c *gin.Context) {
	n, err := sc.skladService.NextInterneCislo(c.Request.Context())
	if err != nil {
		respondError(c, "Chyba výpočtu čísla karty", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interne_cislo": n})
}

// Create создает карточку
// POST /api/v1/sklad
func (sc *SkladController) Create(c *gin.Context) {
	var req services.SkladInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := sc.skladService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Chyba vytvoření položky", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Update меняет описательные поля (не количество и цены)
// PUT /api/v1/sklad/:id
func (sc *SkladController) Update(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req services.SkladInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := sc.skladService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, "Chyba úpravy položky", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// UpdateObjednano меняет только поле "Objednáno?"
// PATCH /api/v1/sklad/:id/objednano
func (sc *SkladController) UpdateObjednano(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Objednano *string `json:"objednano"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := sc.skladService.UpdateObjednano(c.Request.Context(), id, req.Objednano)
	if err != nil {
		respondError(c, "Chyba úpravy pole Objednáno?", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// SetZarizeni заменяет список оборудования позиции
// PUT /api/v1/sklad/:id/zarizeni
func (sc *SkladController) SetZarizeni(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Zarizeni []string `json:"zarizeni"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := sc.skladService.SetZarizeni(c.Request.Context(), id, req.Zarizeni)
	if err != nil {
		respondError(c, "Chyba přiřazení zařízení", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Delete мягко удаляет карточку, журнал сохраняется
// DELETE /api/v1/sklad/:id
func (sc *SkladController) Delete(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := sc.skladService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, "Chyba smazání položky", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Položka smazána"})
}

// ExportCSV выгружает отфильтрованный склад
// GET /api/v1/sklad/export/csv
func (sc *SkladController) ExportCSV(c *gin.Context) {
	f := skladFilterFromQuery(c)
	sendFile(c, "sklad_export.csv", contentTypeCSV, "Chyba exportu skladu", func(w io.Writer) error {
		return sc.exportService.SkladCSV(c.Request.Context(), f, w)
	})
}

// ExportXLSX выгружает отфильтрованный склад в Excel
// GET /api/v1/sklad/export/xlsx
func (sc *SkladController) ExportXLSX(c *gin.Context) {
	f := skladFilterFromQuery(c)
	sendFile(c, "sklad_export.xlsx", contentTypeXLSX, "Chyba exportu skladu", func(w io.Writer) error {
		return sc.exportService.SkladXLSX(c.Request.Context(), f, w)
	})
}

// Import загружает карточки из CSV или XLSX (поле формы "file")
// POST /api/v1/sklad/import
func (sc *SkladController) Import(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()

	res, err := sc.importService.Import(c.Request.Context(), f, fh.Filename)
	if err != nil {
		respondError(c, "Chyba importu", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
