package api

import (
	"bytes"
	"fmt"
	"net/http"

	"hpmsklad/server/internal/models"
	"hpmsklad/server/internal/services"

	"github.com/gin-gonic/gin"
)

// PoptavkaController управляет запросами поставщикам (poptávky)
type PoptavkaController struct {
	poptavkaService *services.PoptavkaService
	exportService   *services.ExportService
}

// NewPoptavkaController создает контроллер запросов
func NewPoptavkaController(poptavkaService *services.PoptavkaService, exportService *services.ExportService) *PoptavkaController {
	return &PoptavkaController{
		poptavkaService: poptavkaService,
		exportService:   exportService,
	}
}

// List возвращает запросы, новые первыми
// GET /api/v1/poptavky?stav=&dodavatel_id=
func (pc *PoptavkaController) List(c *gin.Context) {
	list, err := pc.poptavkaService.List(c.Request.Context(), services.PoptavkaFilter{
		Stav:        models.StavPoptavky(c.Query("stav")),
		DodavatelID: c.Query("dodavatel_id"),
	})
	if err != nil {
		respondError(c, "Chyba načtení poptávek", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"poptavky": list,
		"count":    len(list),
	})
}

// Get возвращает запрос со строками
// GET /api/v1/poptavky/:id
func (pc *PoptavkaController) Get(c *gin.Context) {
	p, err := pc.poptavkaService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Poptávka nenalezena", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Create создает черновик для поставщика с необязательными строками
// POST /api/v1/poptavky
func (pc *PoptavkaController) Create(c *gin.Context) {
	var req struct {
		DodavatelID string                  `json:"dodavatel_id" binding:"required"`
		Polozky     []services.PolozkaInput `json:"polozky"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := pc.poptavkaService.Create(c.Request.Context(), req.DodavatelID, req.Polozky, currentActor(c))
	if err != nil {
		respondError(c, "Chyba vytvoření poptávky", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Generate создает черновик из позиций под минимумом с вариантой поставщика
// POST /api/v1/poptavky/generate
func (pc *PoptavkaController) Generate(c *gin.Context) {
	var req struct {
		DodavatelID string `json:"dodavatel_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := pc.poptavkaService.Generate(c.Request.Context(), req.DodavatelID, currentActor(c))
	if err != nil {
		respondError(c, "Chyba generování poptávky", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Delete удаляет черновик
// DELETE /api/v1/poptavky/:id
func (pc *PoptavkaController) Delete(c *gin.Context) {
	if err := pc.poptavkaService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Chyba smazání poptávky", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Poptávka smazána"})
}

// AddPolozka добавляет строку в черновик
// POST /api/v1/poptavky/:id/polozky
func (pc *PoptavkaController) AddPolozka(c *gin.Context) {
	var req services.PolozkaInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	line, err := pc.poptavkaService.AddPolozka(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "Chyba přidání položky", err)
		return
	}
	c.JSON(http.StatusCreated, line)
}

// UpdatePolozka меняет количество строки
// PUT /api/v1/poptavky/:id/polozky/:itemId
func (pc *PoptavkaController) UpdatePolozka(c *gin.Context) {
	var req struct {
		Mnozstvi int `json:"mnozstvi"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	line, err := pc.poptavkaService.UpdatePolozka(c.Request.Context(), c.Param("id"), c.Param("itemId"), req.Mnozstvi)
	if err != nil {
		respondError(c, "Chyba úpravy položky", err)
		return
	}
	c.JSON(http.StatusOK, line)
}

// RemovePolozka удаляет строку
// DELETE /api/v1/poptavky/:id/polozky/:itemId
func (pc *PoptavkaController) RemovePolozka(c *gin.Context) {
	if err := pc.poptavkaService.RemovePolozka(c.Request.Context(), c.Param("id"), c.Param("itemId")); err != nil {
		respondError(c, "Chyba odebrání položky", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Položka odebrána"})
}

// Odeslat переводит Tvorba -> Poptáno
// POST /api/v1/poptavky/:id/odeslat
func (pc *PoptavkaController) Odeslat(c *gin.Context) {
	p, err := pc.poptavkaService.Odeslat(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Poptávku nelze odeslat", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Uzavrit переводит Poptáno -> Uzavřeno
// POST /api/v1/poptavky/:id/uzavrit
func (pc *PoptavkaController) Uzavrit(c *gin.Context) {
	p, err := pc.poptavkaService.Uzavrit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Poptávku nelze uzavřít", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ExportCSV выгружает строки запроса на языке поставщика
// GET /api/v1/poptavky/:id/export/csv
func (pc *PoptavkaController) ExportCSV(c *gin.Context) {
	var buf bytes.Buffer
	filename, err := pc.exportService.PoptavkaCSV(c.Request.Context(), c.Param("id"), &buf)
	if err != nil {
		respondError(c, "Chyba exportu poptávky", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentTypeCSV, buf.Bytes())
}
