package api

import (
	"net/http"

	"hpmsklad/server/internal/services"

	"github.com/gin-gonic/gin"
)

// ZarizeniController управляет API endpoints для оборудования
type ZarizeniController struct {
	zarizeniService *services.ZarizeniService
}

// NewZarizeniController создает новый контроллер оборудования
func NewZarizeniController(zarizeniService *services.ZarizeniService) *ZarizeniController {
	return &ZarizeniController{zarizeniService: zarizeniService}
}

// List возвращает все оборудование
// GET /api/v1/zarizeni
func (zc *ZarizeniController) List(c *gin.Context) {
	list, err := zc.zarizeniService.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, "Chyba načtení zařízení", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"zarizeni": list,
		"count":    len(list),
	})
}

// Get возвращает оборудование
// GET /api/v1/zarizeni/:id
func (zc *ZarizeniController) Get(c *gin.Context) {
	z, err := zc.zarizeniService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Zařízení nenalezeno", err)
		return
	}
	c.JSON(http.StatusOK, z)
}

// Create создает оборудование
// POST /api/v1/zarizeni
func (zc *ZarizeniController) Create(c *gin.Context) {
	var req services.ZarizeniInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	z, err := zc.zarizeniService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Chyba vytvoření zařízení", err)
		return
	}
	c.JSON(http.StatusCreated, z)
}

// Update меняет оборудование
// PUT /api/v1/zarizeni/:id
func (zc *ZarizeniController) Update(c *gin.Context) {
	var req services.ZarizeniInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	z, err := zc.zarizeniService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "Chyba úpravy zařízení", err)
		return
	}
	c.JSON(http.StatusOK, z)
}

// Delete удаляет оборудование
// DELETE /api/v1/zarizeni/:id
func (zc *ZarizeniController) Delete(c *gin.Context) {
	if err := zc.zarizeniService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Chyba smazání zařízení", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Zařízení smazáno"})
}
