package api

import (
	"net/http"

	"hpmsklad/server/internal/services"

	"github.com/gin-gonic/gin"
)

// VariantaController варианты позиции у поставщиков
type VariantaController struct {
	variantaService *services.VariantaService
}

// NewVariantaController создает контроллер вариант
func NewVariantaController(variantaService *services.VariantaService) *VariantaController {
	return &VariantaController{variantaService: variantaService}
}

// ListBySklad возвращает варианты позиции, самые дешевые первыми
// GET /api/v1/sklad/:id/varianty
func (vc *VariantaController) ListBySklad(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	list, err := vc.variantaService.ListBySklad(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Chyba načtení variant", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"varianty": list,
		"count":    len(list),
	})
}

// Create создает варианту для пары (позиция, поставщик)
// POST /api/v1/sklad/:id/varianty
func (vc *VariantaController) Create(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req services.VariantaInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := vc.variantaService.Create(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, "Chyba vytvoření varianty", err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// Update меняет цену, срок поставки и минимальное количество
// PUT /api/v1/varianty/:id
func (vc *VariantaController) Update(c *gin.Context) {
	var req services.VariantaInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := vc.variantaService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "Chyba úpravy varianty", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Delete удаляет варианту вместе со строками запросов
// DELETE /api/v1/varianty/:id
func (vc *VariantaController) Delete(c *gin.Context) {
	if err := vc.variantaService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Chyba smazání varianty", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Varianta smazána"})
}
