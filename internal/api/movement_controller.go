package api

import (
	"net/http"

	"hpmsklad/server/internal/services"

	"github.com/gin-gonic/gin"
)

// MovementController приход и расход по позиции
type MovementController struct {
	movementService *services.MovementService
}

// NewMovementController создает контроллер движений
func NewMovementController(movementService *services.MovementService) *MovementController {
	return &MovementController{movementService: movementService}
}

// Receipt проводит приход (PŘÍJEM) и пересчитывает среднюю цену.
// Если у поставщика еще нет варианты, в ответе varianta_required=true.
// POST /api/v1/sklad/:id/prijem
func (mc *MovementController) Receipt(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req services.ReceiptInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := mc.movementService.Receipt(c.Request.Context(), id, req, currentActor(c))
	if err != nil {
		respondError(c, "Příjem se nezdařil", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Dispatch проводит расход (VÝDEJ)
// POST /api/v1/sklad/:id/vydej
func (mc *MovementController) Dispatch(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req services.DispatchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := mc.movementService.Dispatch(c.Request.Context(), id, req, currentActor(c))
	if err != nil {
		respondError(c, "Výdej se nezdařil", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
