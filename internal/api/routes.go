package api

import (
	"net/http"

	"hpmsklad/server/internal/models"
	"hpmsklad/server/internal/services"

	"github.com/gin-gonic/gin"
)

// Services набор сервисов, которые обслуживает HTTP API
type Services struct {
	Auth       *services.AuthService
	Sklad      *services.SkladService
	Movements  *services.MovementService
	AuditLog   *services.AuditLogService
	Dodavatele *services.DodavatelService
	Zarizeni   *services.ZarizeniService
	Varianty   *services.VariantaService
	Poptavky   *services.PoptavkaService
	Export     *services.ExportService
	Import     *services.ImportService
	Report     *services.ReportService
}

// NewRouter собирает gin engine со всеми маршрутами /api/v1
func NewRouter(svc Services, hub *Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Health check до логирования, чтобы не засорять логи
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"service":    "HPM Sklad",
			"ws_clients": hub.GetClientsCount(),
		})
	})

	r.Use(RequestLogger())
	r.Use(CORS())

	v1 := r.Group("/api/v1")

	authController := NewAuthController(svc.Auth)
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/login", authController.Login)
		authGroup.POST("/signup", authController.Signup)
		authGroup.GET("/me", AuthRequired(svc.Auth), authController.Me)
	}

	protected := v1.Group("")
	protected.Use(AuthRequired(svc.Auth))

	// Склад
	skladController := NewSkladController(svc.Sklad, svc.Export, svc.Import)
	movementController := NewMovementController(svc.Movements)
	variantaController := NewVariantaController(svc.Varianty)
	sklad := protected.Group("/sklad")
	{
		sklad.GET("", skladController.List)
		sklad.POST("", RequirePermission(models.PermAddSklad), skladController.Create)
		sklad.GET("/next-interne-cislo", skladController.NextInterneCislo)
		sklad.GET("/export/csv", skladController.ExportCSV)
		sklad.GET("/export/xlsx", skladController.ExportXLSX)
		sklad.POST("/import", RequirePermission(models.PermAddSklad), skladController.Import)
		sklad.GET("/:id", skladController.Get)
		sklad.PUT("/:id", RequirePermission(models.PermChangeSklad), skladController.Update)
		sklad.PATCH("/:id/objednano", RequirePermission(models.PermChangeObjednanoSklad), skladController.UpdateObjednano)
		sklad.DELETE("/:id", RequirePermission(models.PermDeleteSklad), skladController.Delete)
		sklad.PUT("/:id/zarizeni", RequirePermission(models.PermChangeSklad), skladController.SetZarizeni)
		sklad.POST("/:id/prijem", RequirePermission(models.PermChangeSklad, models.PermAddAuditLog), movementController.Receipt)
		sklad.POST("/:id/vydej", RequirePermission(models.PermChangeSklad, models.PermAddAuditLog), movementController.Dispatch)
		sklad.GET("/:id/varianty", variantaController.ListBySklad)
		sklad.POST("/:id/varianty", RequirePermission(models.PermAddVarianty), variantaController.Create)
	}
	varianty := protected.Group("/varianty")
	{
		varianty.PUT("/:id", RequirePermission(models.PermChangeVarianty), variantaController.Update)
		varianty.DELETE("/:id", RequirePermission(models.PermChangeVarianty), variantaController.Delete)
	}

	// Журнал
	auditController := NewAuditLogController(svc.AuditLog, svc.Export, svc.Report)
	audit := protected.Group("/audit-log")
	{
		audit.GET("", auditController.List)
		audit.GET("/export/csv", auditController.ExportCSV)
		audit.GET("/export/spotreba", auditController.ExportSpotreba)
		audit.GET("/graph/spotreba.pdf", auditController.SpotrebaPDF)
		audit.GET("/graph/udrzba.pdf", auditController.UdrzbaPDF)
		audit.GET("/graph/spotreba.html", auditController.SpotrebaHTML)
		audit.GET("/:id", auditController.Get)
	}

	// Поставщики
	dodavatelController := NewDodavatelController(svc.Dodavatele, svc.Export)
	dodavatele := protected.Group("/dodavatele")
	{
		dodavatele.GET("", dodavatelController.List)
		dodavatele.POST("", RequirePermission(models.PermAddDodavatele), dodavatelController.Create)
		dodavatele.GET("/export/csv", dodavatelController.ExportCSV)
		dodavatele.GET("/:id", dodavatelController.Get)
		dodavatele.PUT("/:id", RequirePermission(models.PermChangeDodavatele), dodavatelController.Update)
		dodavatele.DELETE("/:id", RequirePermission(models.PermChangeDodavatele), dodavatelController.Delete)
	}

	// Оборудование
	zarizeniController := NewZarizeniController(svc.Zarizeni)
	zarizeni := protected.Group("/zarizeni")
	{
		zarizeni.GET("", zarizeniController.List)
		zarizeni.POST("", RequirePermission(models.PermAddZarizeni), zarizeniController.Create)
		zarizeni.GET("/:id", zarizeniController.Get)
		zarizeni.PUT("/:id", RequirePermission(models.PermChangeZarizeni), zarizeniController.Update)
		zarizeni.DELETE("/:id", RequirePermission(models.PermChangeZarizeni), zarizeniController.Delete)
	}

	// Запросы поставщикам
	poptavkaController := NewPoptavkaController(svc.Poptavky, svc.Export)
	poptavky := protected.Group("/poptavky")
	{
		poptavky.GET("", poptavkaController.List)
		poptavky.POST("", RequirePermission(models.PermAddPoptavky), poptavkaController.Create)
		poptavky.POST("/generate", RequirePermission(models.PermAddPoptavky), poptavkaController.Generate)
		poptavky.GET("/:id", poptavkaController.Get)
		poptavky.DELETE("/:id", RequirePermission(models.PermChangePoptavky), poptavkaController.Delete)
		poptavky.POST("/:id/polozky", RequirePermission(models.PermChangePoptavky), poptavkaController.AddPolozka)
		poptavky.PUT("/:id/polozky/:itemId", RequirePermission(models.PermChangePoptavky), poptavkaController.UpdatePolozka)
		poptavky.DELETE("/:id/polozky/:itemId", RequirePermission(models.PermChangePoptavky), poptavkaController.RemovePolozka)
		poptavky.POST("/:id/odeslat", RequirePermission(models.PermChangePoptavky), poptavkaController.Odeslat)
		poptavky.POST("/:id/uzavrit", RequirePermission(models.PermChangePoptavky), poptavkaController.Uzavrit)
		poptavky.GET("/:id/export/csv", poptavkaController.ExportCSV)
	}

	// Живая лента движений
	wsController := NewWSController(hub)
	protected.GET("/ws", wsController.ServeWS)

	return r
}
