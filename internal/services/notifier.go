package services

import (
	"log"
	"time"

	"hpmsklad/server/internal/models"
)

// MovementEvent событие движения по складу (после commit)
type MovementEvent struct {
	Typ               models.TypOperace `json:"typ_operace"`
	EvidencniCislo    uint              `json:"evidencni_cislo"`
	NazevDilu         string            `json:"nazev_dilu"`
	ZmenaMnozstvi     int               `json:"zmena_mnozstvi"`
	Mnozstvi          int               `json:"mnozstvi"`
	Jednotky          models.Jednotky   `json:"jednotky"`
	JednotkovaCenaEur float64           `json:"jednotkova_cena_eur"`
	CelkovaCenaEur    float64           `json:"celkova_cena_eur"`
	PodMinimem        bool              `json:"pod_minimem"`
	AuditLogID        uint              `json:"audit_log_id"`
	OperaciProvedl    string            `json:"operaci_provedl"`
	Cas               time.Time         `json:"cas"`
}

// MovementNotifier получает события движения. Ошибки доставки логируются самим
// получателем и не влияют на уже закоммиченную операцию.
type MovementNotifier interface {
	NotifyMovement(ev MovementEvent)
}

// MultiNotifier рассылает событие нескольким получателям
type MultiNotifier []MovementNotifier

func (m MultiNotifier) NotifyMovement(ev MovementEvent) {
	for _, n := range m {
		if n == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("❌ Паника в MovementNotifier %T: %v", n, r)
				}
			}()
			n.NotifyMovement(ev)
		}()
	}
}

func newMovementEvent(item *models.Sklad, entry *models.AuditLog) MovementEvent {
	return MovementEvent{
		Typ:               entry.TypOperace,
		EvidencniCislo:    item.EvidencniCislo,
		NazevDilu:         item.NazevDilu,
		ZmenaMnozstvi:     entry.ZmenaMnozstvi,
		Mnozstvi:          item.Mnozstvi,
		Jednotky:          item.Jednotky,
		JednotkovaCenaEur: item.JednotkovaCenaEur,
		CelkovaCenaEur:    item.CelkovaCenaEur,
		PodMinimem:        item.IsPodMinimem(),
		AuditLogID:        entry.ID,
		OperaciProvedl:    entry.OperaciProvedl,
		Cas:               entry.CasVytvoreni,
	}
}
