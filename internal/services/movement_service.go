package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"hpmsklad/server/internal/database"
	"hpmsklad/server/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Actor кто выполняет операцию (для журнала)
type Actor struct {
	UserID   *string
	Username string
}

// ActorFromUser строит Actor из пользователя
func ActorFromUser(u *models.User) Actor {
	if u == nil {
		return Actor{Username: "system"}
	}
	id := u.ID
	return Actor{UserID: &id, Username: u.Username}
}

// ReceiptInput данные прихода (PŘÍJEM)
type ReceiptInput struct {
	ZmenaMnozstvi     int     `json:"zmena_mnozstvi"`
	JednotkovaCenaEur float64 `json:"jednotkova_cena_eur"`
	DodavatelID       string  `json:"dodavatel_id"`
	CisloObjednavky   string  `json:"cislo_objednavky"`
	DatumNakupu       string  `json:"datum_nakupu"` // YYYY-MM-DD
	Objednano         *string `json:"objednano"`
	Umisteni          *string `json:"umisteni"`
	Poznamka          *string `json:"poznamka"`
}

// DispatchInput данные расхода (VÝDEJ)
type DispatchInput struct {
	ZmenaMnozstvi   int     `json:"zmena_mnozstvi"`
	PouziteZarizeni string  `json:"pouzite_zarizeni"` // Код оборудования
	DatumVydeje     string  `json:"datum_vydeje"`     // YYYY-MM-DD
	TypUdrzby       *string `json:"typ_udrzby"`
	Umisteni        *string `json:"umisteni"`
	Poznamka        *string `json:"poznamka"`
}

// MovementResult результат операции
type MovementResult struct {
	Sklad            *models.Sklad    `json:"sklad"`
	AuditLog         *models.AuditLog `json:"audit_log"`
	VariantaRequired bool             `json:"varianta_required"` // Для поставщика еще нет варианты
	DodavatelID      string           `json:"dodavatel_id,omitempty"`
}

// MovementService проводит приход и расход: количество, средневзвешенная цена
// и запись в журнал в одной транзакции
type MovementService struct {
	db           *gorm.DB
	notifier     MovementNotifier
	skladService *SkladService
	now          func() time.Time
}

// NewMovementService создает новый экземпляр MovementService
func NewMovementService(db *gorm.DB) *MovementService {
	return &MovementService{db: db, now: time.Now}
}

// SetNotifier устанавливает получателя событий движения
func (s *MovementService) SetNotifier(n MovementNotifier) {
	s.notifier = n
}

// SetSkladService устанавливает сервис склада (инвалидация кэша карточек)
func (s *MovementService) SetSkladService(ss *SkladService) {
	s.skladService = ss
}

// lockItem читает позицию с блокировкой строки (SELECT ... FOR UPDATE на PostgreSQL)
func lockItem(tx *gorm.DB, id uint) (*models.Sklad, error) {
	q := tx
	if database.IsPostgres(tx) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item models.Sklad
	if err := q.First(&item, "evidencni_cislo = ?", id).Error; err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("položka %d", id))
	}
	return &item, nil
}

func (in *ReceiptInput) validate(now time.Time) (time.Time, error) {
	if in.ZmenaMnozstvi < 1 {
		return time.Time{}, validationError("zmena_mnozstvi", "musí být alespoň 1")
	}
	if in.JednotkovaCenaEur <= 0 {
		return time.Time{}, validationError("jednotkova_cena_eur", "jednotková cena musí být větší než nula")
	}
	if strings.TrimSpace(in.DodavatelID) == "" {
		return time.Time{}, validationError("dodavatel_id", "povinné pole")
	}
	if strings.TrimSpace(in.CisloObjednavky) == "" {
		return time.Time{}, validationError("cislo_objednavky", "povinné pole")
	}
	if len(in.CisloObjednavky) > 20 {
		return time.Time{}, validationError("cislo_objednavky", "maximálně 20 znaků")
	}
	return parseDate("datum_nakupu", in.DatumNakupu, now)
}

// Receipt проводит приход на позицию id
func (s *MovementService) Receipt(ctx context.Context, id uint, in ReceiptInput, actor Actor) (*MovementResult, error) {
	datumNakupu, err := in.validate(s.now())
	if err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var dodavatel models.Dodavatel
	if err := tx.First(&dodavatel, "id = ?", in.DodavatelID).Error; err != nil {
		tx.Rollback()
		return nil, notFoundOr(err, "dodavatel")
	}

	item, err := lockItem(tx, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	calc := CalcReceipt(item.Mnozstvi, money(item.CelkovaCenaEur), in.ZmenaMnozstvi, money(in.JednotkovaCenaEur))

	item.Mnozstvi = calc.Mnozstvi
	item.JednotkovaCenaEur = calc.JednotkovaCena.InexactFloat64()
	item.CelkovaCenaEur = calc.CelkovaCena.InexactFloat64()
	item.Dodavatel = &dodavatel.Dodavatel
	item.DatumNakupu = &datumNakupu
	cislo := strings.TrimSpace(in.CisloObjednavky)
	item.CisloObjednavky = &cislo
	if in.Objednano != nil {
		item.Objednano = optionalString(in.Objednano)
	}
	if in.Umisteni != nil {
		item.Umisteni = optionalString(in.Umisteni)
	}
	if in.Poznamka != nil {
		item.Poznamka = optionalString(in.Poznamka)
	}

	if err := saveMovementFields(tx, item); err != nil {
		tx.Rollback()
		return nil, err
	}

	entry := auditFromItem(item, actor)
	entry.TypOperace = models.TypOperacePrijem
	entry.ZmenaMnozstvi = in.ZmenaMnozstvi
	entry.DatumNakupu = item.DatumNakupu
	entry.JednotkovaCenaEur = calc.LogJednotkova.InexactFloat64()
	entry.CelkovaCenaEur = calc.LogCelkova.InexactFloat64()
	if err := tx.Create(entry).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка записи в журнал: %w", err)
	}

	var variantCount int64
	if err := tx.Model(&models.Varianta{}).
		Where("sklad_id = ? AND dodavatel_id = ?", item.EvidencniCislo, dodavatel.ID).
		Count(&variantCount).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка commit прихода: %w", err)
	}

	log.Printf("📦 PŘÍJEM: %dx %s (evid. č. %d) → %d %s, %.2f EUR/ks",
		in.ZmenaMnozstvi, item.NazevDilu, item.EvidencniCislo, item.Mnozstvi, item.Jednotky, item.JednotkovaCenaEur)
	s.afterCommit(item, entry)

	item.PodMinimem = item.IsPodMinimem()
	return &MovementResult{
		Sklad:            item,
		AuditLog:         entry,
		VariantaRequired: variantCount == 0,
		DodavatelID:      dodavatel.ID,
	}, nil
}

func (in *DispatchInput) validate(now time.Time) (time.Time, *models.TypUdrzby, error) {
	if in.ZmenaMnozstvi < 1 {
		return time.Time{}, nil, validationError("zmena_mnozstvi", "musí být alespoň 1")
	}
	if strings.TrimSpace(in.PouziteZarizeni) == "" {
		return time.Time{}, nil, validationError("pouzite_zarizeni", "povinné pole")
	}
	var typ *models.TypUdrzby
	if in.TypUdrzby != nil && strings.TrimSpace(*in.TypUdrzby) != "" {
		t := models.TypUdrzby(strings.TrimSpace(*in.TypUdrzby))
		if !t.IsValid() {
			return time.Time{}, nil, validationError("typ_udrzby", "neznámý typ údržby")
		}
		typ = &t
	}
	d, err := parseDate("datum_vydeje", in.DatumVydeje, now)
	return d, typ, err
}

// Dispatch проводит расход с позиции id. Количество не может уйти в минус:
// при параллельных расходах второй увидит уже уменьшенный остаток.
func (s *MovementService) Dispatch(ctx context.Context, id uint, in DispatchInput, actor Actor) (*MovementResult, error) {
	datumVydeje, typUdrzby, err := in.validate(s.now())
	if err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var zarizeni models.Zarizeni
	if err := tx.First(&zarizeni, "kod_zarizeni = ?", strings.TrimSpace(in.PouziteZarizeni)).Error; err != nil {
		tx.Rollback()
		return nil, notFoundOr(err, "zařízení")
	}

	item, err := lockItem(tx, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if in.ZmenaMnozstvi > item.Mnozstvi {
		tx.Rollback()
		return nil, fmt.Errorf("%w: požadováno %d, na skladě %d", ErrInsufficientStock, in.ZmenaMnozstvi, item.Mnozstvi)
	}

	calc := CalcDispatch(item.Mnozstvi, money(item.JednotkovaCenaEur), money(item.CelkovaCenaEur), in.ZmenaMnozstvi)

	item.Mnozstvi = calc.Mnozstvi
	item.CelkovaCenaEur = calc.CelkovaCena.InexactFloat64()
	if in.Umisteni != nil {
		item.Umisteni = optionalString(in.Umisteni)
	}
	if in.Poznamka != nil {
		item.Poznamka = optionalString(in.Poznamka)
	}

	if err := saveMovementFields(tx, item); err != nil {
		tx.Rollback()
		return nil, err
	}

	entry := auditFromItem(item, actor)
	entry.TypOperace = models.TypOperaceVydej
	entry.ZmenaMnozstvi = -in.ZmenaMnozstvi
	entry.PouziteZarizeni = &zarizeni.KodZarizeni
	entry.DatumVydeje = &datumVydeje
	entry.TypUdrzby = typUdrzby
	entry.JednotkovaCenaEur = calc.LogJednotkova.InexactFloat64()
	entry.CelkovaCenaEur = calc.LogCelkova.InexactFloat64()
	if err := tx.Create(entry).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка записи в журнал: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка commit расхода: %w", err)
	}

	log.Printf("📦 VÝDEJ: %dx %s (evid. č. %d) pro %s → zbývá %d %s",
		in.ZmenaMnozstvi, item.NazevDilu, item.EvidencniCislo, zarizeni.KodZarizeni, item.Mnozstvi, item.Jednotky)
	s.afterCommit(item, entry)

	item.PodMinimem = item.IsPodMinimem()
	return &MovementResult{Sklad: item, AuditLog: entry}, nil
}

// saveMovementFields обновляет только поля, которые меняет движение
func saveMovementFields(tx *gorm.DB, item *models.Sklad) error {
	err := tx.Model(&models.Sklad{}).
		Where("evidencni_cislo = ?", item.EvidencniCislo).
		Updates(map[string]interface{}{
			"mnozstvi":            item.Mnozstvi,
			"jednotkova_cena_eur": item.JednotkovaCenaEur,
			"celkova_cena_eur":    item.CelkovaCenaEur,
			"dodavatel":           item.Dodavatel,
			"datum_nakupu":        item.DatumNakupu,
			"cislo_objednavky":    item.CisloObjednavky,
			"objednano":           item.Objednano,
			"umisteni":            item.Umisteni,
			"poznamka":            item.Poznamka,
		}).Error
	if err != nil {
		return fmt.Errorf("ошибка обновления položky %d: %w", item.EvidencniCislo, err)
	}
	return nil
}

// auditFromItem копирует поля позиции в новую запись журнала
func auditFromItem(item *models.Sklad, actor Actor) *models.AuditLog {
	return &models.AuditLog{
		Ucetnictvi:      item.Ucetnictvi,
		EvidencniCislo:  item.EvidencniCislo,
		InterneCislo:    item.InterneCislo,
		Objednano:       item.Objednano,
		NazevDilu:       item.NazevDilu,
		Mnozstvi:        item.Mnozstvi,
		Jednotky:        item.Jednotky,
		Umisteni:        item.Umisteni,
		Dodavatel:       item.Dodavatel,
		CisloObjednavky: item.CisloObjednavky,
		Poznamka:        item.Poznamka,
		UzivatelID:      actor.UserID,
		OperaciProvedl:  actor.Username,
	}
}

func (s *MovementService) afterCommit(item *models.Sklad, entry *models.AuditLog) {
	if s.skladService != nil {
		s.skladService.InvalidateCache(item.EvidencniCislo)
	}
	if s.notifier != nil {
		s.notifier.NotifyMovement(newMovementEvent(item, entry))
	}
}
