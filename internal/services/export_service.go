package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"hpmsklad/server/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportDelimiter = ';'

// utf8BOM нужен Excel, чтобы открыть CSV с диакритикой
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var skladExportHeader = []string{
	"Evidenční číslo", "Číslo karty", "Objednáno?", "Název dílu", "Minimum", "Množství",
	"Jednotky", "Pod minimem", "Umístění", "Dodavatel", "Datum nákupu", "Číslo objednávky",
	"EUR/jednotka", "Celkem EUR", "Poznámka", "Účetnictví", "Kritický díl", "Zařízení",
}

var auditExportHeader = []string{
	"ID", "Účetnictví", "Evidenční číslo", "Číslo karty", "Název dílu", "Změna množství",
	"Množství", "Jednotky", "Typ operace", "Pro zařízení", "Umístění", "Dodavatel",
	"Datum výdeje", "Datum nákupu", "Číslo objednávky", "EUR/jednotka", "Celkem EUR",
	"Čas vytvoření", "Operaci provedl", "Poznámka", "Typ údržby",
}

var spotrebaExportHeader = []string{
	"Název dílu", "Změna množství", "Jednotky", "Pro zařízení", "Datum výdeje", "Typ údržby", "Celkem EUR",
}

var dodavateleExportHeader = []string{"Dodavatel", "Kontakt", "E-mail", "Telefon", "Jazyk"}

// poptavkaHeaders заголовок строки запроса на языке поставщика
var poptavkaHeaders = map[models.Jazyk][]string{
	models.JazykCZ: {"Název dílu", "Název varianty", "Číslo varianty", "Množství", "Jednotky"},
	models.JazykSK: {"Názov dielu", "Názov varianty", "Číslo varianty", "Množstvo", "Jednotky"},
	models.JazykDE: {"Teilebezeichnung", "Variante", "Variantennummer", "Menge", "Einheit"},
	models.JazykEN: {"Part name", "Variant name", "Variant number", "Quantity", "Unit"},
}

// ExportService выгрузка склада, журнала, поставщиков и запросов
type ExportService struct {
	sklad      *SkladService
	audit      *AuditLogService
	dodavatele *DodavatelService
	poptavky   *PoptavkaService
}

// NewExportService создает новый экземпляр ExportService
func NewExportService(sklad *SkladService, audit *AuditLogService, dodavatele *DodavatelService, poptavky *PoptavkaService) *ExportService {
	return &ExportService{sklad: sklad, audit: audit, dodavatele: dodavatele, poptavky: poptavky}
}

func formatMoney(v float64) string {
	return round2(money(v)).StringFixed(2)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func zarizeniKody(list []models.Zarizeni) string {
	kody := make([]string, 0, len(list))
	for _, z := range list {
		kody = append(kody, z.KodZarizeni)
	}
	return strings.Join(kody, ", ")
}

// writeCSV пишет BOM, заголовок и строки с разделителем ';'
func writeCSV(w io.Writer, header []string, rows [][]string) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	cw.Comma = exportDelimiter
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("ошибка записи CSV: %w", err)
	}
	return nil
}

func skladRow(it *models.Sklad) []string {
	return []string{
		strconv.FormatUint(uint64(it.EvidencniCislo), 10),
		formatOptInt(it.InterneCislo),
		deref(it.Objednano),
		it.NazevDilu,
		strconv.Itoa(it.MinMnozstviKs),
		strconv.Itoa(it.Mnozstvi),
		string(it.Jednotky),
		it.PodMinimemDisplay(),
		deref(it.Umisteni),
		deref(it.Dodavatel),
		formatDate(it.DatumNakupu),
		deref(it.CisloObjednavky),
		formatMoney(it.JednotkovaCenaEur),
		formatMoney(it.CelkovaCenaEur),
		deref(it.Poznamka),
		models.AnoNe(it.Ucetnictvi),
		models.AnoNe(it.KritickyDil),
		zarizeniKody(it.Zarizeni),
	}
}

// SkladCSV выгружает отфильтрованный склад (sklad_export.csv)
func (s *ExportService) SkladCSV(ctx context.Context, f SkladFilter, w io.Writer) error {
	items, err := s.sklad.All(ctx, f)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(items))
	for i := range items {
		rows = append(rows, skladRow(&items[i]))
	}
	return writeCSV(w, skladExportHeader, rows)
}

// SkladXLSX выгружает отфильтрованный склад в Excel (sklad_export.xlsx)
func (s *ExportService) SkladXLSX(ctx context.Context, f SkladFilter, w io.Writer) error {
	items, err := s.sklad.All(ctx, f)
	if err != nil {
		return err
	}

	x := excelize.NewFile()
	defer x.Close()

	const sheet = "Sklad"
	if err := x.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	bold, err := x.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	header := make([]interface{}, len(skladExportHeader))
	for i, h := range skladExportHeader {
		header[i] = h
	}
	if err := x.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(skladExportHeader))
	if err := x.SetCellStyle(sheet, "A1", lastCol+"1", bold); err != nil {
		return err
	}

	for i := range items {
		it := &items[i]
		// Числа пишем числами, чтобы Excel мог считать
		row := []interface{}{
			it.EvidencniCislo,
			formatOptInt(it.InterneCislo),
			deref(it.Objednano),
			it.NazevDilu,
			it.MinMnozstviKs,
			it.Mnozstvi,
			string(it.Jednotky),
			it.PodMinimemDisplay(),
			deref(it.Umisteni),
			deref(it.Dodavatel),
			formatDate(it.DatumNakupu),
			deref(it.CisloObjednavky),
			round2(money(it.JednotkovaCenaEur)).InexactFloat64(),
			round2(money(it.CelkovaCenaEur)).InexactFloat64(),
			deref(it.Poznamka),
			models.AnoNe(it.Ucetnictvi),
			models.AnoNe(it.KritickyDil),
			zarizeniKody(it.Zarizeni),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := x.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := x.SetColWidth(sheet, "D", "D", 40); err != nil {
		return err
	}
	if err := x.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return x.Write(w)
}

// AuditLogCSV выгружает отфильтрованный журнал (audit_log_export.csv)
func (s *ExportService) AuditLogCSV(ctx context.Context, f AuditLogFilter, w io.Writer) error {
	entries, err := s.audit.All(ctx, f)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		typUdrzby := ""
		if e.TypUdrzby != nil {
			typUdrzby = string(*e.TypUdrzby)
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(e.ID), 10),
			models.AnoNe(e.Ucetnictvi),
			strconv.FormatUint(uint64(e.EvidencniCislo), 10),
			formatOptInt(e.InterneCislo),
			e.NazevDilu,
			strconv.Itoa(e.ZmenaMnozstvi),
			strconv.Itoa(e.Mnozstvi),
			string(e.Jednotky),
			string(e.TypOperace),
			deref(e.PouziteZarizeni),
			deref(e.Umisteni),
			deref(e.Dodavatel),
			formatDate(e.DatumVydeje),
			formatDate(e.DatumNakupu),
			deref(e.CisloObjednavky),
			formatMoney(e.JednotkovaCenaEur),
			formatMoney(e.CelkovaCenaEur),
			e.CasVytvoreni.Format("2006-01-02 15:04:05"),
			e.OperaciProvedl,
			deref(e.Poznamka),
			typUdrzby,
		})
	}
	return writeCSV(w, auditExportHeader, rows)
}

// SpotrebaCSV выгружает только расходы (spotreba_export.csv)
func (s *ExportService) SpotrebaCSV(ctx context.Context, f AuditLogFilter, w io.Writer) error {
	f.TypOperace = string(models.TypOperaceVydej)
	entries, err := s.audit.All(ctx, f)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		typUdrzby := ""
		if e.TypUdrzby != nil {
			typUdrzby = string(*e.TypUdrzby)
		}
		rows = append(rows, []string{
			e.NazevDilu,
			strconv.Itoa(e.ZmenaMnozstvi),
			string(e.Jednotky),
			deref(e.PouziteZarizeni),
			formatDate(e.DatumVydeje),
			typUdrzby,
			formatMoney(e.CelkovaCenaEur),
		})
	}
	return writeCSV(w, spotrebaExportHeader, rows)
}

// DodavateleCSV выгружает поставщиков (dodavatele_export.csv)
func (s *ExportService) DodavateleCSV(ctx context.Context, query string, w io.Writer) error {
	list, err := s.dodavatele.GetAll(ctx, query)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(list))
	for _, d := range list {
		rows = append(rows, []string{d.Dodavatel, deref(d.Kontakt), deref(d.Email), deref(d.Telefon), string(d.Jazyk)})
	}
	return writeCSV(w, dodavateleExportHeader, rows)
}

// PoptavkaCSV выгружает строки запроса с заголовком на языке поставщика.
// Возвращает имя файла.
func (s *ExportService) PoptavkaCSV(ctx context.Context, id string, w io.Writer) (string, error) {
	p, err := s.poptavky.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	jazyk := models.JazykCZ
	if p.Dodavatel != nil && p.Dodavatel.Jazyk.IsValid() {
		jazyk = p.Dodavatel.Jazyk
	}

	rows := make([][]string, 0, len(p.Polozky))
	for _, line := range p.Polozky {
		nazevDilu, nazevVarianty, cisloVarianty := "", "", ""
		if v := line.Varianta; v != nil {
			nazevVarianty = v.NazevVarianty
			cisloVarianty = deref(v.CisloVarianty)
			if v.Sklad != nil {
				nazevDilu = v.Sklad.NazevDilu
			}
		}
		rows = append(rows, []string{nazevDilu, nazevVarianty, cisloVarianty, strconv.Itoa(line.Mnozstvi), string(line.Jednotky)})
	}
	if err := writeCSV(w, poptavkaHeaders[jazyk], rows); err != nil {
		return "", err
	}
	return fmt.Sprintf("poptavka_%d.csv", p.Cislo), nil
}
