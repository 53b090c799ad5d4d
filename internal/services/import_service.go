package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// importColumns сопоставляет заголовок файла (в нижнем регистре) полю карточки.
// Принимаются и чешские названия колонок из экспорта, и имена полей API.
var importColumns = map[string]string{
	"číslo karty":         "interne_cislo",
	"interne_cislo":       "interne_cislo",
	"objednáno?":          "objednano",
	"objednáno":           "objednano",
	"objednano":           "objednano",
	"název dílu":          "nazev_dilu",
	"nazev_dilu":          "nazev_dilu",
	"minimum":             "min_mnozstvi_ks",
	"min_mnozstvi_ks":     "min_mnozstvi_ks",
	"množství":            "mnozstvi",
	"mnozstvi":            "mnozstvi",
	"jednotky":            "jednotky",
	"umístění":            "umisteni",
	"umisteni":            "umisteni",
	"dodavatel":           "dodavatel",
	"datum nákupu":        "datum_nakupu",
	"datum_nakupu":        "datum_nakupu",
	"číslo objednávky":    "cislo_objednavky",
	"cislo_objednavky":    "cislo_objednavky",
	"eur/jednotka":        "jednotkova_cena_eur",
	"jednotkova_cena_eur": "jednotkova_cena_eur",
	"poznámka":            "poznamka",
	"poznamka":            "poznamka",
	"účetnictví":          "ucetnictvi",
	"ucetnictvi":          "ucetnictvi",
	"kritický díl":        "kriticky_dil",
	"kriticky_dil":        "kriticky_dil",
	"zařízení":            "zarizeni",
	"zarizeni":            "zarizeni",
}

// ImportRowError ошибка одной строки файла (номер строки считается с заголовком)
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult итог импорта
type ImportResult struct {
	Created []uint           `json:"created"`
	Errors  []ImportRowError `json:"errors"`
}

// ImportService импорт карточек склада из CSV и XLSX
type ImportService struct {
	sklad *SkladService
}

// NewImportService создает новый экземпляр ImportService
func NewImportService(sklad *SkladService) *ImportService {
	return &ImportService{sklad: sklad}
}

// Import разбирает файл по расширению и создает карточки построчно.
// Ошибочные строки пропускаются и попадают в отчет.
func (s *ImportService) Import(ctx context.Context, r io.Reader, filename string) (*ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла: %w", err)
	}

	var rows [][]string
	switch lower := strings.ToLower(filename); {
	case strings.HasSuffix(lower, ".csv"):
		rows, err = parseCSV(data)
	case strings.HasSuffix(lower, ".xlsx"):
		rows, err = parseXLSX(data)
	default:
		return nil, validationError("soubor", fmt.Sprintf("nepodporovaný formát %q, použijte .csv nebo .xlsx", filename))
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, validationError("soubor", "soubor je prázdný")
	}

	columns := mapHeader(rows[0])
	if _, ok := indexOf(columns, "nazev_dilu"); !ok {
		return nil, validationError("soubor", "chybí sloupec „Název dílu“")
	}

	res := &ImportResult{Created: []uint{}, Errors: []ImportRowError{}}
	for i, record := range rows[1:] {
		rowNum := i + 2
		if isEmptyRecord(record) {
			continue
		}
		in, err := recordToInput(columns, record)
		if err != nil {
			res.Errors = append(res.Errors, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		item, err := s.sklad.Create(ctx, in)
		if err != nil {
			res.Errors = append(res.Errors, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		res.Created = append(res.Created, item.EvidencniCislo)
	}
	log.Printf("📦 Импорт %s: создано %d, ошибок %d", filename, len(res.Created), len(res.Errors))
	return res, nil
}

// decodeCSV приводит данные к UTF-8; не-UTF-8 файлы считаются Windows-1250
func decodeCSV(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}
	out, _, err := transform.Bytes(charmap.Windows1250.NewDecoder(), data)
	if err != nil {
		return data
	}
	return out
}

// detectDelimiter выбирает самый частый разделитель в первой строке
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ';', -1
	for _, d := range []rune{';', ',', '\t', '|'} {
		if c := bytes.Count(line, []byte(string(d))); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

func parseCSV(data []byte) ([][]string, error) {
	data = decodeCSV(data)
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, validationError("soubor", fmt.Sprintf("chybný CSV: %v", err))
	}
	return rows, nil
}

func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, validationError("soubor", fmt.Sprintf("chybný XLSX: %v", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения листа %s: %w", sheets[0], err)
	}
	return rows, nil
}

func mapHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.Trim(h, "\"'\t")))
		columns[i] = importColumns[key]
	}
	return columns
}

func indexOf(columns []string, field string) (int, bool) {
	for i, c := range columns {
		if c == field {
			return i, true
		}
	}
	return -1, false
}

func isEmptyRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseNumber понимает десятичную запятую и пробелы между разрядами
func parseNumber(v string) (float64, error) {
	v = strings.ReplaceAll(strings.TrimSpace(v), " ", "")
	v = strings.ReplaceAll(v, "\u00a0", "")
	v = strings.Replace(v, ",", ".", 1)
	return strconv.ParseFloat(v, 64)
}

func parseInt(v string) (int, error) {
	f, err := parseNumber(v)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, errors.New("očekáváno celé číslo")
	}
	return int(f), nil
}

// normalizeDate переводит чешскую запись D.M.YYYY в YYYY-MM-DD
func normalizeDate(v string) string {
	if t, err := time.Parse("2.1.2006", strings.ReplaceAll(v, " ", "")); err == nil {
		return t.Format(dateLayout)
	}
	return v
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "ano", "true", "1", "yes", "x":
		return true, nil
	case "ne", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("neplatná hodnota %q", v)
}

func recordToInput(columns []string, record []string) (SkladInput, error) {
	var in SkladInput
	for i, field := range columns {
		if field == "" || i >= len(record) {
			continue
		}
		raw := strings.TrimSpace(record[i])
		if raw == "" {
			continue
		}
		v := raw
		switch field {
		case "interne_cislo":
			n, err := parseInt(raw)
			if err != nil {
				return in, validationError(field, err.Error())
			}
			in.InterneCislo = &n
		case "objednano":
			in.Objednano = &v
		case "nazev_dilu":
			in.NazevDilu = raw
		case "min_mnozstvi_ks":
			n, err := parseInt(raw)
			if err != nil {
				return in, validationError(field, err.Error())
			}
			in.MinMnozstviKs = n
		case "mnozstvi":
			n, err := parseInt(raw)
			if err != nil {
				return in, validationError(field, err.Error())
			}
			in.Mnozstvi = n
		case "jednotky":
			in.Jednotky = strings.ToLower(raw)
		case "umisteni":
			in.Umisteni = &v
		case "dodavatel":
			in.Dodavatel = &v
		case "datum_nakupu":
			v = normalizeDate(raw)
			in.DatumNakupu = &v
		case "cislo_objednavky":
			in.CisloObjednavky = &v
		case "jednotkova_cena_eur":
			f, err := parseNumber(raw)
			if err != nil {
				return in, validationError(field, "neplatné číslo")
			}
			in.JednotkovaCenaEur = f
		case "poznamka":
			in.Poznamka = &v
		case "ucetnictvi":
			b, err := parseBool(raw)
			if err != nil {
				return in, validationError(field, err.Error())
			}
			in.Ucetnictvi = &b
		case "kriticky_dil":
			b, err := parseBool(raw)
			if err != nil {
				return in, validationError(field, err.Error())
			}
			in.KritickyDil = b
		case "zarizeni":
			for _, kod := range strings.Split(raw, ",") {
				if kod = strings.ToUpper(strings.TrimSpace(kod)); kod != "" {
					in.Zarizeni = append(in.Zarizeni, kod)
				}
			}
		}
	}
	return in, nil
}
