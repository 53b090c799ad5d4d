package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"hpmsklad/server/internal/models"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/shopspring/decimal"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const neuvedeno = "Neuvedeno"

// CostBucket сумма расходов по ключу (месяц или тип обслуживания)
type CostBucket struct {
	Label string  `json:"label"`
	EUR   float64 `json:"eur"`
}

// ReportService графики расхода по журналу
type ReportService struct {
	audit *AuditLogService
}

// NewReportService создает новый экземпляр ReportService
func NewReportService(audit *AuditLogService) *ReportService {
	return &ReportService{audit: audit}
}

func (s *ReportService) vydeje(ctx context.Context, f AuditLogFilter) ([]models.AuditLog, error) {
	f.TypOperace = string(models.TypOperaceVydej)
	return s.audit.All(ctx, f)
}

// MonthlySpotreba суммирует стоимость расходов по месяцам (YYYY-MM), по возрастанию
func MonthlySpotreba(entries []models.AuditLog) []CostBucket {
	sums := map[string]decimal.Decimal{}
	for _, e := range entries {
		if !e.IsVydej() || e.DatumVydeje == nil {
			continue
		}
		key := e.DatumVydeje.Format("2006-01")
		sums[key] = sums[key].Add(money(e.CelkovaCenaEur).Abs())
	}
	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]CostBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, CostBucket{Label: k, EUR: round2(sums[k]).InexactFloat64()})
	}
	return out
}

// UdrzbaSpotreba суммирует стоимость расходов по типу обслуживания.
// Все типы присутствуют всегда, "Neuvedeno" только если есть такие записи.
func UdrzbaSpotreba(entries []models.AuditLog) []CostBucket {
	sums := map[string]decimal.Decimal{}
	for _, e := range entries {
		if !e.IsVydej() {
			continue
		}
		key := neuvedeno
		if e.TypUdrzby != nil {
			key = string(*e.TypUdrzby)
		}
		sums[key] = sums[key].Add(money(e.CelkovaCenaEur).Abs())
	}

	out := make([]CostBucket, 0, len(models.TypyUdrzby)+1)
	for _, t := range models.TypyUdrzby {
		out = append(out, CostBucket{Label: string(t), EUR: round2(sums[string(t)]).InexactFloat64()})
	}
	if v, ok := sums[neuvedeno]; ok {
		out = append(out, CostBucket{Label: neuvedeno, EUR: round2(v).InexactFloat64()})
	}
	return out
}

// barPDF рисует столбчатую диаграмму в PDF
func barPDF(w io.Writer, title, xLabel string, buckets []CostBucket) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "EUR"

	values := make(plotter.Values, len(buckets))
	names := make([]string, len(buckets))
	for i, b := range buckets {
		values[i] = b.EUR
		names[i] = b.Label
	}
	if len(buckets) > 0 {
		bars, err := plotter.NewBarChart(values, vg.Points(20))
		if err != nil {
			return fmt.Errorf("ошибка построения графика: %w", err)
		}
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)
		p.NominalX(names...)
	}
	p.Add(plotter.NewGrid())

	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "pdf")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SpotrebaPDF месячная стоимость расходов (PDF)
func (s *ReportService) SpotrebaPDF(ctx context.Context, f AuditLogFilter, w io.Writer) error {
	entries, err := s.vydeje(ctx, f)
	if err != nil {
		return err
	}
	return barPDF(w, "Spotřeba dílů po měsících", "Měsíc", MonthlySpotreba(entries))
}

// UdrzbaPDF стоимость расходов по типу обслуживания (PDF)
func (s *ReportService) UdrzbaPDF(ctx context.Context, f AuditLogFilter, w io.Writer) error {
	entries, err := s.vydeje(ctx, f)
	if err != nil {
		return err
	}
	return barPDF(w, "Spotřeba dílů podle typu údržby", "Typ údržby", UdrzbaSpotreba(entries))
}

func barChart(title string, buckets []CostBucket) *charts.Bar {
	x := make([]string, len(buckets))
	y := make([]opts.BarData, len(buckets))
	for i, b := range buckets {
		x[i] = b.Label
		y[i] = opts.BarData{Value: b.EUR}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "EUR"}),
	)
	bar.SetXAxis(x).
		AddSeries("EUR", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// SpotrebaHTML обе диаграммы на одной HTML-странице
func (s *ReportService) SpotrebaHTML(ctx context.Context, f AuditLogFilter, w io.Writer) error {
	entries, err := s.vydeje(ctx, f)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.PageTitle = "Spotřeba dílů"
	page.AddCharts(
		barChart("Spotřeba dílů po měsících", MonthlySpotreba(entries)),
		barChart("Spotřeba dílů podle typu údržby", UdrzbaSpotreba(entries)),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("ошибка рендеринга графиков: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}
