package services

import "github.com/shopspring/decimal"

// round2 округляет до центов (half away from zero)
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// ReceiptCalc результат пересчета средневзвешенной цены при приходе
type ReceiptCalc struct {
	Mnozstvi       int
	JednotkovaCena decimal.Decimal
	CelkovaCena    decimal.Decimal
	LogJednotkova  decimal.Decimal
	LogCelkova     decimal.Decimal
}

// CalcReceipt считает приход delta штук по цене price к остатку q0 на сумму t0.
// Сумма t0 берется как хранится, а не как q0*p0.
func CalcReceipt(q0 int, t0 decimal.Decimal, delta int, price decimal.Decimal) ReceiptCalc {
	logUnit := round2(price)
	logTotal := round2(logUnit.Mul(decimal.NewFromInt(int64(delta))))
	q1 := q0 + delta
	t1 := round2(t0.Add(logTotal))
	p1 := decimal.Zero
	if q1 > 0 {
		p1 = round2(t1.Div(decimal.NewFromInt(int64(q1))))
	}
	return ReceiptCalc{
		Mnozstvi:       q1,
		JednotkovaCena: p1,
		CelkovaCena:    t1,
		LogJednotkova:  logUnit,
		LogCelkova:     logTotal,
	}
}

// DispatchCalc результат расхода
type DispatchCalc struct {
	Mnozstvi      int
	CelkovaCena   decimal.Decimal
	LogJednotkova decimal.Decimal
	LogCelkova    decimal.Decimal
}

// CalcDispatch считает расход delta штук по текущей цене p0:
// log.total = delta*p0, t1 = t0 - log.total.
// Отступление от этой формулы: при обнулении остатка списывается вся
// оставшаяся сумма (log.total = t0, t1 = 0). t1 не уходит ниже нуля.
func CalcDispatch(q0 int, p0, t0 decimal.Decimal, delta int) DispatchCalc {
	logTotal := round2(p0.Mul(decimal.NewFromInt(int64(delta))))
	q1 := q0 - delta
	t1 := round2(t0.Sub(logTotal))
	if q1 == 0 {
		logTotal = round2(t0)
		t1 = decimal.Zero
	}
	if t1.IsNegative() {
		t1 = decimal.Zero
	}
	return DispatchCalc{
		Mnozstvi:      q1,
		CelkovaCena:   t1,
		LogJednotkova: round2(p0),
		LogCelkova:    logTotal,
	}
}
