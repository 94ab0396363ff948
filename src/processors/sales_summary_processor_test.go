package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/painthouse/src/models"
	"github.com/username/painthouse/src/utils"
)

func civil(y int, m time.Month, day int) *utils.CivilDate {
	return &utils.CivilDate{Year: y, Month: m, Day: day}
}

func TestSummarize_fifoAcrossBatches(t *testing.T) {
	log := []models.Transaction{
		makeTx("1", models.TransactionAdd, "Paint", "Gloss", "10", "4", "01-07-2025 10:00:00"),
		makeTx("2", models.TransactionAdd, "Paint", "Gloss", "10", "6", "02-07-2025 10:00:00"),
		makeTx("3", models.TransactionSell, "Paint", "Gloss", "15", "10", "05-07-2025 11:30:00"),
	}
	rows := NewSalesSummaryProcessor(time.UTC).Summarize(log, SalesFilter{})

	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "05-07-2025", r.Date)
	assert.Equal(t, "2025-07-05", r.ISODate)
	assertDecimal(t, "15", r.Quantity)
	assertDecimal(t, "150", r.TotalValue)
	assertDecimal(t, "70", r.CostTotal)
	assert.Equal(t, "4.67", utils.FormatDecimalCell(r.CostPrice))
	assert.Equal(t, "114.29", utils.FormatDecimalCell(r.Margin))
	assertDecimal(t, "0", r.UnmatchedQty)
}

func TestSummarize_purchasesOrderedByTimestampNotLogPosition(t *testing.T) {
	log := []models.Transaction{
		makeTx("1", models.TransactionAdd, "Paint", "Gloss", "10", "6", "02-07-2025 10:00:00"),
		makeTx("2", models.TransactionAdd, "Paint", "Gloss", "10", "4", "01-07-2025 10:00:00"),
		makeTx("3", models.TransactionSell, "Paint", "Gloss", "5", "10", "05-07-2025 11:30:00"),
	}
	rows := NewSalesSummaryProcessor(time.UTC).Summarize(log, SalesFilter{})

	require.Len(t, rows, 1)
	assertDecimal(t, "20", rows[0].CostTotal)
}

func TestSummarize_consumptionIsCumulativeAcrossDays(t *testing.T) {
	log := []models.Transaction{
		makeTx("1", models.TransactionAdd, "Paint", "Gloss", "10", "4", "01-07-2025 10:00:00"),
		makeTx("2", models.TransactionAdd, "Paint", "Gloss", "10", "6", "01-07-2025 11:00:00"),
		makeTx("3", models.TransactionSell, "Paint", "Gloss", "8", "10", "03-07-2025 09:00:00"),
		makeTx("4", models.TransactionSell, "Paint", "Gloss", "4", "10", "04-07-2025 09:00:00"),
	}
	rows := NewSalesSummaryProcessor(time.UTC).Summarize(log, SalesFilter{})

	require.Len(t, rows, 2)
	assertDecimal(t, "32", rows[0].CostTotal)
	// 2 left at 4, then 2 from the second batch at 6.
	assertDecimal(t, "20", rows[1].CostTotal)
	assertDecimal(t, "5", rows[1].CostPrice)
}

func TestSummarize_unmatchedQuantity(t *testing.T) {
	log := []models.Transaction{
		makeTx("1", models.TransactionAdd, "Paint", "Gloss", "3", "4", "01-07-2025 10:00:00"),
		makeTx("2", models.TransactionSell, "Paint", "Gloss", "5", "10", "02-07-2025 10:00:00"),
		makeTx("3", models.TransactionSell, "Brush", "A", "1", "10", "02-07-2025 10:00:00"),
	}
	rows := NewSalesSummaryProcessor(time.UTC).Summarize(log, SalesFilter{})
	SortSalesRows(rows)

	require.Len(t, rows, 2)
	brush, paint := rows[0], rows[1]
	assertDecimal(t, "12", paint.CostTotal)
	assertDecimal(t, "4", paint.CostPrice)
	assertDecimal(t, "2", paint.UnmatchedQty)

	assertDecimal(t, "0", brush.CostTotal)
	assertDecimal(t, "0", brush.CostPrice)
	assertDecimal(t, "0", brush.Margin)
	assertDecimal(t, "1", brush.UnmatchedQty)
}

func TestSummarize_groupsSameDayAndMergesKeys(t *testing.T) {
	log := []models.Transaction{
		makeTx("1", models.TransactionSell, "Paint", "Gloss", "1", "10", "05-07-2025 09:00:00"),
		makeTx("2", models.TransactionSell, "paint ", "GLOSS", "3", "20", "05-07-2025 18:00:00"),
		makeTx("3", models.TransactionSell, "Paint", "Gloss", "1", "10", "06-07-2025 09:00:00"),
	}
	rows := NewSalesSummaryProcessor(time.UTC).Summarize(log, SalesFilter{})

	require.Len(t, rows, 2)
	assert.Equal(t, "Paint", rows[0].ItemType)
	assertDecimal(t, "4", rows[0].Quantity)
	assertDecimal(t, "70", rows[0].TotalValue)
	assertDecimal(t, "17.5", rows[0].AvgPrice)
}

func TestSummarize_dateFilterAfterMatching(t *testing.T) {
	log := []models.Transaction{
		makeTx("1", models.TransactionAdd, "Paint", "Gloss", "5", "4", "01-07-2025 10:00:00"),
		makeTx("2", models.TransactionAdd, "Paint", "Gloss", "5", "6", "01-07-2025 10:00:01"),
		makeTx("3", models.TransactionSell, "Paint", "Gloss", "5", "10", "03-07-2025 09:00:00"),
		makeTx("4", models.TransactionSell, "Paint", "Gloss", "5", "10", "04-07-2025 09:00:00"),
		makeTx("5", models.TransactionSell, "Paint", "Gloss", "1", "10", "not a date"),
	}
	p := NewSalesSummaryProcessor(time.UTC)

	rows := p.Summarize(log, SalesFilter{From: civil(2025, 7, 4), To: civil(2025, 7, 4)})
	require.Len(t, rows, 1)
	assert.Equal(t, "04-07-2025", rows[0].Date)
	assertDecimal(t, "30", rows[0].CostTotal)

	all := p.Summarize(log, SalesFilter{})
	require.Len(t, all, 3)
	assert.Equal(t, models.UnknownDate, all[2].Date)
	assert.Empty(t, all[2].ISODate)
}

func TestSummarize_parsesLegacyTimestampShapes(t *testing.T) {
	log := []models.Transaction{
		makeTx("1", models.TransactionSell, "Paint", "Gloss", "1", "10", "21/7/2025, 12:57:53 am"),
		makeTx("2", models.TransactionSell, "Paint", "Gloss", "1", "10", "2025-07-21T08:00:00Z"),
		makeTx("3", models.TransactionSell, "Paint", "Gloss", "1", "10", "21-07-2025"),
	}
	rows := NewSalesSummaryProcessor(time.UTC).Summarize(log, SalesFilter{})

	require.Len(t, rows, 1)
	assert.Equal(t, "21-07-2025", rows[0].Date)
	assertDecimal(t, "3", rows[0].Quantity)
}
