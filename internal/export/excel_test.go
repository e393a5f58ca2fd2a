package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jacobarthurs/pgreview/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestExcel(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	sum := &models.BatchSummary{
		BatchID:         "batch_20260314_090000_abcdef12",
		TotalCount:      2,
		SuccessCount:    1,
		FailedCount:     1,
		StartTime:       start,
		EndTime:         ptr(start.Add(3 * time.Second)),
		TotalDurationMs: ptr(int64(3000)),
	}
	records := []*models.CheckRecord{
		{SQL: "SELECT 1", Status: models.StatusSuccess, AIResult: ptr("fine"), DurationMs: ptr(int64(1200))},
		{SQL: "SELECT 2", Status: models.StatusFailed, ErrorMessage: ptr("[network error] dial tcp"), DurationMs: ptr(int64(1800))},
	}

	data, err := Excel(sum, records)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, []string{"1", "SELECT 1", "success", "fine", "", "1200"}, rows[1])
	assert.Equal(t, "failed", rows[2][2])
	assert.Equal(t, "[network error] dial tcp", rows[2][4])

	label, err := f.GetCellValue(SheetName, "A5")
	require.NoError(t, err)
	assert.Equal(t, "Batch ID", label)
	id, err := f.GetCellValue(SheetName, "B5")
	require.NoError(t, err)
	assert.Equal(t, sum.BatchID, id)

	okStyle, err := f.GetCellStyle(SheetName, "C2")
	require.NoError(t, err)
	failStyle, err := f.GetCellStyle(SheetName, "C3")
	require.NoError(t, err)
	assert.NotEqual(t, okStyle, failStyle)
}

func TestExcel_Empty(t *testing.T) {
	data, err := Excel(&models.BatchSummary{BatchID: "batch_x"}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestPDF(t *testing.T) {
	compressPDF = false
	t.Cleanup(func() { compressPDF = true })

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	sum := &models.BatchSummary{
		BatchID:         "batch_20260314_090000_abcdef12",
		TotalCount:      2,
		SuccessCount:    1,
		FailedCount:     1,
		StartTime:       start,
		TotalDurationMs: ptr(int64(3000)),
	}
	records := []*models.CheckRecord{
		{SQL: "SELECT 1", Status: models.StatusSuccess, AIResult: ptr("fine"), DurationMs: ptr(int64(1200))},
		{SQL: "SELECT 2", Status: models.StatusFailed, ErrorMessage: ptr("dial tcp refused"), DurationMs: ptr(int64(1800))},
	}

	data, err := PDF(sum, records)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	for _, want := range []string{SheetName, "AI Result", "SELECT 1", "SELECT 2", "dial tcp refused", "1800", "Batch ID", sum.BatchID, "Total Duration"} {
		assert.Contains(t, string(data), want)
	}
}

func TestPDF_LongBatchSpansPages(t *testing.T) {
	compressPDF = false
	t.Cleanup(func() { compressPDF = true })

	long := strings.Repeat("Consider an index on orders(customer_id). ", 200)
	var records []*models.CheckRecord
	for range 20 {
		records = append(records, &models.CheckRecord{SQL: "SELECT * FROM orders", Status: models.StatusSuccess, AIResult: ptr(long)})
	}

	data, err := PDF(&models.BatchSummary{BatchID: "batch_x", TotalCount: 20}, records)
	require.NoError(t, err)
	assert.Greater(t, strings.Count(string(data), "/Type /Page\n"), 1)
	assert.Contains(t, string(data), " ...")
}

func TestPDF_Empty(t *testing.T) {
	data, err := PDF(nil, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}
