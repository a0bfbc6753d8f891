// Package sheet 读写 .xlsx：导入行、导出行、示例模板
package sheet

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Grafik"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ImportRow 第一列日期、第二列标题、第三列 "tak" 表示已确认
type ImportRow struct {
	Line      int // 1-based
	Date      time.Time
	DateOK    bool
	Title     string
	Confirmed bool
}

// ExportRow 时间已格式化为 HH:MM
type ExportRow struct {
	Date      string
	Title     string
	WorkStart string
	WorkEnd   string
	Km        *float64
	Passenger int
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02.01.2006",
	"01/02/2006",
	"1/2/06",
}

// ParseDateCell 数值按 Excel 序列日期处理，文本按常见格式解析
func ParseDateCell(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return dateOnly(t), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ReadImport 读取第一个工作表的前三列；没有表头约定，表头行会因日期无效被跳过
func ReadImport(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	out := make([]ImportRow, 0, len(rows))
	for i, cells := range rows {
		row := ImportRow{Line: i + 1}
		if len(cells) > 0 {
			row.Date, row.DateOK = ParseDateCell(cells[0])
		}
		if len(cells) > 1 {
			row.Title = strings.TrimSpace(cells[1])
		}
		if len(cells) > 2 {
			row.Confirmed = strings.EqualFold(strings.TrimSpace(cells[2]), "tak")
		}
		out = append(out, row)
	}
	return out, nil
}

func WriteExport(rows []ExportRow) ([]byte, error) {
	header := []any{"data", "miejsce", "poczatek_pracy", "koniec_pracy", "ilosc_km", "pasażer"}
	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		var km any
		if r.Km != nil {
			km = *r.Km
		}
		data = append(data, []any{r.Date, r.Title, blank(r.WorkStart), blank(r.WorkEnd), km, r.Passenger})
	}
	return write(header, data)
}

// Sample 导入模板：一行今天日期的示例
func Sample(today time.Time) ([]byte, error) {
	header := []any{"Data", "Nazwa", "Potwierdzone"}
	return write(header, [][]any{{today.Format("2006-01-02"), "Przykładowe zlecenie", "tak"}})
}

func blank(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func write(header []any, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
