// Package export renders frames and spot snapshots for terminals and files.
package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"

	"github.com/regholl2023/minitrade/internal/model"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04:05 MST"
	na         = "NaN"
)

// barDTO is the CSV shape of one long-format row.
type barDTO struct {
	Time   string  `csv:"time"`
	Ticker string  `csv:"ticker"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

// WriteFrameTable prints f as a wide table, one column per ticker and field.
func WriteFrameTable(w io.Writer, f *model.Frame) {
	layout := layoutFor(f.Index)
	multi := len(f.Tickers) > 1

	header := []string{"Time"}
	for _, c := range f.Columns() {
		if multi {
			header = append(header, c.Ticker+" "+c.Field)
		} else {
			header = append(header, c.Field)
		}
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoFormatHeaders(false)
	for i, ts := range f.Index {
		row := []string{ts.Format(layout)}
		for _, t := range f.Tickers {
			b := f.At(i, t)
			for _, field := range model.Fields {
				if b == nil {
					row = append(row, na)
					continue
				}
				row = append(row, formatValue(field, b.Value(field)))
			}
		}
		table.Append(row)
	}
	table.Render()
}

// WriteSpotTable prints one row per ticker in snapshot order.
func WriteSpotTable(w io.Writer, s *model.Spot) {
	fmt.Fprintf(w, "Spot prices at %s\n", s.CapturedAt.Format(time.RFC3339))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Ticker", "Price"})
	table.SetAutoFormatHeaders(false)
	for _, q := range s.Quotes {
		price := na
		if q.Price != nil {
			price = strconv.FormatFloat(*q.Price, 'f', 2, 64)
		}
		table.Append([]string{q.Ticker, price})
	}
	table.Render()
}

// WriteFrameCSV writes f in long format with a time,ticker,open,high,low,close,volume header.
func WriteFrameCSV(w io.Writer, f *model.Frame) error {
	layout := layoutFor(f.Index)
	recs := f.Records()
	rows := make([]*barDTO, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, &barDTO{
			Time:   r.Time.Format(layout),
			Ticker: r.Ticker,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	return nil
}

// layoutFor prints dates only when every timestamp sits on local midnight.
func layoutFor(index []time.Time) string {
	for _, t := range index {
		h, m, s := t.Clock()
		if h != 0 || m != 0 || s != 0 {
			return timeLayout
		}
	}
	return dateLayout
}

func formatValue(field string, v float64) string {
	if field == "Volume" {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
