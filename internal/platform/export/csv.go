package export

import (
	"encoding/csv"
	"os"
	"strconv"
)

// CSVSaver writes rows as CSV with a header line.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(rows []Row, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	if err := w.Write([]string{"symbol", "tradetime", "tradeday", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{
			r.Symbol,
			r.TradeTime,
			r.TradeDay,
			floatStr(r.Open),
			floatStr(r.High),
			floatStr(r.Low),
			floatStr(r.Close),
			strconv.FormatInt(r.Volume, 10),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
