// Package export は1銘柄・1取引日の分足をファイルに書き出します。
package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"market_journal/internal/feature/marketdata/domain/entity"
)

// Row は書き出し用のフラットな1行です。
type Row struct {
	Symbol    string  `json:"symbol" parquet:"symbol"`
	TradeTime string  `json:"tradetime" parquet:"tradetime"`
	TradeDay  string  `json:"tradeday" parquet:"tradeday"`
	Open      float64 `json:"open" parquet:"open"`
	High      float64 `json:"high" parquet:"high"`
	Low       float64 `json:"low" parquet:"low"`
	Close     float64 `json:"close" parquet:"close"`
	Volume    int64   `json:"volume" parquet:"volume"`
}

// Saver writes rows to path in one format.
type Saver interface {
	Save(rows []Row, path string) error
	Extension() string
}

// NewSaver は format (csv, parquet, json) に対応する Saver を返します。未対応なら nil です。
func NewSaver(format string) Saver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	case "json":
		return JSONSaver{}
	default:
		return nil
	}
}

// SaverForPath は拡張子から Saver を選びます。
func SaverForPath(path string) (Saver, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	s := NewSaver(ext)
	if s == nil {
		return nil, fmt.Errorf("unsupported export format %q", ext)
	}
	return s, nil
}

// Rows converts bars to export rows, keeping their order.
func Rows(bars []entity.Bar) []Row {
	rows := make([]Row, len(bars))
	for i, b := range bars {
		rows[i] = Row{
			Symbol:    b.Symbol,
			TradeTime: b.TradeTime.Format(entity.TradeTimeLayout),
			TradeDay:  b.TradeDay(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}
	return rows
}

// Bars は rows を path の拡張子に応じた形式で書き出します。
func Bars(bars []entity.Bar, path string) error {
	s, err := SaverForPath(path)
	if err != nil {
		return err
	}
	if err := s.Save(Rows(bars), path); err != nil {
		return fmt.Errorf("export %s: %w", s.Extension(), err)
	}
	return nil
}
