// Package dto defines data transfer objects for the marketdata HTTP API.
package dto

// FetchRequest は分足取り込みリクエストのボディです。
type FetchRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

// FetchResponse は取り込み結果です。Rows は今回新たに書き込んだ件数です。
type FetchResponse struct {
	Message string `json:"message"`
	Rows    int64  `json:"rows"`
}

// BarResponse は market_data の1行をそのままのキー名で返します。
type BarResponse struct {
	Symbol    string  `json:"symbol"`
	TradeTime string  `json:"tradetime"`
	TradeDay  string  `json:"tradeday"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// SymbolItem は保存済み銘柄の一覧要素です。
type SymbolItem struct {
	Code string `json:"code"`
}
