// Package api はHTTP境界で共有するレスポンス型を定義します。
package api

// ErrorResponse はエラー時の共通レスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse は処理結果メッセージのみを返すレスポンスです。
type MessageResponse struct {
	Message string `json:"message"`
}
