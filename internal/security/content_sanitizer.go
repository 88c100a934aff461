// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はクライアント名・契約名・ワークログの説明などの自由入力から
// HTMLマークアップを取り除き、プレーンテキストとして保存できる形にする。
// bluemondayのStrictPolicyを使用し、タグはすべて除去される。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は自由入力テキストのサニタイズ機能のインターフェースを定義する。
// サービス層で長さの検証より前に使用される。
type TextSanitizer interface {
	// Clean は入力からHTMLタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	// script, styleタグは中身ごと除去される。
	// 文字参照（&amp;等）は元の文字に戻す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す。
	Clean(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので1つを共有する。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Clean はHTMLタグを除去したプレーンテキストを返す。
func (s *textSanitizer) Clean(raw string) string {
	if raw == "" {
		return ""
	}
	// StrictPolicyは残したテキストをエスケープして返すため、保存用に戻す
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// PassthroughSanitizer は前後の空白のみ除去するTextSanitizer。テストで使う。
type PassthroughSanitizer struct{}

// Clean は前後の空白を除去した文字列を返す。
func (PassthroughSanitizer) Clean(raw string) string {
	return strings.TrimSpace(raw)
}

// compile-time interface check
var (
	_ TextSanitizer = (*textSanitizer)(nil)
	_ TextSanitizer = PassthroughSanitizer{}
)
