package tsql

import "strings"

// generator は構文木のバッチを実行用テキストに戻す。
type generator struct {
	// stripComments が true の場合はコメントを出力しない。
	stripComments bool
}

// render はバッチ1件分のテキストを返す。改行は \n に統一し、前後の空白を除く。
// 文字列リテラル内の改行はそのまま残す。
func (g generator) render(b *Batch) string {
	var sb strings.Builder
	for _, t := range b.tokens {
		switch t.kind {
		case tokNewline:
			sb.WriteByte('\n')
		case tokLineComment:
			if !g.stripComments {
				sb.WriteString(t.text)
			}
		case tokBlockComment:
			if g.stripComments {
				sb.WriteByte(' ')
				continue
			}
			sb.WriteString(t.text)
		default:
			sb.WriteString(t.text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// generate はスクリプト全体を実行順のバッチ列に変換する。
// 空のバッチは出力せず、GO n のバッチは n 回出力する。
func (g generator) generate(s *Script) []string {
	var batches []string
	for _, b := range s.Batches {
		if b.Empty() {
			continue
		}
		text := g.render(b)
		for range b.Repeat {
			batches = append(batches, text)
		}
	}
	return batches
}
