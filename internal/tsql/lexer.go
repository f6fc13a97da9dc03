// Package tsql はT-SQLスクリプトをバッチ単位に分割する。
//
// スクリプトはトークン列に分解され、バッチ区切り（GO）とステートメント境界を
// 持つ構文木に組み立てられた後、方言ごとのジェネレータで実行可能なテキストに
// 戻される。文字列リテラルや角括弧付き識別子の中の GO や ; は区切りとして扱わない。
package tsql

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokWhitespace tokenKind = iota
	tokNewline
	tokLineComment
	tokBlockComment
	tokString
	tokQuotedIdent
	tokVariable
	tokNumber
	tokWord
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

// significant はコメントと空白以外のトークンかを返す。
func (t token) significant() bool {
	switch t.kind {
	case tokWhitespace, tokNewline, tokLineComment, tokBlockComment:
		return false
	}
	return true
}

// isWord は大文字小文字を無視して単語トークンを比較する。
func (t token) isWord(words ...string) bool {
	if t.kind != tokWord {
		return false
	}
	for _, w := range words {
		if strings.EqualFold(t.text, w) {
			return true
		}
	}
	return false
}

func (t token) isPunct(p string) bool {
	return t.kind == tokPunct && t.text == p
}

type lexer struct {
	src    string
	pos    int
	line   int
	col    int
	tokens []token
	errs   []string
}

// lex はソースをトークン列に分解する。閉じられていない文字列やコメントはエラーとして返す。
func lex(src string) ([]token, []string) {
	l := &lexer{src: strings.TrimPrefix(src, "\uFEFF"), line: 1, col: 1}
	l.run()
	return l.tokens, l.errs
}

func (l *lexer) peek(offset int) byte {
	if l.pos+offset < len(l.src) {
		return l.src[l.pos+offset]
	}
	return 0
}

func (l *lexer) errorf(line, col int, format string, args ...any) {
	l.errs = append(l.errs, fmt.Sprintf("line %d, column %d: %s", line, col, fmt.Sprintf(format, args...)))
}

// emit は pos から end までをトークンとして追加し、位置情報を進める。
func (l *lexer) emit(kind tokenKind, end int) {
	text := l.src[l.pos:end]
	l.tokens = append(l.tokens, token{kind: kind, text: text, line: l.line, col: l.col})
	for i := 0; i < len(text); i++ {
		switch {
		case text[i] == '\n':
			l.line++
			l.col = 1
		case text[i] == '\r' && (i+1 >= len(text) || text[i+1] != '\n'):
			l.line++
			l.col = 1
		default:
			l.col++
		}
	}
	l.pos = end
}

func (l *lexer) run() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\r' || c == '\n':
			end := l.pos + 1
			if c == '\r' && l.peek(1) == '\n' {
				end++
			}
			l.emit(tokNewline, end)
		case c == ' ' || c == '\t' || c == '\f' || c == '\v':
			end := l.pos
			for end < len(l.src) && strings.IndexByte(" \t\f\v", l.src[end]) >= 0 {
				end++
			}
			l.emit(tokWhitespace, end)
		case c == '-' && l.peek(1) == '-':
			end := l.pos
			for end < len(l.src) && l.src[end] != '\n' && l.src[end] != '\r' {
				end++
			}
			l.emit(tokLineComment, end)
		case c == '/' && l.peek(1) == '*':
			l.blockComment()
		case c == '\'':
			l.quoted(tokString, l.pos, '\'', "string literal")
		case (c == 'N' || c == 'n') && l.peek(1) == '\'':
			l.quoted(tokString, l.pos+1, '\'', "string literal")
		case c == '[':
			l.quoted(tokQuotedIdent, l.pos, ']', "bracketed identifier")
		case c == '"':
			l.quoted(tokQuotedIdent, l.pos, '"', "quoted identifier")
		case c == '@':
			end := l.pos + 1
			if l.peek(1) == '@' {
				end++
			}
			end = l.scanWord(end)
			l.emit(tokVariable, end)
		case isDigit(c) || (c == '.' && isDigit(l.peek(1))):
			l.emit(tokNumber, l.scanNumber())
		default:
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if isWordStart(r) {
				l.emit(tokWord, l.scanWord(l.pos+size))
				continue
			}
			l.emit(tokPunct, l.pos+size)
		}
	}
}

// blockComment は入れ子を含むブロックコメントを読む。
func (l *lexer) blockComment() {
	depth := 0
	end := l.pos
	for end < len(l.src) {
		switch {
		case l.src[end] == '/' && end+1 < len(l.src) && l.src[end+1] == '*':
			depth++
			end += 2
		case l.src[end] == '*' && end+1 < len(l.src) && l.src[end+1] == '/':
			depth--
			end += 2
			if depth == 0 {
				l.emit(tokBlockComment, end)
				return
			}
		default:
			end++
		}
	}
	l.errorf(l.line, l.col, "unterminated block comment")
	l.emit(tokBlockComment, len(l.src))
}

// quoted は closer を二重にしたものをエスケープとして扱う引用トークンを読む。
// open はトークン本体の開始位置（N'...' の場合は ' の位置）。
func (l *lexer) quoted(kind tokenKind, open int, closer byte, what string) {
	end := open + 1
	for end < len(l.src) {
		if l.src[end] == closer {
			if end+1 < len(l.src) && l.src[end+1] == closer {
				end += 2
				continue
			}
			l.emit(kind, end+1)
			return
		}
		end++
	}
	l.errorf(l.line, l.col, "unterminated %s", what)
	l.emit(kind, len(l.src))
}

func (l *lexer) scanWord(end int) int {
	for end < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[end:])
		if !isWordPart(r) {
			break
		}
		end += size
	}
	return end
}

func (l *lexer) scanNumber() int {
	end := l.pos
	if l.src[end] == '0' && end+1 < len(l.src) && (l.src[end+1] == 'x' || l.src[end+1] == 'X') {
		end += 2
		for end < len(l.src) && isHexDigit(l.src[end]) {
			end++
		}
		return end
	}
	for end < len(l.src) && (isDigit(l.src[end]) || l.src[end] == '.') {
		end++
	}
	if end < len(l.src) && (l.src[end] == 'e' || l.src[end] == 'E') {
		exp := end + 1
		if exp < len(l.src) && (l.src[exp] == '+' || l.src[exp] == '-') {
			exp++
		}
		if exp < len(l.src) && isDigit(l.src[exp]) {
			end = exp
			for end < len(l.src) && isDigit(l.src[end]) {
				end++
			}
		}
	}
	return end
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isWordStart(r rune) bool {
	return r == '_' || r == '#' || unicode.IsLetter(r)
}

func isWordPart(r rune) bool {
	return r == '_' || r == '#' || r == '$' || r == '@' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
