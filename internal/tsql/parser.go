package tsql

import (
	"fmt"
	"strconv"

	"dbdeploy/internal/domain"
)

// Script はスクリプト全体の構文木。
type Script struct {
	Batches []*Batch
}

// Batch は GO で区切られた1バッチ。
type Batch struct {
	tokens     []token
	Statements []*Statement
	// Repeat は GO n で指定された実行回数。
	Repeat int
	Line   int
}

// Empty はコメントと空白しか含まないバッチかを返す。
func (b *Batch) Empty() bool {
	return len(b.Statements) == 0
}

// Statement はバッチ内のステートメント。tokens は意味のあるトークンのみを持つ。
type Statement struct {
	tokens []token
	Line   int
}

// Keyword はステートメント先頭の単語を返す。
func (s *Statement) Keyword() string {
	if len(s.tokens) == 0 || s.tokens[0].kind != tokWord {
		return ""
	}
	return s.tokens[0].text
}

// moduleObjects はバッチ内で最初のステートメントでなければならないオブジェクト種別。
var moduleObjects = []string{"PROC", "PROCEDURE", "FUNCTION", "TRIGGER", "VIEW", "SCHEMA", "RULE", "DEFAULT"}

type parser struct {
	dialect domain.Dialect
	errs    []string
}

func (p *parser) errorf(line int, format string, args ...any) {
	p.errs = append(p.errs, fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)))
}

// parse はソースを構文木に変換する。エラーが1件でもあれば nil を返す。
func (p *parser) parse(src string) (*Script, []string) {
	tokens, lexErrs := lex(src)
	if len(lexErrs) > 0 {
		return nil, lexErrs
	}

	script := &Script{}
	current := &Batch{Repeat: 1, Line: 1}
	for _, line := range splitLines(tokens) {
		count, isSep := p.separator(line)
		if !isSep {
			current.tokens = append(current.tokens, line...)
			continue
		}
		current.Repeat = count
		script.Batches = append(script.Batches, current)
		current = &Batch{Repeat: 1, Line: line[0].line + 1}
	}
	script.Batches = append(script.Batches, current)

	for _, b := range script.Batches {
		p.analyze(b)
	}
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return script, nil
}

// splitLines は改行トークンの直後で区切った行ごとのトークン列を返す。
// 改行トークンは行末に含まれる。
func splitLines(tokens []token) [][]token {
	var lines [][]token
	start := 0
	for i, t := range tokens {
		if t.kind == tokNewline {
			lines = append(lines, tokens[start:i+1])
			start = i + 1
		}
	}
	if start < len(tokens) {
		lines = append(lines, tokens[start:])
	}
	return lines
}

// separator は行がバッチ区切りかを判定し、区切りなら繰り返し回数を返す。
// 区切り行は GO [count] とコメントのみで構成される。
func (p *parser) separator(line []token) (int, bool) {
	var rest []token
	for _, t := range line {
		if t.significant() {
			rest = append(rest, t)
		}
	}
	if len(rest) == 0 || !rest[0].isWord("GO") {
		return 0, false
	}
	if len(rest) == 1 {
		return 1, true
	}
	// GO -1 や GO +2 は符号付きの回数として扱い、区切り行のエラーにする。
	if len(rest) == 3 && (rest[1].isPunct("-") || rest[1].isPunct("+")) && rest[2].kind == tokNumber {
		p.errorf(rest[1].line, "invalid batch count %q after GO", rest[1].text+rest[2].text)
		return 1, true
	}
	// "go, b" のような識別子としての GO は区切りではない。
	if rest[1].kind == tokPunct {
		return 0, false
	}
	if len(rest) == 2 && rest[1].kind == tokNumber {
		count, err := strconv.Atoi(rest[1].text)
		if err != nil || count < 1 {
			p.errorf(rest[1].line, "invalid batch count %q after GO", rest[1].text)
		}
		return max(count, 1), true
	}
	p.errorf(rest[1].line, "unexpected %q after batch separator", rest[1].text)
	return 1, true
}

// analyze はバッチをステートメントに分け、構文と方言の検査を行う。
func (p *parser) analyze(b *Batch) {
	var sig []token
	for _, t := range b.tokens {
		if t.significant() {
			sig = append(sig, t)
		}
	}
	if len(sig) == 0 {
		return
	}
	b.Line = sig[0].line

	p.checkParens(sig)
	module := startsModule(sig)
	p.checkModulePlacement(sig, module)
	p.checkFeatures(sig)

	if module {
		b.Statements = []*Statement{{tokens: sig, Line: sig[0].line}}
		return
	}
	depth := 0
	start := 0
	for i, t := range sig {
		switch {
		case t.isPunct("("):
			depth++
		case t.isPunct(")"):
			depth--
		case t.isPunct(";") && depth == 0:
			if i > start {
				b.Statements = append(b.Statements, &Statement{tokens: sig[start:i], Line: sig[start].line})
			}
			start = i + 1
		}
	}
	if start < len(sig) {
		b.Statements = append(b.Statements, &Statement{tokens: sig[start:], Line: sig[start].line})
	}
}

func (p *parser) checkParens(sig []token) {
	var open []token
	for _, t := range sig {
		switch {
		case t.isPunct("("):
			open = append(open, t)
		case t.isPunct(")"):
			if len(open) == 0 {
				p.errorf(t.line, "unexpected ')'")
				continue
			}
			open = open[:len(open)-1]
		}
	}
	for _, t := range open {
		p.errorf(t.line, "unclosed '('")
	}
}

// moduleAt は i 番目から CREATE/ALTER [OR ALTER] <module> が始まるかを返す。
func moduleAt(sig []token, i int) (string, bool) {
	if i >= len(sig) || !sig[i].isWord("CREATE", "ALTER") {
		return "", false
	}
	j := i + 1
	if sig[i].isWord("CREATE") && j+1 < len(sig) && sig[j].isWord("OR") && sig[j+1].isWord("ALTER") {
		j += 2
	}
	if j < len(sig) && sig[j].isWord(moduleObjects...) {
		return sig[j].text, true
	}
	return "", false
}

func startsModule(sig []token) bool {
	_, ok := moduleAt(sig, 0)
	return ok
}

// checkModulePlacement はバッチ途中の CREATE VIEW などを検出する。
// CREATE SCHEMA はスキーマ要素として CREATE VIEW を含められる。
func (p *parser) checkModulePlacement(sig []token, module bool) {
	if module && sig[1].isWord("SCHEMA") {
		return
	}
	for i := 1; i < len(sig); i++ {
		if !sig[i].isWord("CREATE") {
			continue
		}
		// GRANT CREATE VIEW TO ... は権限の指定。
		if sig[i-1].isWord("GRANT", "DENY", "REVOKE") || sig[i-1].isPunct(",") {
			continue
		}
		if object, ok := moduleAt(sig, i); ok {
			p.errorf(sig[i].line, "CREATE %s must be the first statement in a query batch", object)
		}
	}
}
