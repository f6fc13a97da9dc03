package tsql

import (
	"fmt"

	"dbdeploy/internal/domain"
)

// profile は方言ごとのパーサー設定。出力は方言によらず同じジェネレータで行う。
type profile struct {
	dialect domain.Dialect
}

func (p profile) parser() *parser {
	return &parser{dialect: p.dialect}
}

var profiles = map[domain.Dialect]profile{
	domain.DialectSQLServer2005: {dialect: domain.DialectSQLServer2005},
	domain.DialectSQLServer2008: {dialect: domain.DialectSQLServer2008},
	domain.DialectSQLServer2012: {dialect: domain.DialectSQLServer2012},
	domain.DialectSQLServer2014: {dialect: domain.DialectSQLServer2014},
	domain.DialectSQLServer2016: {dialect: domain.DialectSQLServer2016},
	domain.DialectSQLServer2017: {dialect: domain.DialectSQLServer2017},
	domain.DialectSQLServer2019: {dialect: domain.DialectSQLServer2019},
	domain.DialectSQLServer2022: {dialect: domain.DialectSQLServer2022},
}

// Splitter はスクリプトを方言に従って解析し、実行用バッチに分割する。
type Splitter struct {
	stripComments bool
}

// SplitterOption は Splitter の設定を変更する。
type SplitterOption func(*Splitter)

// WithStripComments はバッチ出力からコメントを取り除く。
func WithStripComments() SplitterOption {
	return func(s *Splitter) { s.stripComments = true }
}

// NewSplitter は新しい Splitter を生成する。
func NewSplitter(opts ...SplitterOption) *Splitter {
	s := &Splitter{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split はスクリプトをバッチに分割する。解析エラーがある場合はバッチを返さず
// *domain.ParseError を返す。filename はエラーメッセージにのみ使う。
func (s *Splitter) Split(dialect domain.Dialect, filename, script string) ([]string, error) {
	p, ok := profiles[dialect]
	if !ok {
		return nil, fmt.Errorf("%w: no parser profile for %s", domain.ErrUnsupportedDialect, dialect)
	}

	tree, errs := p.parser().parse(script)
	if len(errs) > 0 {
		return nil, &domain.ParseError{Filename: filename, Messages: errs}
	}
	return generator{stripComments: s.stripComments}.generate(tree), nil
}
