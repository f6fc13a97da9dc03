package tsql

import (
	"strings"

	"dbdeploy/internal/domain"
)

// functionIntroduced は組み込み関数が使えるようになった方言。
var functionIntroduced = map[string]domain.Dialect{
	"TRY_CONVERT":     domain.DialectSQLServer2012,
	"TRY_CAST":        domain.DialectSQLServer2012,
	"TRY_PARSE":       domain.DialectSQLServer2012,
	"PARSE":           domain.DialectSQLServer2012,
	"IIF":             domain.DialectSQLServer2012,
	"CHOOSE":          domain.DialectSQLServer2012,
	"CONCAT":          domain.DialectSQLServer2012,
	"FORMAT":          domain.DialectSQLServer2012,
	"EOMONTH":         domain.DialectSQLServer2012,
	"DATEFROMPARTS":   domain.DialectSQLServer2012,
	"STRING_SPLIT":    domain.DialectSQLServer2016,
	"OPENJSON":        domain.DialectSQLServer2016,
	"JSON_VALUE":      domain.DialectSQLServer2016,
	"JSON_QUERY":      domain.DialectSQLServer2016,
	"JSON_MODIFY":     domain.DialectSQLServer2016,
	"ISJSON":          domain.DialectSQLServer2016,
	"STRING_AGG":      domain.DialectSQLServer2017,
	"TRIM":            domain.DialectSQLServer2017,
	"CONCAT_WS":       domain.DialectSQLServer2017,
	"TRANSLATE":       domain.DialectSQLServer2017,
	"GREATEST":        domain.DialectSQLServer2022,
	"LEAST":           domain.DialectSQLServer2022,
	"DATE_BUCKET":     domain.DialectSQLServer2022,
	"DATETRUNC":       domain.DialectSQLServer2022,
	"GENERATE_SERIES": domain.DialectSQLServer2022,
}

// typeIntroduced はデータ型が使えるようになった方言。
var typeIntroduced = map[string]domain.Dialect{
	"DATETIME2":      domain.DialectSQLServer2008,
	"DATETIMEOFFSET": domain.DialectSQLServer2008,
	"HIERARCHYID":    domain.DialectSQLServer2008,
}

// checkFeatures は対象の方言で使えない構文を検出する。
func (p *parser) checkFeatures(sig []token) {
	if p.dialect == domain.DialectUnknown {
		return
	}
	require := func(t token, feature string, min domain.Dialect) {
		if !p.dialect.AtLeast(min) {
			p.errorf(t.line, "%s requires %s or later (target is %s)", feature, min, p.dialect)
		}
	}
	at := func(i int) token {
		if i < len(sig) {
			return sig[i]
		}
		return token{}
	}

	for i, t := range sig {
		if t.kind != tokWord {
			continue
		}
		word := strings.ToUpper(t.text)
		prev := token{}
		if i > 0 {
			prev = sig[i-1]
		}

		switch word {
		case "CREATE":
			if at(i+1).isWord("OR") && at(i+2).isWord("ALTER") {
				require(t, "CREATE OR ALTER", domain.DialectSQLServer2016)
			}
			if at(i+1).isWord("SEQUENCE") {
				require(t, "CREATE SEQUENCE", domain.DialectSQLServer2012)
			}
		case "DROP":
			if at(i+2).isWord("IF") && at(i+3).isWord("EXISTS") {
				require(t, "DROP ... IF EXISTS", domain.DialectSQLServer2016)
			}
		case "THROW":
			require(t, "THROW", domain.DialectSQLServer2012)
		case "MERGE":
			// INNER MERGE JOIN や OPTION (MERGE UNION) はヒント。
			if i+1 < len(sig) && !sig[i+1].isWord("JOIN", "UNION") {
				require(t, "MERGE", domain.DialectSQLServer2008)
			}
		case "OFFSET":
			for j := i + 1; j < len(sig) && j <= i+6; j++ {
				if sig[j].isWord("ROW", "ROWS") {
					require(t, "OFFSET ... FETCH", domain.DialectSQLServer2012)
					break
				}
			}
		case "FOR":
			if at(i + 1).isWord("JSON") {
				require(t, "FOR JSON", domain.DialectSQLServer2016)
			}
		}

		if prev.isPunct(".") {
			continue
		}
		if min, ok := functionIntroduced[word]; ok && at(i+1).isPunct("(") {
			require(t, word+"()", min)
		}
		if min, ok := typeIntroduced[word]; ok {
			require(t, "data type "+strings.ToLower(word), min)
		}
	}
}
