package domain

import "fmt"

// Dialect はサーバーのメジャーバージョンごとの T-SQL 方言を表す。
type Dialect int

const (
	DialectUnknown Dialect = iota
	DialectSQLServer2005
	DialectSQLServer2008
	DialectSQLServer2012
	DialectSQLServer2014
	DialectSQLServer2016
	DialectSQLServer2017
	DialectSQLServer2019
	DialectSQLServer2022
)

var dialectsByMajorVersion = map[int]Dialect{
	9:  DialectSQLServer2005,
	10: DialectSQLServer2008,
	11: DialectSQLServer2012,
	12: DialectSQLServer2014,
	13: DialectSQLServer2016,
	14: DialectSQLServer2017,
	15: DialectSQLServer2019,
	16: DialectSQLServer2022,
}

var dialectNames = map[Dialect]string{
	DialectSQLServer2005: "sqlserver2005",
	DialectSQLServer2008: "sqlserver2008",
	DialectSQLServer2012: "sqlserver2012",
	DialectSQLServer2014: "sqlserver2014",
	DialectSQLServer2016: "sqlserver2016",
	DialectSQLServer2017: "sqlserver2017",
	DialectSQLServer2019: "sqlserver2019",
	DialectSQLServer2022: "sqlserver2022",
}

// DialectForMajorVersion はメジャーバージョンから方言を引く。
func DialectForMajorVersion(major int) (Dialect, error) {
	d, ok := dialectsByMajorVersion[major]
	if !ok {
		return DialectUnknown, fmt.Errorf("%w: server major version %d", ErrUnsupportedDialect, major)
	}
	return d, nil
}

// AtLeast は d が min 以降のバージョンかを返す。
func (d Dialect) AtLeast(min Dialect) bool {
	return d >= min
}

func (d Dialect) String() string {
	if name, ok := dialectNames[d]; ok {
		return name
	}
	return "unknown"
}
