package domain

import "fmt"

// LedgerTableName は適用履歴テーブルの名前。
const LedgerTableName = "migration"

// DataTypeKind は列の論理型を表す。
type DataTypeKind int

const (
	TypeBigInt DataTypeKind = iota + 1
	TypeInt
	TypeSmallInt
	TypeDate
	TypeDateTime
	TypeSmallDateTime
	TypeNChar
	TypeNVarChar
	TypeBinary
	TypeVarBinary
)

// DataType は列のデータ型。長さは可変長・固定長型でのみ使う。
type DataType struct {
	Kind   DataTypeKind
	Length uint
}

// Sized は長さ指定が必要な型かを返す。
func (t DataType) Sized() bool {
	switch t.Kind {
	case TypeNChar, TypeNVarChar, TypeBinary, TypeVarBinary:
		return true
	}
	return false
}

// SQL は T-SQL の型表記を返す。
func (t DataType) SQL() string {
	switch t.Kind {
	case TypeBigInt:
		return "bigint"
	case TypeInt:
		return "int"
	case TypeSmallInt:
		return "smallint"
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "datetime"
	case TypeSmallDateTime:
		return "smalldatetime"
	case TypeNChar:
		return fmt.Sprintf("nchar(%d)", t.Length)
	case TypeNVarChar:
		return fmt.Sprintf("nvarchar(%d)", t.Length)
	case TypeBinary:
		return fmt.Sprintf("binary(%d)", t.Length)
	case TypeVarBinary:
		return fmt.Sprintf("varbinary(%d)", t.Length)
	default:
		return ""
	}
}

// ColumnDefinition は列定義。
type ColumnDefinition struct {
	Name         string
	DataType     *DataType
	Nullable     bool
	InPrimaryKey bool
}

func (c *ColumnDefinition) as(kind DataTypeKind, length uint) *ColumnDefinition {
	c.DataType = &DataType{Kind: kind, Length: length}
	return c
}

func (c *ColumnDefinition) AsBigInt() *ColumnDefinition        { return c.as(TypeBigInt, 0) }
func (c *ColumnDefinition) AsInt() *ColumnDefinition           { return c.as(TypeInt, 0) }
func (c *ColumnDefinition) AsSmallInt() *ColumnDefinition      { return c.as(TypeSmallInt, 0) }
func (c *ColumnDefinition) AsDate() *ColumnDefinition          { return c.as(TypeDate, 0) }
func (c *ColumnDefinition) AsDateTime() *ColumnDefinition      { return c.as(TypeDateTime, 0) }
func (c *ColumnDefinition) AsSmallDateTime() *ColumnDefinition { return c.as(TypeSmallDateTime, 0) }

func (c *ColumnDefinition) AsNChar(length uint) *ColumnDefinition {
	return c.as(TypeNChar, length)
}

func (c *ColumnDefinition) AsNVarChar(length uint) *ColumnDefinition {
	return c.as(TypeNVarChar, length)
}

func (c *ColumnDefinition) AsBinary(length uint) *ColumnDefinition {
	return c.as(TypeBinary, length)
}

func (c *ColumnDefinition) AsVarBinary(length uint) *ColumnDefinition {
	return c.as(TypeVarBinary, length)
}

// AllowNull は列を NULL 許容にする。
func (c *ColumnDefinition) AllowNull() *ColumnDefinition {
	c.Nullable = true
	return c
}

// UseInPrimaryKey は列を主キーに含める。
func (c *ColumnDefinition) UseInPrimaryKey() *ColumnDefinition {
	c.InPrimaryKey = true
	return c
}

// TableDefinition はテーブル作成用の記述子。
type TableDefinition struct {
	Name    string
	Columns []*ColumnDefinition
}

// NewTableDefinition は新しい TableDefinition を生成する。
func NewTableDefinition(name string) *TableDefinition {
	return &TableDefinition{Name: name}
}

// WithColumn は列を追加し、その列定義を返す。
func (t *TableDefinition) WithColumn(name string) *ColumnDefinition {
	col := &ColumnDefinition{Name: name}
	t.Columns = append(t.Columns, col)
	return col
}

// PrimaryKeyColumns は主キー列を定義順に返す。
func (t *TableDefinition) PrimaryKeyColumns() []string {
	var names []string
	for _, c := range t.Columns {
		if c.InPrimaryKey {
			names = append(names, c.Name)
		}
	}
	return names
}

// Validate は記述子が DDL に変換できるかを検証する。
func (t *TableDefinition) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: table name is empty", ErrMalformedDescriptor)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: table %q has no columns", ErrMalformedDescriptor, t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for i, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("%w: column %d of table %q has no name", ErrMalformedDescriptor, i+1, t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate column %q in table %q", ErrMalformedDescriptor, c.Name, t.Name)
		}
		seen[c.Name] = true
		if c.DataType == nil {
			return fmt.Errorf("%w: column %q of table %q", ErrMissingDataType, c.Name, t.Name)
		}
		if c.DataType.Sized() && c.DataType.Length == 0 {
			return fmt.Errorf("%w: column %q of table %q needs a length", ErrMalformedDescriptor, c.Name, t.Name)
		}
		if c.InPrimaryKey && c.Nullable {
			return fmt.Errorf("%w: primary key column %q of table %q is nullable", ErrMalformedDescriptor, c.Name, t.Name)
		}
	}
	return nil
}

// LedgerTableDefinition は適用履歴テーブルの定義を返す。
func LedgerTableDefinition() *TableDefinition {
	def := NewTableDefinition(LedgerTableName)
	def.WithColumn("sequence_id").AsInt().UseInPrimaryKey()
	def.WithColumn("operation").AsSmallInt()
	def.WithColumn("description").AsNVarChar(1024)
	def.WithColumn("filename").AsNVarChar(256)
	def.WithColumn("content_checksum").AsBinary(32)
	return def
}
