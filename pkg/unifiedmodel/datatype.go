package unifiedmodel

import (
	"strings"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
)

// DataTypeKind is the discriminant of the unified data type union.
type DataTypeKind string

const (
	KindInteger  DataTypeKind = "integer"
	KindFloat    DataTypeKind = "float"
	KindDecimal  DataTypeKind = "decimal"
	KindString   DataTypeKind = "string"
	KindBoolean  DataTypeKind = "boolean"
	KindDateTime DataTypeKind = "datetime"
	KindDate     DataTypeKind = "date"
	KindTime     DataTypeKind = "time"
	KindBinary   DataTypeKind = "binary"
	KindArray    DataTypeKind = "array"
	KindObject   DataTypeKind = "object"
	KindJSON     DataTypeKind = "json"
	KindCustom   DataTypeKind = "custom"
)

// DataType is the engine-neutral representation of a column type. Only the
// fields relevant to Kind are set; metadata absent from the source catalog is
// left nil rather than guessed.
type DataType struct {
	Kind DataTypeKind `json:"kind"`

	// Integer
	Bits   int  `json:"bits,omitempty"`
	Signed bool `json:"signed,omitempty"`

	// Float / Decimal
	Precision *int `json:"precision,omitempty"`
	Scale     *int `json:"scale,omitempty"`

	// String / Binary
	MaxLength *int `json:"max_length,omitempty"`
	Fixed     bool `json:"fixed,omitempty"`

	// DateTime
	TZAware bool `json:"tz_aware,omitempty"`

	// Array
	Element *DataType `json:"element,omitempty"`

	// Object
	Fields map[string]DataType `json:"fields,omitempty"`

	// Custom: the native type name preserved losslessly, plus the engine it
	// came from.
	TypeName string                      `json:"type_name,omitempty"`
	Engine   dbcapabilities.DatabaseType `json:"engine,omitempty"`
}

// IsTemporal reports whether the type is date/time-like, which makes a column
// eligible as a timestamp ordering candidate.
func (t DataType) IsTemporal() bool {
	switch t.Kind {
	case KindDateTime, KindDate, KindTime:
		return true
	}
	return false
}

// NativeType carries an engine type descriptor into MapType. Name is required;
// the rest is optional catalog metadata.
type NativeType struct {
	Name      string
	Length    *int
	Precision *int
	Scale     *int
	Element   *NativeType // array element, when the engine reports one
}

// MapType converts an engine-native type descriptor to the unified
// representation. It is pure and total: unknown types map to Custom with the
// original name preserved.
func MapType(engine dbcapabilities.DatabaseType, nt NativeType) DataType {
	name := strings.ToLower(strings.TrimSpace(nt.Name))

	// Strip a trailing length/precision spec like "varchar(255)" so lookup
	// keys stay simple; the catalog-provided metadata wins over the literal.
	if i := strings.IndexByte(name, '('); i > 0 {
		name = strings.TrimSpace(name[:i])
	}

	var table map[string]DataType
	switch engine {
	case dbcapabilities.PostgreSQL:
		table = postgresTypes
	case dbcapabilities.MySQL:
		table = mysqlTypes
	case dbcapabilities.SQLServer:
		table = mssqlTypes
	case dbcapabilities.MongoDB:
		table = mongoTypes
	}

	dt, ok := table[name]
	if !ok {
		return DataType{Kind: KindCustom, TypeName: nt.Name, Engine: engine}
	}

	// Attach source metadata without overwriting table defaults that encode
	// engine semantics (e.g. int bits).
	switch dt.Kind {
	case KindString, KindBinary:
		if nt.Length != nil {
			dt.MaxLength = nt.Length
		}
	case KindDecimal:
		if nt.Precision != nil {
			dt.Precision = nt.Precision
		}
		if nt.Scale != nil {
			dt.Scale = nt.Scale
		}
	case KindFloat:
		if nt.Precision != nil {
			dt.Precision = nt.Precision
		}
	case KindArray:
		if nt.Element != nil {
			elem := MapType(engine, *nt.Element)
			dt.Element = &elem
		}
	}

	return dt
}

func intType(bits int, signed bool) DataType {
	return DataType{Kind: KindInteger, Bits: bits, Signed: signed}
}

var postgresTypes = map[string]DataType{
	"smallint":         intType(16, true),
	"int2":             intType(16, true),
	"integer":          intType(32, true),
	"int":              intType(32, true),
	"int4":             intType(32, true),
	"bigint":           intType(64, true),
	"int8":             intType(64, true),
	"smallserial":      intType(16, true),
	"serial":           intType(32, true),
	"bigserial":        intType(64, true),
	"real":             {Kind: KindFloat},
	"float4":           {Kind: KindFloat},
	"double precision": {Kind: KindFloat},
	"float8":           {Kind: KindFloat},
	"numeric":          {Kind: KindDecimal},
	"decimal":          {Kind: KindDecimal},
	"money":            {Kind: KindDecimal},
	"character varying": {Kind: KindString},
	"varchar":           {Kind: KindString},
	"character":         {Kind: KindString, Fixed: true},
	"char":              {Kind: KindString, Fixed: true},
	"bpchar":            {Kind: KindString, Fixed: true},
	"text":              {Kind: KindString},
	"name":              {Kind: KindString},
	"boolean":           {Kind: KindBoolean},
	"bool":              {Kind: KindBoolean},
	"timestamp without time zone": {Kind: KindDateTime},
	"timestamp":                   {Kind: KindDateTime},
	"timestamp with time zone":    {Kind: KindDateTime, TZAware: true},
	"timestamptz":                 {Kind: KindDateTime, TZAware: true},
	"date":                        {Kind: KindDate},
	"time without time zone":      {Kind: KindTime},
	"time":                        {Kind: KindTime},
	"time with time zone":         {Kind: KindTime},
	"timetz":                      {Kind: KindTime},
	"bytea":                       {Kind: KindBinary},
	"json":                        {Kind: KindJSON},
	"jsonb":                       {Kind: KindJSON},
	"array":                       {Kind: KindArray},
	"uuid":                        {Kind: KindString, MaxLength: ptr(36), Fixed: true},
}

var mysqlTypes = map[string]DataType{
	"tinyint":    intType(8, true),
	"smallint":   intType(16, true),
	"mediumint":  intType(24, true),
	"int":        intType(32, true),
	"integer":    intType(32, true),
	"bigint":     intType(64, true),
	"tinyint unsigned":   intType(8, false),
	"smallint unsigned":  intType(16, false),
	"mediumint unsigned": intType(24, false),
	"int unsigned":       intType(32, false),
	"integer unsigned":   intType(32, false),
	"bigint unsigned":    intType(64, false),
	"float":      {Kind: KindFloat},
	"double":     {Kind: KindFloat},
	"real":       {Kind: KindFloat},
	"decimal":    {Kind: KindDecimal},
	"numeric":    {Kind: KindDecimal},
	"varchar":    {Kind: KindString},
	"char":       {Kind: KindString, Fixed: true},
	"tinytext":   {Kind: KindString, MaxLength: ptr(255)},
	"text":       {Kind: KindString, MaxLength: ptr(65535)},
	"mediumtext": {Kind: KindString, MaxLength: ptr(16777215)},
	"longtext":   {Kind: KindString},
	"enum":       {Kind: KindString},
	"set":        {Kind: KindString},
	"boolean":    {Kind: KindBoolean},
	"bool":       {Kind: KindBoolean},
	"datetime":   {Kind: KindDateTime},
	"timestamp":  {Kind: KindDateTime, TZAware: true},
	"date":       {Kind: KindDate},
	"time":       {Kind: KindTime},
	"year":       intType(16, false),
	"binary":     {Kind: KindBinary, Fixed: true},
	"varbinary":  {Kind: KindBinary},
	"tinyblob":   {Kind: KindBinary, MaxLength: ptr(255)},
	"blob":       {Kind: KindBinary, MaxLength: ptr(65535)},
	"mediumblob": {Kind: KindBinary, MaxLength: ptr(16777215)},
	"longblob":   {Kind: KindBinary},
	"json":       {Kind: KindJSON},
}

var mssqlTypes = map[string]DataType{
	"tinyint":        intType(8, false),
	"smallint":       intType(16, true),
	"int":            intType(32, true),
	"bigint":         intType(64, true),
	"real":           {Kind: KindFloat},
	"float":          {Kind: KindFloat},
	"decimal":        {Kind: KindDecimal},
	"numeric":        {Kind: KindDecimal},
	"money":          {Kind: KindDecimal, Precision: ptr(19), Scale: ptr(4)},
	"smallmoney":     {Kind: KindDecimal, Precision: ptr(10), Scale: ptr(4)},
	"varchar":        {Kind: KindString},
	"nvarchar":       {Kind: KindString},
	"char":           {Kind: KindString, Fixed: true},
	"nchar":          {Kind: KindString, Fixed: true},
	"text":           {Kind: KindString},
	"ntext":          {Kind: KindString},
	"bit":            {Kind: KindBoolean},
	"datetime":       {Kind: KindDateTime},
	"datetime2":      {Kind: KindDateTime},
	"smalldatetime":  {Kind: KindDateTime},
	"datetimeoffset": {Kind: KindDateTime, TZAware: true},
	"date":           {Kind: KindDate},
	"time":           {Kind: KindTime},
	"binary":         {Kind: KindBinary, Fixed: true},
	"varbinary":      {Kind: KindBinary},
	"image":          {Kind: KindBinary},
	"uniqueidentifier": {Kind: KindString, MaxLength: ptr(36), Fixed: true},
	"xml":              {Kind: KindString},
	"json":             {Kind: KindJSON},
}

// mongoTypes maps BSON type names as reported by $type / document sampling.
var mongoTypes = map[string]DataType{
	"int":       intType(32, true),
	"long":      intType(64, true),
	"double":    {Kind: KindFloat},
	"decimal":   {Kind: KindDecimal},
	"string":    {Kind: KindString},
	"bool":      {Kind: KindBoolean},
	"date":      {Kind: KindDateTime, TZAware: true},
	"timestamp": {Kind: KindDateTime, TZAware: true},
	"bindata":   {Kind: KindBinary},
	"objectid":  {Kind: KindString, MaxLength: ptr(24), Fixed: true},
	"array":     {Kind: KindArray},
	"object":    {Kind: KindObject},
	"null":      {Kind: KindJSON},
}

func ptr(i int) *int { return &i }
