package database

import (
	"github.com/jmoiron/sqlx"
)

// Dialect は接続先データベースの種類です。
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectRedshift  Dialect = "redshift"
	DialectMySQL     Dialect = "mysql"
	DialectSnowflake Dialect = "snowflake"
	DialectSQLite    Dialect = "sqlite"
)

func init() {
	// sqlx が標準で認識しないドライバ名のバインド形式を登録する
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
	sqlx.BindDriver("snowflake", sqlx.QUESTION)
}

// DriverName は database/sql に登録されているドライバ名を返します。
func (d Dialect) DriverName() string {
	switch d {
	case DialectPostgres, DialectRedshift:
		return "postgres"
	case DialectMySQL:
		return "mysql"
	case DialectSnowflake:
		return "snowflake"
	case DialectSQLite:
		return "sqlite"
	default:
		return string(d)
	}
}

// TransactionalDDL は DROP/CREATE TABLE をトランザクション内でロールバックできるかどうかを返します。
func (d Dialect) TransactionalDDL() bool {
	switch d {
	case DialectPostgres, DialectRedshift, DialectSQLite:
		return true
	default:
		return false
	}
}

// DateType は日付カラムの型名です。
func (d Dialect) DateType() string {
	return "DATE"
}

// FloatType は倍精度浮動小数点カラムの型名です。
func (d Dialect) FloatType() string {
	switch d {
	case DialectMySQL:
		return "DOUBLE"
	case DialectSnowflake:
		return "FLOAT"
	case DialectSQLite:
		return "REAL"
	default:
		return "DOUBLE PRECISION"
	}
}

// SupportsJobRepository は実行履歴テーブルのマイグレーションが用意されているかどうかを返します。
func (d Dialect) SupportsJobRepository() bool {
	return d != DialectSnowflake
}
