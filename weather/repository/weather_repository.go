package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"weatheretl/pkg/batch/database"
	"weatheretl/pkg/batch/util/exception"
	logger "weatheretl/pkg/batch/util/logger"
	weather_entity "weatheretl/weather/domain/entity"
)

const module = "weather_repository"

// DefaultTable は気象データを保存するテーブルの既定名です。
const DefaultTable = "weather_data"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// WeatherRepository は変換済みの気象データを保存するリポジトリです。
type WeatherRepository interface {
	// ReplaceWeatherData はテーブルの内容を records で置き換え、保存した行数を返します。
	ReplaceWeatherData(ctx context.Context, table string, records []weather_entity.WeatherRecord) (int, error)
}

// weatherRow は INSERT 用の行です。date は方言によらず YYYY-MM-DD の文字列で渡します。
type weatherRow struct {
	Date          string  `db:"date"`
	Temperature   float64 `db:"temperature"`
	FeelsLike     float64 `db:"feels_like"`
	Humidity      float64 `db:"humidity"`
	Precipitation float64 `db:"precipitation"`
	WindSpeed     float64 `db:"wind_speed"`
}

func toRow(r weather_entity.WeatherRecord) weatherRow {
	return weatherRow{
		Date:          r.Date.Format(weather_entity.DateLayout),
		Temperature:   r.Temperature,
		FeelsLike:     r.FeelsLike,
		Humidity:      r.Humidity,
		Precipitation: r.Precipitation,
		WindSpeed:     r.WindSpeed,
	}
}

// SQLWeatherRepository は DBConnection を使用する WeatherRepository の実装です。
type SQLWeatherRepository struct {
	conn database.DBConnection
}

var _ WeatherRepository = (*SQLWeatherRepository)(nil)

// NewWeatherRepository は新しい SQLWeatherRepository を作成します。接続が nil の場合は ConfigError を返します。
func NewWeatherRepository(conn database.DBConnection) (*SQLWeatherRepository, error) {
	if conn == nil {
		return nil, exception.NewBatchError(module, exception.KindConfig, "DATABASE_URL が設定されていないため気象データを保存できません", nil)
	}
	return &SQLWeatherRepository{conn: conn}, nil
}

// ValidateTableName はテーブル名が英数字とアンダースコアのみからなる識別子であることを確認します。
func ValidateTableName(table string) error {
	if !identifierPattern.MatchString(table) {
		return exception.NewBatchErrorf(module, exception.KindConfig, "テーブル名 '%s' は使用できません", table)
	}
	return nil
}

func quote(d database.Dialect, ident string) string {
	if d == database.DialectMySQL {
		return "`" + ident + "`"
	}
	return `"` + ident + `"`
}

func createTableSQL(d database.Dialect, table string, ifNotExists bool) string {
	columns := []string{
		quote(d, "date") + " " + d.DateType(),
		quote(d, "temperature") + " " + d.FloatType(),
		quote(d, "feels_like") + " " + d.FloatType(),
		quote(d, "humidity") + " " + d.FloatType(),
		quote(d, "precipitation") + " " + d.FloatType(),
		quote(d, "wind_speed") + " " + d.FloatType(),
	}
	clause := "CREATE TABLE "
	if ifNotExists {
		clause += "IF NOT EXISTS "
	}
	return clause + quote(d, table) + " (" + strings.Join(columns, ", ") + ")"
}

func insertSQL(d database.Dialect, table string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (%s, %s, %s, %s, %s, %s) VALUES (:date, :temperature, :feels_like, :humidity, :precipitation, :wind_speed)",
		quote(d, table),
		quote(d, "date"), quote(d, "temperature"), quote(d, "feels_like"),
		quote(d, "humidity"), quote(d, "precipitation"), quote(d, "wind_speed"),
	)
}

// ReplaceWeatherData はテーブルの内容を records で置き換えます。
//
// DDL をトランザクション内で扱える方言 (PostgreSQL, Redshift, SQLite) では DROP と CREATE と INSERT を
// 1 つのトランザクションで実行します。それ以外 (MySQL, Snowflake) ではトランザクションの外でテーブルを作成し、
// DELETE と INSERT をトランザクション内で実行します。いずれの場合もテーブルは置き換え前か置き換え後の
// どちらかの状態になります。
func (r *SQLWeatherRepository) ReplaceWeatherData(ctx context.Context, table string, records []weather_entity.WeatherRecord) (n int, err error) {
	if err := ValidateTableName(table); err != nil {
		return 0, err
	}
	d := r.conn.Dialect()

	if !d.TransactionalDDL() {
		if _, err := r.conn.ExecContext(ctx, createTableSQL(d, table, true)); err != nil {
			return 0, exception.NewBatchErrorf(module, exception.KindPersistence, "テーブル '%s' の作成に失敗しました", table, err)
		}
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, exception.NewBatchError(module, exception.KindPersistence, "トランザクションの開始に失敗しました", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Errorf("テーブル '%s' のロールバックに失敗しました: %v", table, rbErr)
			} else {
				logger.Warnf("テーブル '%s' への書き込みをロールバックしました。", table)
			}
		}
	}()

	if d.TransactionalDDL() {
		if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(d, table)); err != nil {
			return 0, exception.NewBatchErrorf(module, exception.KindPersistence, "テーブル '%s' の削除に失敗しました", table, err)
		}
		if _, err = tx.ExecContext(ctx, createTableSQL(d, table, false)); err != nil {
			return 0, exception.NewBatchErrorf(module, exception.KindPersistence, "テーブル '%s' の作成に失敗しました", table, err)
		}
	} else {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+quote(d, table)); err != nil {
			return 0, exception.NewBatchErrorf(module, exception.KindPersistence, "テーブル '%s' の既存データの削除に失敗しました", table, err)
		}
	}

	query := insertSQL(d, table)
	for i := range records {
		if err = ctx.Err(); err != nil {
			return 0, exception.NewBatchError(module, exception.KindPersistence, "書き込み中にキャンセルされました", err)
		}
		if _, err = tx.NamedExecContext(ctx, query, toRow(records[i])); err != nil {
			return 0, exception.NewBatchErrorf(module, exception.KindPersistence, "%d 行目の INSERT に失敗しました", i+1, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, exception.NewBatchError(module, exception.KindPersistence, "トランザクションのコミットに失敗しました", err)
	}
	logger.Infof("テーブル '%s' を %d 行で置き換えました。", table, len(records))
	return len(records), nil
}
