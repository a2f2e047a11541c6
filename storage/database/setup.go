package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jennifer7519/fansafe/config"
	"github.com/jennifer7519/fansafe/storage/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect 按配置选择数据库：托管库地址与令牌同时存在时连接托管 Postgres，否则使用本地 SQLite 文件。
// 连接成功后完成连接池设置与模型迁移。
func Connect(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if cfg.UsesManagedDatabase() {
		dsn, err := managedDSN(cfg.ManagedDatabaseURL, cfg.ManagedDatabaseToken)
		if err != nil {
			return nil, err
		}
		dialector = postgres.Open(dsn)
		log.Info("using managed postgres database")
	} else {
		dsn, err := sqliteDSN(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		dialector = sqlite.Open(dsn)
		log.WithField("dsn", dsn).Info("using local sqlite database")
	}

	return Open(dialector, log)
}

// Open 使用给定方言打开连接并迁移，测试中直接传入内存 SQLite。
func Open(dialector gorm.Dialector, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return db, nil
}

// managedDSN 将令牌作为密码注入托管库连接串。
func managedDSN(rawURL, token string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse managed database url: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("managed database url must use postgres scheme, got %q", u.Scheme)
	}
	username := "postgres"
	if u.User != nil && u.User.Username() != "" {
		username = u.User.Username()
	}
	u.User = url.UserPassword(username, strings.TrimSpace(token))

	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "require")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sqliteDSN 规范化本地库地址：创建目录并开启外键约束（级联删除依赖它）。
func sqliteDSN(raw string) (string, error) {
	dsn := strings.TrimSpace(raw)
	if dsn == "" {
		dsn = "file:DB/fansafe.db"
	}

	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	if path != "" && !strings.Contains(dsn, "mode=memory") && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return "", fmt.Errorf("create database dir: %w", err)
			}
		}
	}

	if !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}
	return dsn, nil
}
