package db

import (
	"database/sql"
	"fmt"
	stdlog "log"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DatabaseConnection struct {
	db    *gorm.DB
	sqlDb *sql.DB
}

var (
	connection     *DatabaseConnection
	connectionOnce sync.Once
)

// Connection returns the shared connection configured by db.type, db.dsn
// and db.path, opening it on first use.
func Connection() *DatabaseConnection {
	connectionOnce.Do(func() {
		connection = InitDb()
	})
	return connection
}

func InitDb() *DatabaseConnection {
	dbType := viper.GetString("db.type")
	if dbType == "" {
		dbType = "sqlite"
	}
	dsn := viper.GetString("db.dsn")
	if dbType == "sqlite" && dsn == "" {
		dsn = viper.GetString("db.path")
	}

	conn, err := Open(dbType, dsn)
	if err != nil {
		log.Error().Err(err).Str("type", dbType).Msg("Failed to connect to database")
		os.Exit(1)
	}
	return conn
}

// Open connects to a sqlite file or a postgres DSN and migrates the schema.
func Open(dbType, dsn string) (*DatabaseConnection, error) {
	var dialector gorm.Dialector
	switch dbType {
	case "sqlite":
		if dsn == "" {
			dsn = "openeoct.db"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("db.dsn must be set for postgres")
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database type %q", dbType)
	}

	newLogger := logger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.AutoMigrate(&Backend{}, &Endpoint{}, &Variable{}, &ValidationResult{}); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(80)
	sqlDB.SetConnMaxLifetime(time.Hour)
	if dbType == "sqlite" {
		// sqlite allows a single writer and :memory: databases are per connection.
		sqlDB.SetMaxOpenConns(1)
	}

	return &DatabaseConnection{
		db:    db,
		sqlDb: sqlDB,
	}, nil
}

// DB exposes the gorm handle.
func (d *DatabaseConnection) DB() *gorm.DB {
	return d.db
}

func (d *DatabaseConnection) Close() error {
	return d.sqlDb.Close()
}
