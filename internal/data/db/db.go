package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/sjwg/reporter-backend/internal/platform/envutil"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// New opens the record store. DATABASE_URL selects the driver: a postgres://
// DSN uses the postgres driver, a sqlite:// URL (or no URL at all) uses a
// local sqlite file, which is also the development default.
func New(logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DBService")

	dsn := envutil.String("DATABASE_URL", "")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var (
		conn *gorm.DB
		err  error
	)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		conn, err = gorm.Open(postgres.Open(dsn), cfg)
	case strings.HasPrefix(dsn, "sqlite://"):
		conn, err = gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), cfg)
	case dsn == "":
		path := envutil.String("SQLITE_PATH", "app.db")
		conn, err = gorm.Open(sqlite.Open(path), cfg)
	default:
		return nil, fmt.Errorf("unrecognized DATABASE_URL scheme: %s", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	serviceLog.Info("Database connection established", "driver", conn.Dialector.Name())
	return &Service{db: conn, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }
