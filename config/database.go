package config

import (
	"fmt"
	"log/slog"
	"os"

	"student-services/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// OpenDB открывает соединение с выбранной СУБД.
func OpenDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	return gorm.Open(dialector, &gorm.Config{})
}

func ConnectDB(s *Settings) {
	if s.DBURL == "" {
		slog.Error("Критическая ошибка: переменная окружения DB_URL не установлена.")
		os.Exit(1)
	}

	db, err := OpenDB(s.DBDriver, s.DBURL)
	if err != nil {
		slog.Error("Ошибка подключения к БД", "driver", s.DBDriver, "error", err)
		os.Exit(1)
	}

	if err := models.AutoMigrate(db); err != nil {
		slog.Error("Ошибка миграции схемы", "error", err)
		os.Exit(1)
	}

	DB = db
	slog.Info("Успешное подключение к базе данных!", "driver", s.DBDriver)
}
