package db

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Connect opens the store database. The handle is returned rather than kept
// in a package global so callers own init and teardown.
func Connect(dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Sync creates or updates the schema for all store models.
func Sync(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&User{},
		&Address{},
		&Product{},
		&Order{},
		&OrderItem{},
		&IntlTransaction{},
		&ActivationCode{},
	)
}

// Close releases the underlying connection pool.
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
