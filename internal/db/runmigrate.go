package db

import "log"

// RunMigrations connects, applies the schema (SQL migrations or AutoMigrate
// depending on MIGRATIONS), seeds the default settings and closes the pool.
// Backs the server's -migrate-only flag.
func RunMigrations() error {
	conn, err := ConnectAndMigrate()
	if err != nil {
		return err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	log.Println("migrations applied")
	return sqlDB.Close()
}
