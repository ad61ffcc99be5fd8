package main

import (
	"database/sql"
	"flag"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"marketplace-system/pkg/config"
)

// Мигратор схемы: go run ./cmd/migrate -command up|down|status
func main() {
	command := flag.String("command", "up", "команда goose: up, down, status, version")
	dir := flag.String("dir", "migrations", "каталог с миграциями")
	flag.Parse()

	cfg := config.New()

	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("Не удалось открыть соединение с БД: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Не удалось установить диалект: %v", err)
	}

	if err := goose.Run(*command, db, *dir); err != nil {
		log.Fatalf("Ошибка миграции (%s): %v", *command, err)
	}
	log.Printf("Миграции выполнены: %s", *command)
}
