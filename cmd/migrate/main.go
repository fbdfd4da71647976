// Command migrate applies the SQL files under migrations/ in name order,
// each inside its own transaction. With -list it prints the engine's
// tables instead.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

func main() {
	list := flag.Bool("list", false, "list engine tables instead of migrating")
	dir := flag.String("dir", "migrations", "directory containing .sql files")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("[migrate] DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("[migrate] open: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("[migrate] ping: %v", err)
	}

	if *list {
		if err := listTables(db); err != nil {
			log.Fatalf("[migrate] list tables: %v", err)
		}
		return
	}

	applied, failed, err := apply(db, *dir)
	if err != nil {
		log.Fatalf("[migrate] %v", err)
	}
	log.Printf("[migrate] done: %d applied, %d failed", applied, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func listTables(db *sql.DB) error {
	rows, err := db.Query(`SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		  AND (tablename LIKE 'newsletter%' OR tablename = 'segments')
		ORDER BY tablename`)
	if err != nil {
		return err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		fmt.Println(" ", name)
		n++
	}
	fmt.Printf("%d tables\n", n)
	return rows.Err()
}

func apply(db *sql.DB, dir string) (applied, failed int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		stmts, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return applied, failed, fmt.Errorf("read %s: %w", name, err)
		}
		if strings.TrimSpace(string(stmts)) == "" {
			continue
		}
		if err := applyOne(db, string(stmts)); err != nil {
			log.Printf("[migrate] %s: %v", name, err)
			failed++
			continue
		}
		log.Printf("[migrate] %s: ok", name)
		applied++
	}
	return applied, failed, nil
}

func applyOne(db *sql.DB, stmts string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(stmts); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
