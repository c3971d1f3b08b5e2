package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	level := fs.String("level", "", "level filter (runs)")
	verb := fs.String("verb", "", "verb filter (commands)")
	_ = fs.Parse(args)

	q := "runs"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "runs.sqlite")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "runs":
		query := `SELECT run_id,level,started_at,COALESCE(finished_at,''),COALESCE(success,0),COALESCE(reason,''),COALESCE(end_tick,0),COALESCE(score,0),errors FROM runs`
		var qargs []any
		if *level != "" {
			query += ` WHERE level=?`
			qargs = append(qargs, *level)
		}
		query += ` ORDER BY started_at DESC LIMIT ?`
		qargs = append(qargs, *limit)
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				RunID      string `json:"run_id"`
				Level      string `json:"level"`
				StartedAt  string `json:"started_at"`
				FinishedAt string `json:"finished_at,omitempty"`
				Success    bool   `json:"success"`
				Reason     string `json:"reason,omitempty"`
				EndTick    int64  `json:"end_tick"`
				Score      int    `json:"score"`
				Errors     int    `json:"errors"`
			}
			if err := rows.Scan(&r.RunID, &r.Level, &r.StartedAt, &r.FinishedAt, &r.Success, &r.Reason, &r.EndTick, &r.Score, &r.Errors); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "levels":
		rows, err := db.Query(`SELECT name,digest,updated_at FROM levels ORDER BY name LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "commands":
		// Totals per verb across runs; per-type rows are left out.
		query := `SELECT verb,repeat,SUM(count),COUNT(DISTINCT run_id) FROM command_counts WHERE type=''`
		var qargs []any
		if *verb != "" {
			query += ` AND verb=?`
			qargs = append(qargs, *verb)
		}
		query += ` GROUP BY verb,repeat ORDER BY verb,repeat LIMIT ?`
		qargs = append(qargs, *limit)
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Verb   string `json:"verb"`
				Repeat bool   `json:"repeat"`
				Total  int64  `json:"total"`
				Runs   int64  `json:"runs"`
			}
			if err := rows.Scan(&r.Verb, &r.Repeat, &r.Total, &r.Runs); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want runs|levels|commands)")
		os.Exit(2)
	}
}
