package datasource

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/janekbaraniewski/aggscope/internal/filters"
)

// DemoTable is the table SeedDemo fills by default.
const DemoTable = "requests"

var (
	demoCountries = []struct {
		code    string
		weight  int
		regions []string
	}{
		{"US", 30, []string{"us-east", "us-west"}},
		{"DE", 14, []string{"eu-central"}},
		{"IN", 12, []string{"ap-south"}},
		{"BR", 9, []string{"sa-east"}},
		{"GB", 8, []string{"eu-west"}},
		{"JP", 7, []string{"ap-northeast"}},
		{"FR", 6, []string{"eu-west"}},
		{"CA", 5, []string{"us-east"}},
		{"AU", 4, []string{"ap-southeast"}},
		{"", 5, nil},
	}
	demoHosts  = []string{"api.example.com", "www.example.com", "cdn.example.com"}
	demoPaths  = []string{"/", "/login", "/search", "/api/v1/items", "/api/v1/orders", "/static/app.js"}
	demoStatus = []struct {
		code   int
		weight int
	}{{200, 80}, {301, 4}, {404, 9}, {500, 4}, {503, 3}}
)

// SeedDemo replaces table with n synthetic web request log rows. The same
// seed yields the same rows.
func (s *Store) SeedDemo(ctx context.Context, table string, n int, seed int64) error {
	if table == "" {
		table = DemoTable
	}
	ident := filters.QuoteIdent(table)
	rng := rand.New(rand.NewSource(seed))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("datasource: begin seed: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DROP TABLE IF EXISTS ` + ident,
		`CREATE TABLE ` + ident + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts DATETIME NOT NULL,
			country TEXT,
			region TEXT,
			host TEXT NOT NULL,
			path TEXT NOT NULL,
			status INTEGER NOT NULL,
			bytes INTEGER,
			latency_ms REAL,
			ok BOOLEAN NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("datasource: create %s: %w", table, err)
		}
	}

	insert, err := tx.PrepareContext(ctx, `INSERT INTO `+ident+
		` (ts, country, region, host, path, status, bytes, latency_ms, ok) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("datasource: prepare seed insert: %w", err)
	}
	defer insert.Close()

	end := s.now().UTC().Truncate(time.Hour)
	start := end.Add(-7 * 24 * time.Hour)
	span := end.Sub(start)

	totalCountryWeight := 0
	for _, c := range demoCountries {
		totalCountryWeight += c.weight
	}
	totalStatusWeight := 0
	for _, st := range demoStatus {
		totalStatusWeight += st.weight
	}

	for i := 0; i < n; i++ {
		if i%500 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		ts := start.Add(time.Duration(rng.Int63n(int64(span)))).Truncate(time.Millisecond)

		pick := rng.Intn(totalCountryWeight)
		country := demoCountries[len(demoCountries)-1]
		for _, c := range demoCountries {
			if pick < c.weight {
				country = c
				break
			}
			pick -= c.weight
		}
		var countryVal, regionVal any
		if country.code != "" {
			countryVal = country.code
			regionVal = country.regions[rng.Intn(len(country.regions))]
		}

		pick = rng.Intn(totalStatusWeight)
		status := demoStatus[0].code
		for _, st := range demoStatus {
			if pick < st.weight {
				status = st.code
				break
			}
			pick -= st.weight
		}

		var bytesVal any
		if rng.Intn(50) != 0 {
			bytesVal = 200 + rng.Int63n(64*1024)
		}
		latency := 5 + rng.ExpFloat64()*80
		if status >= 500 {
			latency *= 4
		}

		if _, err := insert.ExecContext(ctx,
			ts,
			countryVal,
			regionVal,
			demoHosts[rng.Intn(len(demoHosts))],
			demoPaths[rng.Intn(len(demoPaths))],
			status,
			bytesVal,
			float64(int(latency*10))/10,
			status < 400,
		); err != nil {
			return fmt.Errorf("datasource: seed row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("datasource: commit seed: %w", err)
	}
	return nil
}
