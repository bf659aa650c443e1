package anki

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// legacyModel is the part of a col.models entry we need
type legacyModel struct {
	Name   string `json:"name"`
	Fields []struct {
		Name string `json:"name"`
		Ord  int    `json:"ord"`
	} `json:"flds"`
}

// loadNotetypes reads notetypes from either schema: collections since
// schema 15 keep them in the notetypes and fields tables, older ones as
// JSON in col.models
func loadNotetypes(ctx context.Context, db *sql.DB) ([]Notetype, error) {
	modern, err := hasTable(ctx, db, "notetypes")
	if err != nil {
		return nil, err
	}
	if modern {
		return loadModernNotetypes(ctx, db)
	}

	legacy, err := hasTable(ctx, db, "col")
	if err != nil {
		return nil, err
	}
	if !legacy {
		return nil, ErrUnsupportedSchema
	}
	return loadLegacyNotetypes(ctx, db)
}

func hasTable(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to inspect schema: %w", err)
	}
	return count > 0, nil
}

func loadLegacyNotetypes(ctx context.Context, db *sql.DB) ([]Notetype, error) {
	var modelsJSON string
	if err := db.QueryRowContext(ctx, "SELECT models FROM col LIMIT 1").Scan(&modelsJSON); err != nil {
		return nil, fmt.Errorf("failed to read col.models: %w", err)
	}
	if modelsJSON == "" {
		return nil, ErrUnsupportedSchema
	}

	var models map[string]legacyModel
	if err := json.Unmarshal([]byte(modelsJSON), &models); err != nil {
		return nil, fmt.Errorf("failed to parse col.models: %w", err)
	}

	notetypes := make([]Notetype, 0, len(models))
	for key, m := range models {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid notetype id %q: %w", key, err)
		}

		flds := m.Fields
		sort.Slice(flds, func(i, j int) bool { return flds[i].Ord < flds[j].Ord })
		names := make([]string, len(flds))
		for i, f := range flds {
			names[i] = f.Name
		}

		notetypes = append(notetypes, Notetype{ID: id, Name: m.Name, Fields: names})
	}

	return notetypes, nil
}

func loadModernNotetypes(ctx context.Context, db *sql.DB) ([]Notetype, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, name FROM notetypes")
	if err != nil {
		return nil, fmt.Errorf("failed to read notetypes: %w", err)
	}

	byID := make(map[int64]*Notetype)
	var order []int64
	for rows.Next() {
		var nt Notetype
		if err := rows.Scan(&nt.ID, &nt.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan notetype: %w", err)
		}
		byID[nt.ID] = &nt
		order = append(order, nt.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fieldRows, err := db.QueryContext(ctx, "SELECT ntid, name FROM fields ORDER BY ntid, ord")
	if err != nil {
		return nil, fmt.Errorf("failed to read fields: %w", err)
	}
	defer fieldRows.Close()

	for fieldRows.Next() {
		var ntid int64
		var name string
		if err := fieldRows.Scan(&ntid, &name); err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		if nt, ok := byID[ntid]; ok {
			nt.Fields = append(nt.Fields, name)
		}
	}
	if err := fieldRows.Err(); err != nil {
		return nil, err
	}

	notetypes := make([]Notetype, 0, len(order))
	for _, id := range order {
		notetypes = append(notetypes, *byID[id])
	}
	return notetypes, nil
}
