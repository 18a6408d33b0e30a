// Package registry persists completed scan reports in SQLite.
package registry

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/raysh454/vulnprobe/internal/logging"
	"github.com/raysh454/vulnprobe/internal/model"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrReportNotFound = errors.New("report not found")

// ReportMeta is a stored report without its findings.
type ReportMeta struct {
	ID        string `json:"id"`
	Target    string `json:"target"`
	Timestamp string `json:"timestamp"`
	Pages     int    `json:"pages"`
	Findings  int    `json:"findings"`
	CreatedAt int64  `json:"created_at"`
}

// Registry stores reports keyed by scan id.
type Registry struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (creating if needed) the SQLite database at path and migrates it.
func Open(path string, logger logging.Logger) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry db %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	r, err := NewRegistry(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// NewRegistry runs migrations from schema.sql against db.
func NewRegistry(db *sql.DB, logger logging.Logger) (*Registry, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Registry{db: db, logger: logger.With(logging.Field{Key: "component", Value: "registry"})}, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// SaveReport stores rep under id, replacing any earlier report with that id.
func (r *Registry) SaveReport(ctx context.Context, id string, rep *model.Report, pages int) error {
	if id == "" {
		return fmt.Errorf("report id is required")
	}
	if rep == nil {
		return fmt.Errorf("report is nil")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM findings WHERE report_id = ?`, id); err != nil {
		return fmt.Errorf("clear findings: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (id, target, timestamp, pages, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET target = excluded.target, timestamp = excluded.timestamp, pages = excluded.pages`,
		id, rep.Target, rep.Timestamp, pages, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO findings (report_id, seq, type, severity, url, param, payload, header, evidence, method, data)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare finding insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range rep.Findings {
		if f == nil {
			continue
		}
		data := ""
		if len(f.Data) > 0 {
			raw, err := json.Marshal(f.Data)
			if err != nil {
				return fmt.Errorf("encode finding data: %w", err)
			}
			data = string(raw)
		}
		sev := f.Severity
		if sev == "" {
			sev = model.SeverityOf(f.Type)
		}
		if _, err := stmt.ExecContext(ctx, id, i, string(f.Type), string(sev), f.URL,
			f.Param, f.Payload, f.Header, f.Evidence, f.Method, data); err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}
	r.logger.Debug("saved report",
		logging.Field{Key: "id", Value: id},
		logging.Field{Key: "findings", Value: len(rep.Findings)})
	return nil
}

// GetReport loads the report stored under id.
func (r *Registry) GetReport(ctx context.Context, id string) (*model.Report, error) {
	rep := &model.Report{Findings: []*model.Finding{}}
	row := r.db.QueryRowContext(ctx, `SELECT target, timestamp FROM reports WHERE id = ? LIMIT 1`, id)
	if err := row.Scan(&rep.Target, &rep.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("load report: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT type, severity, url, param, payload, header, evidence, method, data
         FROM findings
         WHERE report_id = ?
         ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load findings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			f              model.Finding
			typ, sev, data string
		)
		if err := rows.Scan(&typ, &sev, &f.URL, &f.Param, &f.Payload, &f.Header, &f.Evidence, &f.Method, &data); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.Type = model.FindingType(typ)
		f.Severity = model.Severity(sev)
		if data != "" {
			if err := json.Unmarshal([]byte(data), &f.Data); err != nil {
				return nil, fmt.Errorf("decode finding data: %w", err)
			}
		}
		rep.Findings = append(rep.Findings, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate findings: %w", err)
	}
	return rep, nil
}

// ListReports returns stored reports, newest first. limit <= 0 means no limit.
func (r *Registry) ListReports(ctx context.Context, limit int) ([]ReportMeta, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.target, r.timestamp, r.pages, r.created_at, COUNT(f.id)
         FROM reports r
         LEFT JOIN findings f ON f.report_id = r.id
         GROUP BY r.id
         ORDER BY r.created_at DESC, r.id
         LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []ReportMeta
	for rows.Next() {
		var m ReportMeta
		if err := rows.Scan(&m.ID, &m.Target, &m.Timestamp, &m.Pages, &m.CreatedAt, &m.Findings); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteReport removes a report and its findings.
func (r *Registry) DeleteReport(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM findings WHERE report_id = ?`, id); err != nil {
		return fmt.Errorf("delete findings: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReportNotFound
	}
	return tx.Commit()
}
