package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jward/arbor/internal/analysis"
)

// SaveAnalyses replaces the cached entries of every given file within a
// single transaction. Failed analyses are not cached. Only local
// resolutions are persisted; cross-file state is recomputed every run.
func (s *Store) SaveAnalyses(files []*analysis.FileAnalysis, queryHash string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save analyses: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, fa := range files {
		if !fa.OK() {
			continue
		}
		if err := saveTx(tx, fa, queryHash, now); err != nil {
			return fmt.Errorf("save analyses: %s: %w", fa.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save analyses: commit: %w", err)
	}
	return nil
}

func saveTx(tx *sql.Tx, fa *analysis.FileAnalysis, queryHash string, now time.Time) error {
	if _, err := tx.Exec("DELETE FROM files WHERE path = ?", fa.Path); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	res, err := tx.Exec(
		"INSERT INTO files (path, language, hash, query_hash, last_indexed) VALUES (?, ?, ?, ?, ?)",
		fa.Path, fa.Language, fa.Hash, queryHash, now)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("file id: %w", err)
	}

	for _, sc := range fa.Scopes {
		if _, err := tx.Exec(
			"INSERT INTO scopes (file_id, scope_id, start_byte, end_byte, parent_id) VALUES (?, ?, ?, ?, ?)",
			fileID, int(sc.ID), sc.Span.Start, sc.Span.End, int(sc.Parent)); err != nil {
			return fmt.Errorf("insert scope: %w", err)
		}
	}

	for _, d := range fa.Definitions {
		l := d.Location
		if _, err := tx.Exec(
			`INSERT INTO definitions (file_id, idx, name, start_byte, end_byte, start_line, start_col,
			   end_line, end_col, scope_id, exported, kind, node_type, signature, documentation)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fileID, d.Index, d.Name, l.Span.Start, l.Span.End, l.Start.Line, l.Start.Character,
			l.End.Line, l.End.Character, int(d.Scope), d.Exported, d.Kind, d.NodeType, d.Signature, d.Documentation); err != nil {
			return fmt.Errorf("insert definition %q: %w", d.Name, err)
		}
	}

	for i, r := range fa.References {
		var target sql.NullInt64
		if r.Resolution == analysis.ResolvedLocal {
			target = sql.NullInt64{Int64: int64(r.Target.Index), Valid: true}
		}
		l := r.Location
		if _, err := tx.Exec(
			`INSERT INTO references_ (file_id, idx, name, start_byte, end_byte, start_line, start_col,
			   end_line, end_col, scope_id, node_type, target_idx)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fileID, i, r.Name, l.Span.Start, l.Span.End, l.Start.Line, l.Start.Character,
			l.End.Line, l.End.Character, int(r.Scope), r.NodeType, target); err != nil {
			return fmt.Errorf("insert reference %q: %w", r.Name, err)
		}
	}

	for _, c := range fa.Comments {
		if _, err := tx.Exec("INSERT INTO comments (file_id, start_byte, end_byte) VALUES (?, ?, ?)",
			fileID, c.Start, c.End); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
	}
	return nil
}

// LoadAnalysis returns the cached analysis of path when both its content
// hash and the query hash match. References come back as they were after
// per-file analysis: local ones resolved, the rest Unresolved.
func (s *Store) LoadAnalysis(path, hash, queryHash string) (*analysis.FileAnalysis, bool, error) {
	var (
		fileID int64
		lang   string
	)
	err := s.db.QueryRow(
		"SELECT id, language FROM files WHERE path = ? AND hash = ? AND query_hash = ?",
		path, hash, queryHash).Scan(&fileID, &lang)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", path, err)
	}

	fa := &analysis.FileAnalysis{Path: path, Language: lang, Hash: hash}
	if fa.Scopes, err = s.loadScopes(fileID); err != nil {
		return nil, false, fmt.Errorf("load %s: %w", path, err)
	}
	if fa.Definitions, err = s.loadDefinitions(fileID, path); err != nil {
		return nil, false, fmt.Errorf("load %s: %w", path, err)
	}
	if fa.References, err = s.loadReferences(fileID, path); err != nil {
		return nil, false, fmt.Errorf("load %s: %w", path, err)
	}
	if fa.Comments, err = s.loadComments(fileID); err != nil {
		return nil, false, fmt.Errorf("load %s: %w", path, err)
	}
	return fa, true, nil
}

func (s *Store) loadScopes(fileID int64) ([]analysis.ScopeRegion, error) {
	rows, err := s.db.Query(
		"SELECT scope_id, start_byte, end_byte, parent_id FROM scopes WHERE file_id = ? ORDER BY scope_id", fileID)
	if err != nil {
		return nil, fmt.Errorf("scopes: %w", err)
	}
	defer rows.Close()

	var out []analysis.ScopeRegion
	for rows.Next() {
		var sc analysis.ScopeRegion
		var id, parent int
		if err := rows.Scan(&id, &sc.Span.Start, &sc.Span.End, &parent); err != nil {
			return nil, fmt.Errorf("scan scope: %w", err)
		}
		sc.ID, sc.Parent = analysis.ScopeID(id), analysis.ScopeID(parent)
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Store) loadDefinitions(fileID int64, path string) ([]analysis.Definition, error) {
	rows, err := s.db.Query(
		`SELECT idx, name, start_byte, end_byte, start_line, start_col, end_line, end_col,
		   scope_id, exported, kind, node_type, signature, documentation
		 FROM definitions WHERE file_id = ? ORDER BY idx`, fileID)
	if err != nil {
		return nil, fmt.Errorf("definitions: %w", err)
	}
	defer rows.Close()

	var out []analysis.Definition
	for rows.Next() {
		d := analysis.Definition{Path: path}
		var scope int
		var kind, nodeType, sig, doc sql.NullString
		l := &d.Location
		if err := rows.Scan(&d.Index, &d.Name, &l.Span.Start, &l.Span.End, &l.Start.Line, &l.Start.Character,
			&l.End.Line, &l.End.Character, &scope, &d.Exported, &kind, &nodeType, &sig, &doc); err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		d.Scope = analysis.ScopeID(scope)
		d.Kind, d.NodeType = kind.String, nodeType.String
		d.Signature, d.Documentation = sig.String, doc.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) loadReferences(fileID int64, path string) ([]analysis.Reference, error) {
	rows, err := s.db.Query(
		`SELECT name, start_byte, end_byte, start_line, start_col, end_line, end_col, scope_id, node_type, target_idx
		 FROM references_ WHERE file_id = ? ORDER BY idx`, fileID)
	if err != nil {
		return nil, fmt.Errorf("references: %w", err)
	}
	defer rows.Close()

	var out []analysis.Reference
	for rows.Next() {
		r := analysis.Reference{Path: path}
		var scope int
		var nodeType sql.NullString
		var target sql.NullInt64
		l := &r.Location
		if err := rows.Scan(&r.Name, &l.Span.Start, &l.Span.End, &l.Start.Line, &l.Start.Character,
			&l.End.Line, &l.End.Character, &scope, &nodeType, &target); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		r.Scope, r.NodeType = analysis.ScopeID(scope), nodeType.String
		if target.Valid {
			r.Resolution = analysis.ResolvedLocal
			r.Target = analysis.DefinitionRef{Path: path, Index: int(target.Int64)}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) loadComments(fileID int64) ([]analysis.Span, error) {
	rows, err := s.db.Query(
		"SELECT start_byte, end_byte FROM comments WHERE file_id = ? ORDER BY start_byte, end_byte", fileID)
	if err != nil {
		return nil, fmt.Errorf("comments: %w", err)
	}
	defer rows.Close()

	var out []analysis.Span
	for rows.Next() {
		var c analysis.Span
		if err := rows.Scan(&c.Start, &c.End); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
