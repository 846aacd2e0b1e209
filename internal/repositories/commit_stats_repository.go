package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/qingbolan/github-yearbook/internal/models"
)

// CommitStatsRepository persists per-commit line stats, keyed by the
// credential digest. Rows are upserted individually rather than replacing the
// whole document, so concurrent aggregations sharing a credential can no
// longer drop each other's entries.
type CommitStatsRepository struct {
	db *sql.DB
}

// NewCommitStatsRepository creates a new CommitStatsRepository
func NewCommitStatsRepository(db *sql.DB) *CommitStatsRepository {
	return &CommitStatsRepository{db: db}
}

// GetDocument assembles the full cached document for a credential digest, or
// nil when nothing is cached. Corrupted rows and rows written under an older
// schema version are skipped.
func (r *CommitStatsRepository) GetDocument(digest string) (*models.CommitStatsDocument, error) {
	var (
		username      string
		schemaVersion int
		updatedAt     time.Time
	)
	header := `SELECT username, schema_version, updated_at FROM commit_stats_documents WHERE token_digest = ?`
	err := r.db.QueryRow(header, digest).Scan(&username, &schemaVersion, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if schemaVersion != models.CommitStatsSchemaVersion {
		return nil, nil
	}

	doc := models.NewCommitStatsDocument(username)
	doc.UpdatedAt = updatedAt

	query := `
		SELECT repo_full_name, commit_sha, additions, deletions, files
		FROM commit_stats_entries
		WHERE token_digest = ?
	`
	rows, err := r.db.Query(query, digest)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		entry := &models.CommitStatsEntry{}
		var filesJSON string
		if err := rows.Scan(&entry.RepoFullName, &entry.SHA, &entry.Additions, &entry.Deletions, &filesJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(filesJSON), &entry.Files); err != nil {
			// A corrupted row loses its file list but keeps its totals.
			entry.Files = nil
		}
		doc.Entries[models.EntryKey(entry.RepoFullName, entry.SHA)] = entry
	}

	return doc, rows.Err()
}

// GetByRepository returns the cached entries for one repository under a
// credential digest, keyed by commit SHA. Empty map when none.
func (r *CommitStatsRepository) GetByRepository(digest, repoFullName string) (map[string]*models.CommitStatsEntry, error) {
	query := `
		SELECT repo_full_name, commit_sha, additions, deletions, files
		FROM commit_stats_entries
		WHERE token_digest = ? AND repo_full_name = ?
	`
	rows, err := r.db.Query(query, digest, repoFullName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*models.CommitStatsEntry)
	for rows.Next() {
		entry := &models.CommitStatsEntry{}
		var filesJSON string
		if err := rows.Scan(&entry.RepoFullName, &entry.SHA, &entry.Additions, &entry.Deletions, &filesJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(filesJSON), &entry.Files); err != nil {
			entry.Files = nil
		}
		out[entry.SHA] = entry
	}

	return out, rows.Err()
}

// UpsertEntry inserts or replaces one cached commit under a credential
// digest, creating the document header row if needed. Commit stats are
// immutable, so replace semantics are safe.
func (r *CommitStatsRepository) UpsertEntry(digest, username string, entry *models.CommitStatsEntry) error {
	filesJSON, err := json.Marshal(entry.Files)
	if err != nil {
		return err
	}

	now := time.Now()

	headerQuery := `
		INSERT INTO commit_stats_documents (token_digest, username, schema_version, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(token_digest) DO UPDATE SET
			username = excluded.username,
			schema_version = excluded.schema_version,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(headerQuery, digest, username, models.CommitStatsSchemaVersion, now); err != nil {
		return err
	}

	entryQuery := `
		INSERT INTO commit_stats_entries (token_digest, repo_full_name, commit_sha, additions, deletions, files, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token_digest, repo_full_name, commit_sha) DO UPDATE SET
			additions = excluded.additions,
			deletions = excluded.deletions,
			files = excluded.files
	`
	_, err = r.db.Exec(entryQuery, digest, entry.RepoFullName, entry.SHA, entry.Additions, entry.Deletions, string(filesJSON), now)
	return err
}

// DeleteDocument removes a credential's cached document and all its entries.
func (r *CommitStatsRepository) DeleteDocument(digest string) error {
	if _, err := r.db.Exec(`DELETE FROM commit_stats_entries WHERE token_digest = ?`, digest); err != nil {
		return err
	}
	_, err := r.db.Exec(`DELETE FROM commit_stats_documents WHERE token_digest = ?`, digest)
	return err
}
