package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CommitStatsSchemaVersion is bumped when the shape of cached commit stats
// changes incompatibly. Documents with an older version are discarded on read.
const CommitStatsSchemaVersion = 2

// CommitFileStat is the per-file portion of a commit's diff stats.
type CommitFileStat struct {
	Filename  string `json:"filename"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// CommitStatsEntry caches the line-change stats of one immutable commit.
type CommitStatsEntry struct {
	RepoFullName string           `json:"repoFullName"`
	SHA          string           `json:"sha"`
	Additions    int              `json:"additions"`
	Deletions    int              `json:"deletions"`
	Files        []CommitFileStat `json:"files"`
}

// CommitStatsDocument is the full cached view for one credential. Entries are
// keyed "repoFullName@sha".
type CommitStatsDocument struct {
	SchemaVersion int                          `json:"schemaVersion"`
	Username      string                       `json:"username"`
	UpdatedAt     time.Time                    `json:"updatedAt"`
	Entries       map[string]*CommitStatsEntry `json:"entries"`
}

// NewCommitStatsDocument creates an empty document for a user.
func NewCommitStatsDocument(username string) *CommitStatsDocument {
	return &CommitStatsDocument{
		SchemaVersion: CommitStatsSchemaVersion,
		Username:      username,
		UpdatedAt:     time.Now(),
		Entries:       make(map[string]*CommitStatsEntry),
	}
}

// EntryKey builds the map key for one cached commit.
func EntryKey(repoFullName, sha string) string {
	return repoFullName + "@" + sha
}

// ForRepository returns the subset of entries for one repository, keyed by
// commit SHA. The result is empty, never nil.
func (d *CommitStatsDocument) ForRepository(repoFullName string) map[string]*CommitStatsEntry {
	out := make(map[string]*CommitStatsEntry)
	if d == nil {
		return out
	}
	for _, e := range d.Entries {
		if e.RepoFullName == repoFullName {
			out[e.SHA] = e
		}
	}
	return out
}

// TokenDigest derives the cache key for a credential. The raw token is never
// stored; only this digest reaches cache storage.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
