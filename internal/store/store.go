package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/serapieum/docent/internal/util"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

// Store owns the document store, the full-text index and the vector tables,
// all backed by a single SQLite database.
type Store struct {
	DB     *sql.DB
	DBPath string
}

func NewStore(dbPath string) (*Store, error) {
	sqlite_vec.Auto() // Load sqlite-vec extension

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;"); err != nil {
		return nil, err
	}

	s := &Store{DB: db, DBPath: dbPath}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS content (
			hash TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			path TEXT NOT NULL,
			title TEXT NOT NULL,
			hash TEXT NOT NULL,
			meta TEXT NOT NULL DEFAULT '{}',
			active INTEGER NOT NULL DEFAULT 1,
			modified_at TEXT NOT NULL,
			FOREIGN KEY (hash) REFERENCES content(hash) ON DELETE CASCADE,
			UNIQUE(collection, path)
		)`,
		// Metadata index: file name -> content hash, for name-based lookup
		`CREATE TABLE IF NOT EXISTS file_index (
			file_name TEXT NOT NULL,
			hash TEXT NOT NULL,
			PRIMARY KEY (file_name, hash)
		)`,
		// FTS5 Table
		`CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			filepath, title, body,
			tokenize='porter unicode61'
		)`,
		// Triggers for FTS
		`CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents
		 BEGIN
			INSERT INTO documents_fts(rowid, filepath, title, body)
			SELECT new.id, new.collection || '/' || new.path, new.title,
			(SELECT doc FROM content WHERE hash = new.hash);
		 END`,
		`CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents
		 BEGIN
			DELETE FROM documents_fts WHERE rowid = old.id;
		 END`,
		`CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE ON documents
		 BEGIN
			DELETE FROM documents_fts WHERE rowid = old.id;
			INSERT INTO documents_fts(rowid, filepath, title, body)
			SELECT new.id, new.collection || '/' || new.path, new.title,
			(SELECT doc FROM content WHERE hash = new.hash);
		 END`,
		`CREATE TABLE IF NOT EXISTS content_vectors (
			hash TEXT NOT NULL,
			seq INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (hash, seq)
		)`,
		// Named vector indexes
		`CREATE TABLE IF NOT EXISTS indexes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			model TEXT NOT NULL,
			dim INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS index_members (
			index_id INTEGER NOT NULL,
			hash TEXT NOT NULL,
			PRIMARY KEY (index_id, hash),
			FOREIGN KEY (index_id) REFERENCES indexes(id) ON DELETE CASCADE
		)`,
	}

	for _, q := range queries {
		if _, err := s.DB.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

var vecDimRe = regexp.MustCompile(`float\[(\d+)\]`)

// EnsureVectorTable creates the vec0 virtual table with the given dimension.
// If the table exists with a different dimension it is dropped along with all
// embedding bookkeeping; vectors of mixed dimensions cannot coexist.
func (s *Store) EnsureVectorTable(dim int) error {
	var ddl sql.NullString
	err := s.DB.QueryRow(`SELECT sql FROM sqlite_master WHERE name = 'vectors_vec'`).Scan(&ddl)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if ddl.Valid {
		match := vecDimRe.FindStringSubmatch(ddl.String)
		if len(match) > 1 && match[1] == fmt.Sprint(dim) {
			return nil
		}
		if _, err := s.DB.Exec(`DROP TABLE vectors_vec`); err != nil {
			return err
		}
		if _, err := s.DB.Exec(`DELETE FROM content_vectors`); err != nil {
			return err
		}
	}

	_, err = s.DB.Exec(fmt.Sprintf(`CREATE VIRTUAL TABLE vectors_vec USING vec0(
		hash_seq TEXT PRIMARY KEY,
		embedding float[%d] distance_metric=cosine
	)`, dim))
	return err
}

// Document is a stored document plus its metadata.
type Document struct {
	Collection string
	Path       string
	Title      string
	Hash       string
	Content    string
	Meta       map[string]string
}

// AddDocument stores a document. The hash is derived from the content when
// empty. Documents whose (collection, path) already exists are skipped unless
// update is set. Returns true when the document was written.
func (s *Store) AddDocument(doc Document, update bool) (bool, error) {
	if doc.Hash == "" {
		doc.Hash = util.HashContent(doc.Content)
	}
	if doc.Title == "" {
		doc.Title = util.ExtractTitle(doc.Content, doc.Path)
	}
	now := time.Now().Format(time.RFC3339)

	if !update {
		var existing string
		err := s.DB.QueryRow(`SELECT hash FROM documents WHERE collection = ? AND path = ?`,
			doc.Collection, doc.Path).Scan(&existing)
		if err == nil && existing == doc.Hash {
			return false, nil
		}
		if err != nil && err != sql.ErrNoRows {
			return false, err
		}
	}

	metaJSON := "{}"
	if len(doc.Meta) > 0 {
		b, err := json.Marshal(doc.Meta)
		if err != nil {
			return false, err
		}
		metaJSON = string(b)
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR IGNORE INTO content (hash, doc, created_at) VALUES (?, ?, ?)`,
		doc.Hash, doc.Content, now)
	if err != nil {
		return false, err
	}

	_, err = tx.Exec(`
		INSERT INTO documents (collection, path, title, hash, meta, modified_at, active)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(collection, path) DO UPDATE SET
			title=excluded.title,
			hash=excluded.hash,
			meta=excluded.meta,
			modified_at=excluded.modified_at,
			active=1
	`, doc.Collection, doc.Path, doc.Title, doc.Hash, metaJSON, now)
	if err != nil {
		return false, err
	}

	fileName := filepath.Base(doc.Path)
	_, err = tx.Exec(`INSERT OR IGNORE INTO file_index (file_name, hash) VALUES (?, ?)`,
		fileName, doc.Hash)
	if err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// IndexDocument is the path/content shorthand used by the directory walkers.
func (s *Store) IndexDocument(colName, path, content string) error {
	_, err := s.AddDocument(Document{
		Collection: colName,
		Path:       path,
		Content:    content,
	}, true)
	return err
}

// GetDocument retrieves the content of a document by collection and path.
func (s *Store) GetDocument(collection, path string) (string, error) {
	var content string
	err := s.DB.QueryRow(`
		SELECT c.doc
		FROM documents d
		JOIN content c ON d.hash = c.hash
		WHERE d.collection = ? AND d.path = ?
	`, collection, path).Scan(&content)

	if err == sql.ErrNoRows {
		return "", fmt.Errorf("document not found: %s/%s", collection, path)
	}
	if err != nil {
		return "", err
	}
	return content, nil
}

// GetDocsByFileName returns documents whose file name matches. With exact set
// the name must match fully, otherwise a substring match is used.
func (s *Store) GetDocsByFileName(fileName string, exact bool) ([]Document, error) {
	where := `f.file_name LIKE '%' || ? || '%'`
	if exact {
		where = `f.file_name = ?`
	}

	rows, err := s.DB.Query(`
		SELECT d.collection, d.path, d.title, d.hash, d.meta, c.doc
		FROM file_index f
		JOIN documents d ON d.hash = f.hash
		JOIN content c ON c.hash = f.hash
		WHERE `+where, fileName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var metaJSON string
		if err := rows.Scan(&d.Collection, &d.Path, &d.Title, &d.Hash, &metaJSON, &d.Content); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(metaJSON), &d.Meta); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListDocuments returns all active documents (without content).
func (s *Store) ListDocuments() ([]Document, error) {
	rows, err := s.DB.Query(`
		SELECT collection, path, title, hash FROM documents WHERE active = 1
		ORDER BY collection, path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.Collection, &d.Path, &d.Title, &d.Hash); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

type SearchResult struct {
	DocID    int64
	Filepath string // Format: collection/path
	Title    string
	Snippet  string
	Matches  []string
	Score    float64
}

// SearchFTS performs a BM25 full text search. When contextLines > 0 each
// match is returned with that many surrounding lines; findAll returns every
// matching line in a document instead of just the first.
func (s *Store) SearchFTS(query string, limit, contextLines int, findAll bool) ([]SearchResult, error) {
	ftsQuery := fmt.Sprintf(`"%s"*`, query)

	rows, err := s.DB.Query(`
		SELECT
			rowid,
			filepath,
			title,
			snippet(documents_fts, 2, '', '', '...', 10) as snip,
			bm25(documents_fts) as rank,
			body
		FROM documents_fts
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var body string
		if err := rows.Scan(&r.DocID, &r.Filepath, &r.Title, &r.Snippet, &r.Score, &body); err != nil {
			return nil, err
		}
		if contextLines > 0 || findAll {
			r.Matches = matchLines(body, query, contextLines, findAll)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// matchLines scans body for lines containing query (case-insensitive) and
// returns them with context lines around each match.
func matchLines(body, query string, contextLines int, findAll bool) []string {
	lines := strings.Split(body, "\n")
	lowerQuery := strings.ToLower(query)

	var matches []string
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), lowerQuery) {
			continue
		}

		start := i - contextLines
		if start < 0 {
			start = 0
		}
		end := i + contextLines + 1
		if end > len(lines) {
			end = len(lines)
		}
		matches = append(matches, strings.Join(lines[start:end], "\n"))

		if !findAll {
			break
		}
	}
	return matches
}

func (s *Store) SaveEmbedding(hash string, seq int, vec []float32) error {
	blob, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s_%d", hash, seq)

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR IGNORE INTO content_vectors (hash, seq) VALUES (?, ?)`, hash, seq)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`INSERT OR REPLACE INTO vectors_vec (hash_seq, embedding) VALUES (?, ?)`, key, blob)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) SearchVec(queryVec []float32, limit int) ([]SearchResult, error) {
	queryBlob, err := sqlite_vec.SerializeFloat32(queryVec)
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(`
		SELECT
			v.distance,
			d.collection || '/' || d.path,
			d.title,
			substr(c.doc, 1, 200)
		FROM vectors_vec v
		JOIN content_vectors cv ON v.hash_seq = cv.hash || '_' || cv.seq
		JOIN documents d ON d.hash = cv.hash
		JOIN content c ON c.hash = d.hash
		WHERE v.embedding MATCH ?
		AND k = ?
		ORDER BY v.distance
	`, queryBlob, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Score, &r.Filepath, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		r.Score = 1.0 - r.Score // Convert distance to similarity
		results = append(results, r)
	}
	return results, rows.Err()
}

// SearchHybrid combines FTS and vector search, ranked with RRF.
func (s *Store) SearchHybrid(query string, queryVec []float32, limit int) ([]SearchResult, error) {
	ftsResults, err := s.SearchFTS(query, limit, 1, false)
	if err != nil {
		return nil, err
	}

	vecResults, err := s.SearchVec(queryVec, limit)
	if err != nil {
		return nil, err
	}

	fused := ReciprocalRankFusion(ftsResults, vecResults)
	if len(fused) > limit {
		fused = fused[:limit]
	}
	return fused, nil
}

// GetPendingEmbeddings returns hash -> content for documents without vectors.
func (s *Store) GetPendingEmbeddings() (map[string]string, error) {
	rows, err := s.DB.Query(`
		SELECT DISTINCT d.hash, c.doc
		FROM documents d
		JOIN content c ON d.hash = c.hash
		LEFT JOIN content_vectors cv ON d.hash = cv.hash
		WHERE cv.hash IS NULL AND d.active = 1
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[string]string)
	for rows.Next() {
		var hash, body string
		if err := rows.Scan(&hash, &body); err != nil {
			return nil, err
		}
		res[hash] = body
	}
	return res, rows.Err()
}

type Stats struct {
	TotalDocuments int
	Collections    int
	Embeddings     int
	Indexes        int
}

func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := s.DB.QueryRow("SELECT COUNT(*) FROM documents WHERE active=1").Scan(&stats.TotalDocuments)
	if err != nil {
		return nil, err
	}

	err = s.DB.QueryRow("SELECT COUNT(DISTINCT collection) FROM documents WHERE active=1").Scan(&stats.Collections)
	if err != nil {
		return nil, err
	}

	// The vector table only exists once embeddings are configured
	err = s.DB.QueryRow("SELECT COUNT(*) FROM vectors_vec").Scan(&stats.Embeddings)
	if err != nil {
		stats.Embeddings = 0
	}

	err = s.DB.QueryRow("SELECT COUNT(*) FROM indexes").Scan(&stats.Indexes)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
