package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// IndexInfo describes a named vector index.
type IndexInfo struct {
	ID        int64
	Name      string
	Model     string
	Dim       int
	CreatedAt string
	Docs      int
}

// CreateIndex registers a named vector index. Names are unique.
func (s *Store) CreateIndex(name, model string, dim int) (int64, error) {
	now := time.Now().Format(time.RFC3339)
	res, err := s.DB.Exec(`INSERT INTO indexes (name, model, dim, created_at) VALUES (?, ?, ?, ?)`,
		name, model, dim, now)
	if err != nil {
		return 0, fmt.Errorf("create index %q: %w", name, err)
	}
	return res.LastInsertId()
}

// AddIndexMember records that a document belongs to an index.
func (s *Store) AddIndexMember(indexID int64, hash string) error {
	_, err := s.DB.Exec(`INSERT OR IGNORE INTO index_members (index_id, hash) VALUES (?, ?)`,
		indexID, hash)
	return err
}

func (s *Store) GetIndex(name string) (*IndexInfo, error) {
	info := &IndexInfo{}
	err := s.DB.QueryRow(`
		SELECT i.id, i.name, i.model, i.dim, i.created_at,
			(SELECT COUNT(*) FROM index_members m WHERE m.index_id = i.id)
		FROM indexes i WHERE i.name = ?`, name).
		Scan(&info.ID, &info.Name, &info.Model, &info.Dim, &info.CreatedAt, &info.Docs)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("index not found: %s", name)
	}
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Store) ListIndexes() ([]IndexInfo, error) {
	rows, err := s.DB.Query(`
		SELECT i.id, i.name, i.model, i.dim, i.created_at,
			(SELECT COUNT(*) FROM index_members m WHERE m.index_id = i.id)
		FROM indexes i ORDER BY i.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []IndexInfo
	for rows.Next() {
		var info IndexInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Model, &info.Dim, &info.CreatedAt, &info.Docs); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteIndex removes an index and its memberships. Document content and
// vectors are left alone; they may be shared with other indexes.
func (s *Store) DeleteIndex(name string) error {
	res, err := s.DB.Exec(`DELETE FROM indexes WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("index not found: %s", name)
	}
	return nil
}

// IndexDocIDs returns the content hashes of the documents in an index.
func (s *Store) IndexDocIDs(name string) ([]string, error) {
	rows, err := s.DB.Query(`
		SELECT m.hash FROM index_members m
		JOIN indexes i ON i.id = m.index_id
		WHERE i.name = ? ORDER BY m.hash`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// IndexEmbeddings returns the stored vectors of an index, keyed by document
// hash, with one vector per chunk in sequence order.
func (s *Store) IndexEmbeddings(name string) (map[string][][]float32, error) {
	rows, err := s.DB.Query(`
		SELECT cv.hash, cv.seq, v.embedding
		FROM index_members m
		JOIN indexes i ON i.id = m.index_id
		JOIN content_vectors cv ON cv.hash = m.hash
		JOIN vectors_vec v ON v.hash_seq = cv.hash || '_' || cv.seq
		WHERE i.name = ?
		ORDER BY cv.hash, cv.seq`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	embeddings := make(map[string][][]float32)
	for rows.Next() {
		var hash string
		var seq int
		var blob []byte
		if err := rows.Scan(&hash, &seq, &blob); err != nil {
			return nil, err
		}
		embeddings[hash] = append(embeddings[hash], deserializeFloat32(blob))
	}
	return embeddings, rows.Err()
}

// deserializeFloat32 decodes the little-endian float32 blob layout used by
// sqlite-vec.
func deserializeFloat32(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec
}
