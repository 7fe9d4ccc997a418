package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
)

// MappingMatchThreshold is the minimum header overlap for a saved mapping to
// be offered for an upload.
const MappingMatchThreshold = 0.5

// ErrMappingNotFound is returned for unknown saved mapping IDs.
var ErrMappingNotFound = errors.New("saved mapping not found")

// SavedMapping is a named column mapping kept for reuse on later uploads.
type SavedMapping struct {
	ID        string             `json:"id"`
	Target    string             `json:"target"`
	Name      string             `json:"name"`
	Mapping   core.ColumnMapping `json:"mapping"`
	Headers   []string           `json:"headers"` // Headers of the file the mapping was built from
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// MappingMatch is a saved mapping scored against an upload's headers.
type MappingMatch struct {
	SavedMapping
	Score float64 `json:"score"`
}

// SaveMapping creates a named mapping for target.
func (s *Store) SaveMapping(ctx context.Context, target, name string, mapping core.ColumnMapping, headers []string) (*SavedMapping, error) {
	mappingJSON, headersJSON, err := encodeMapping(target, name, mapping, headers)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO saved_mappings (company_id, target, name, mapping, headers)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, target, name, mapping, headers, created_at, updated_at`,
		s.companyID, target, strings.TrimSpace(name), mappingJSON, headersJSON,
	)
	m, err := scanMapping(row)
	if err != nil {
		if strings.Contains(err.Error(), "saved_mappings_target_name_unique") {
			return nil, fmt.Errorf("mapping '%s' already exists for %s", name, target)
		}
		return nil, dbError("save mapping", err)
	}
	return m, nil
}

// UpdateMapping replaces the name, mapping and headers of a saved mapping.
func (s *Store) UpdateMapping(ctx context.Context, target, id, name string, mapping core.ColumnMapping, headers []string) (*SavedMapping, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid mapping ID: %w", err)
	}
	mappingJSON, headersJSON, err := encodeMapping(target, name, mapping, headers)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE saved_mappings
		SET name = $4, mapping = $5, headers = $6, updated_at = now()
		WHERE id = $1 AND company_id = $2 AND target = $3
		RETURNING id, target, name, mapping, headers, created_at, updated_at`,
		pgtype.UUID{Bytes: uid, Valid: true}, s.companyID, target,
		strings.TrimSpace(name), mappingJSON, headersJSON,
	)
	m, err := scanMapping(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, dbError("update mapping", err)
	}
	return m, nil
}

// GetMapping retrieves a saved mapping by ID.
func (s *Store) GetMapping(ctx context.Context, id string) (*SavedMapping, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid mapping ID: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		SELECT id, target, name, mapping, headers, created_at, updated_at
		FROM saved_mappings
		WHERE id = $1 AND company_id = $2`,
		pgtype.UUID{Bytes: uid, Valid: true}, s.companyID,
	)
	m, err := scanMapping(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, dbError("get mapping", err)
	}
	return m, nil
}

// ListMappings returns all saved mappings for target, by name.
func (s *Store) ListMappings(ctx context.Context, target string) ([]SavedMapping, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, target, name, mapping, headers, created_at, updated_at
		FROM saved_mappings
		WHERE company_id = $1 AND target = $2
		ORDER BY name`,
		s.companyID, target,
	)
	if err != nil {
		return nil, dbError("list mappings", err)
	}
	defer rows.Close()

	var mappings []SavedMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			continue // Skip undecodable rows
		}
		mappings = append(mappings, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list mappings", err)
	}
	return mappings, nil
}

// DeleteMapping removes a saved mapping.
func (s *Store) DeleteMapping(ctx context.Context, target, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid mapping ID: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM saved_mappings WHERE id = $1 AND company_id = $2 AND target = $3`,
		pgtype.UUID{Bytes: uid, Valid: true}, s.companyID, target,
	)
	if err != nil {
		return dbError("delete mapping", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMappingNotFound
	}
	return nil
}

// MatchMappings returns saved mappings whose headers overlap the upload's
// headers by at least MappingMatchThreshold, best first.
func (s *Store) MatchMappings(ctx context.Context, target string, headers []string) ([]MappingMatch, error) {
	saved, err := s.ListMappings(ctx, target)
	if err != nil {
		return nil, err
	}
	return RankMappings(saved, headers), nil
}

// RankMappings scores saved mappings against headers and keeps those at or
// above MappingMatchThreshold, sorted by score descending.
func RankMappings(saved []SavedMapping, headers []string) []MappingMatch {
	var matches []MappingMatch
	for _, m := range saved {
		score := matchHeaders(headers, m.Headers)
		if score >= MappingMatchThreshold {
			matches = append(matches, MappingMatch{SavedMapping: m, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// matchHeaders returns the share of saved headers present in the upload.
func matchHeaders(uploadHeaders, savedHeaders []string) float64 {
	if len(savedHeaders) == 0 {
		return 0
	}

	uploadSet := make(map[string]bool, len(uploadHeaders))
	for _, h := range uploadHeaders {
		uploadSet[core.NormalizeHeader(h)] = true
	}

	matched := 0
	for _, h := range savedHeaders {
		if uploadSet[core.NormalizeHeader(h)] {
			matched++
		}
	}

	return float64(matched) / float64(len(savedHeaders))
}

// encodeMapping checks a mapping against its target and marshals it.
func encodeMapping(target, name string, mapping core.ColumnMapping, headers []string) ([]byte, []byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil, fmt.Errorf("mapping name is required")
	}

	cfg, err := core.GetConfig(target)
	if err != nil {
		return nil, nil, err
	}
	for field := range mapping {
		if _, ok := cfg.Field(field); !ok {
			return nil, nil, &core.UnknownFieldError{Target: target, Field: field}
		}
	}

	if headers == nil {
		headers = []string{}
	}

	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal mapping: %w", err)
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal headers: %w", err)
	}
	return mappingJSON, headersJSON, nil
}

func scanMapping(row pgx.Row) (*SavedMapping, error) {
	var (
		id          pgtype.UUID
		m           SavedMapping
		mappingJSON []byte
		headersJSON []byte
	)
	if err := row.Scan(&id, &m.Target, &m.Name, &mappingJSON, &headersJSON, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}

	m.ID = uuidString(id)
	if err := json.Unmarshal(mappingJSON, &m.Mapping); err != nil {
		return nil, fmt.Errorf("unmarshal mapping: %w", err)
	}
	if err := json.Unmarshal(headersJSON, &m.Headers); err != nil {
		return nil, fmt.Errorf("unmarshal headers: %w", err)
	}
	return &m, nil
}
