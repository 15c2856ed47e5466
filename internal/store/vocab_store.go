package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modhub/platform/internal/domain/vocab"
	"github.com/modhub/platform/internal/idcodec"
)

// VocabStore loads the server-managed vocabularies: process-wide state,
// loaded at startup, refreshed only by admin vocabulary mutations. Unlike
// the entity stores above, these reads are whole-table snapshots, never
// filtered by a request's principal.
type VocabStore struct{ store *Store }

func NewVocabStore(s *Store) *VocabStore { return &VocabStore{store: s} }

func (r *VocabStore) ListCategories(ctx context.Context) ([]vocab.Category, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, `SELECT id, name, header FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list categories: %w", err)
	}
	defer rows.Close()

	var out []vocab.Category
	for rows.Next() {
		var id int64
		var c vocab.Category
		if err := rows.Scan(&id, &c.Name, &c.Header); err != nil {
			return nil, err
		}
		c.ID = idcodec.CategoryID(id)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *VocabStore) ListLoaders(ctx context.Context) ([]vocab.Loader, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, `SELECT id, name, supported_kinds FROM loaders ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list loaders: %w", err)
	}
	defer rows.Close()

	var out []vocab.Loader
	for rows.Next() {
		var id int64
		var l vocab.Loader
		var kinds []byte
		if err := rows.Scan(&id, &l.Name, &kinds); err != nil {
			return nil, err
		}
		l.ID = idcodec.LoaderID(id)
		if len(kinds) > 0 {
			if err := json.Unmarshal(kinds, &l.SupportedKinds); err != nil {
				return nil, fmt.Errorf("store: unmarshal loader supported kinds: %w", err)
			}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *VocabStore) ListLoaderFields(ctx context.Context) ([]vocab.LoaderField, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, `SELECT id, key, field_type, enum_values FROM loader_fields ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("store: list loader fields: %w", err)
	}
	defer rows.Close()

	var out []vocab.LoaderField
	for rows.Next() {
		var id int64
		var f vocab.LoaderField
		var fieldType string
		var enumValues []byte
		if err := rows.Scan(&id, &f.Key, &fieldType, &enumValues); err != nil {
			return nil, err
		}
		f.ID = idcodec.LoaderFieldID(id)
		f.Type = vocab.FieldType(fieldType)
		if len(enumValues) > 0 {
			if err := json.Unmarshal(enumValues, &f.EnumValues); err != nil {
				return nil, fmt.Errorf("store: unmarshal loader field enum values: %w", err)
			}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *VocabStore) ListLinkPlatforms(ctx context.Context) ([]vocab.LinkPlatform, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, `SELECT id, name, donation FROM link_platforms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list link platforms: %w", err)
	}
	defer rows.Close()

	var out []vocab.LinkPlatform
	for rows.Next() {
		var id int64
		var p vocab.LinkPlatform
		if err := rows.Scan(&id, &p.Name, &p.Donation); err != nil {
			return nil, err
		}
		p.ID = idcodec.LinkPlatformID(id)
		out = append(out, p)
	}
	return out, rows.Err()
}
