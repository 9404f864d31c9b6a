package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SetAssetImage stores an asset's photo. Images live outside the JSON
// collections so a photo upload never rewrites the assets blob.
func (s *Store) SetAssetImage(ctx context.Context, assetID string, image []byte, mime string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO asset_images (asset_id, image, image_mime, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (asset_id) DO UPDATE SET
		     image = excluded.image, image_mime = excluded.image_mime,
		     updated_at = CURRENT_TIMESTAMP`,
		assetID, image, mime,
	)
	if err != nil {
		return fmt.Errorf("setting asset image: %w", err)
	}
	return nil
}

// AssetImage returns an asset's photo and MIME type, or nil when no photo
// has been uploaded.
func (s *Store) AssetImage(ctx context.Context, assetID string) ([]byte, string, error) {
	var image []byte
	var mime string
	err := s.db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM asset_images WHERE asset_id = ?`, assetID,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting asset image: %w", err)
	}
	return image, mime, nil
}

// DeleteAssetImage removes an asset's photo, if any.
func (s *Store) DeleteAssetImage(ctx context.Context, assetID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM asset_images WHERE asset_id = ?`, assetID,
	)
	if err != nil {
		return fmt.Errorf("deleting asset image: %w", err)
	}
	return nil
}
