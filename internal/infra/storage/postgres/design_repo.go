package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/happyBayes/goods-gallery/internal/core/domain"
)

// DesignRepo implements storage.DesignRepository using PostgreSQL. Owner
// lookups go through the idx_designs_owner index (see migrations).
type DesignRepo struct {
	db *DB
}

// NewDesignRepo creates a new PostgreSQL design repository.
func NewDesignRepo(db *DB) *DesignRepo {
	return &DesignRepo{db: db}
}

type designRow struct {
	ID                 string    `db:"id"`
	ImageData          string    `db:"image_data"`
	Prompt             string    `db:"prompt"`
	EnhancedPrompt     string    `db:"enhanced_prompt"`
	Style              string    `db:"style"`
	ReferenceImage     string    `db:"reference_image"`
	CreatedAt          time.Time `db:"created_at"`
	OwnerArtifactID    string    `db:"owner_artifact_id"`
	OwnerArtifactTitle string    `db:"owner_artifact_title"`
	AspectRatio        string    `db:"aspect_ratio"`
	ByteSize           int       `db:"byte_size"`
	Width              int       `db:"width"`
	Height             int       `db:"height"`
	GenerationMs       int64     `db:"generation_ms"`
}

const designColumns = `id, image_data, prompt, enhanced_prompt, style, reference_image,
	created_at, owner_artifact_id, owner_artifact_title,
	aspect_ratio, byte_size, width, height, generation_ms`

func rowToDomain(row designRow) *domain.GeneratedDesign {
	return &domain.GeneratedDesign{
		ID:                 row.ID,
		ImageData:          row.ImageData,
		Prompt:             row.Prompt,
		EnhancedPrompt:     row.EnhancedPrompt,
		Style:              domain.Style(row.Style),
		ReferenceImage:     row.ReferenceImage,
		CreatedAt:          row.CreatedAt,
		OwnerArtifactID:    row.OwnerArtifactID,
		OwnerArtifactTitle: row.OwnerArtifactTitle,
		Metadata: domain.DesignMetadata{
			AspectRatio:  row.AspectRatio,
			ByteSize:     row.ByteSize,
			Width:        row.Width,
			Height:       row.Height,
			GenerationMs: row.GenerationMs,
		},
	}
}

func domainToRow(d *domain.GeneratedDesign) designRow {
	return designRow{
		ID:                 d.ID,
		ImageData:          d.ImageData,
		Prompt:             d.Prompt,
		EnhancedPrompt:     d.EnhancedPrompt,
		Style:              string(d.Style),
		ReferenceImage:     d.ReferenceImage,
		CreatedAt:          d.CreatedAt,
		OwnerArtifactID:    d.OwnerArtifactID,
		OwnerArtifactTitle: d.OwnerArtifactTitle,
		AspectRatio:        d.Metadata.AspectRatio,
		ByteSize:           d.Metadata.ByteSize,
		Width:              d.Metadata.Width,
		Height:             d.Metadata.Height,
		GenerationMs:       d.Metadata.GenerationMs,
	}
}

// Save stores a new design. A duplicate id fails with a storage error.
func (r *DesignRepo) Save(ctx context.Context, design *domain.GeneratedDesign) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO designs (`+designColumns+`)
		VALUES (:id, :image_data, :prompt, :enhanced_prompt, :style, :reference_image,
			:created_at, :owner_artifact_id, :owner_artifact_title,
			:aspect_ratio, :byte_size, :width, :height, :generation_ms)`,
		domainToRow(design))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return domain.NewStorageError(
				fmt.Sprintf("design %s already exists", design.ID), err)
		}
		return domain.WrapError(domain.ErrStorage, "failed to save design", true, err)
	}
	return nil
}

// Get retrieves a design by id, or nil if absent.
func (r *DesignRepo) Get(ctx context.Context, id string) (*domain.GeneratedDesign, error) {
	var row designRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+designColumns+` FROM designs WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "failed to get design", true, err)
	}
	return rowToDomain(row), nil
}

// GetAll returns every design in creation order.
func (r *DesignRepo) GetAll(ctx context.Context) ([]*domain.GeneratedDesign, error) {
	var rows []designRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+designColumns+` FROM designs ORDER BY seq`)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "failed to list designs", true, err)
	}

	out := make([]*domain.GeneratedDesign, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToDomain(row))
	}
	return out, nil
}

// GetByOwner returns the designs owned by one artifact, in creation order.
func (r *DesignRepo) GetByOwner(ctx context.Context, artifactID string) ([]*domain.GeneratedDesign, error) {
	var rows []designRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+designColumns+` FROM designs WHERE owner_artifact_id = $1 ORDER BY seq`,
		artifactID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "failed to list designs by owner", true, err)
	}

	out := make([]*domain.GeneratedDesign, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToDomain(row))
	}
	return out, nil
}

// Update replaces a design by id, inserting if absent.
func (r *DesignRepo) Update(ctx context.Context, design *domain.GeneratedDesign) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO designs (`+designColumns+`)
		VALUES (:id, :image_data, :prompt, :enhanced_prompt, :style, :reference_image,
			:created_at, :owner_artifact_id, :owner_artifact_title,
			:aspect_ratio, :byte_size, :width, :height, :generation_ms)
		ON CONFLICT (id) DO UPDATE SET
			image_data = EXCLUDED.image_data,
			prompt = EXCLUDED.prompt,
			enhanced_prompt = EXCLUDED.enhanced_prompt,
			style = EXCLUDED.style,
			reference_image = EXCLUDED.reference_image,
			owner_artifact_id = EXCLUDED.owner_artifact_id,
			owner_artifact_title = EXCLUDED.owner_artifact_title,
			aspect_ratio = EXCLUDED.aspect_ratio,
			byte_size = EXCLUDED.byte_size,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			generation_ms = EXCLUDED.generation_ms`,
		domainToRow(design))
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "failed to update design", true, err)
	}
	return nil
}

// Delete removes a design by id.
func (r *DesignRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM designs WHERE id = $1`, id); err != nil {
		return domain.WrapError(domain.ErrStorage, "failed to delete design", true, err)
	}
	return nil
}

// Clear removes every design.
func (r *DesignRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM designs`); err != nil {
		return domain.WrapError(domain.ErrStorage, "failed to clear designs", true, err)
	}
	return nil
}

// Count returns the number of stored designs.
func (r *DesignRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM designs`); err != nil {
		return 0, domain.WrapError(domain.ErrStorage, "failed to count designs", true, err)
	}
	return count, nil
}
