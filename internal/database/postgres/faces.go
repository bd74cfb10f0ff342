package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/security"
	"github.com/pgvector/pgvector-go"
)

// FaceRepository provides PostgreSQL-backed storage for known faces. Images
// are encrypted with the codec before they hit the wire; templates stay in
// the clear so similarity search can run server-side. A nil codec stores
// images as-is (encryption explicitly disabled).
type FaceRepository struct {
	pool  *Pool
	codec *security.Codec
}

// NewFaceRepository creates a new PostgreSQL face repository.
func NewFaceRepository(pool *Pool, codec *security.Codec) *FaceRepository {
	return &FaceRepository{pool: pool, codec: codec}
}

// GetFace retrieves a face by ID with the image decrypted.
func (r *FaceRepository) GetFace(ctx context.Context, id int64) (*database.StoredFace, error) {
	query := `
		SELECT id, person_name, image_data, image_hash, template, metadata, created_at, updated_at
		FROM faces
		WHERE id = $1
	`

	var (
		face     database.StoredFace
		template pgvector.Vector
		metadata []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&face.ID,
		&face.PersonName,
		&face.ImageData,
		&face.ImageHash,
		&template,
		&metadata,
		&face.CreatedAt,
		&face.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get face: %w", err)
	}

	face.Template = template.Slice()
	if face.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return nil, fmt.Errorf("face %d metadata: %w", face.ID, err)
	}

	if r.codec != nil {
		plain, err := r.codec.OpenBytes(face.ImageData)
		if err != nil {
			return nil, fmt.Errorf("decrypt face %d image: %w", face.ID, err)
		}
		face.ImageData = plain
	}

	return &face, nil
}

// ListFaces returns all faces with templates but without image data, ordered
// by person name.
func (r *FaceRepository) ListFaces(ctx context.Context) ([]database.StoredFace, error) {
	query := `
		SELECT id, person_name, image_hash, template, metadata, created_at, updated_at
		FROM faces
		ORDER BY person_name, created_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// ListFacesByPerson returns all faces for one person, without image data.
func (r *FaceRepository) ListFacesByPerson(ctx context.Context, personName string) ([]database.StoredFace, error) {
	query := `
		SELECT id, person_name, image_hash, template, metadata, created_at, updated_at
		FROM faces
		WHERE person_name = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, personName)
	if err != nil {
		return nil, fmt.Errorf("query faces by person: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// CountFaces returns the total number of face samples stored.
func (r *FaceRepository) CountFaces(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM faces").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// CountPeople returns the number of distinct people with at least one face.
func (r *FaceRepository) CountPeople(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(DISTINCT person_name) FROM faces").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count people: %w", err)
	}
	return count, nil
}

// FindSimilar returns the faces closest to the template by cosine distance,
// nearest first. Runs server-side on the pgvector column; the recognizer
// keeps its own in-memory index for the hot path, this query backs rebuilds
// and ad-hoc lookups.
func (r *FaceRepository) FindSimilar(
	ctx context.Context, template []float32, limit int,
) ([]database.StoredFace, []float64, error) {
	query := `
		SELECT id, person_name, image_hash, template, metadata, created_at, updated_at,
		       template <=> $1::vector AS distance
		FROM faces
		ORDER BY distance
		LIMIT $2
	`

	vec := pgvector.NewVector(template)
	rows, err := r.pool.Query(ctx, query, vec, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query similar faces: %w", err)
	}
	defer rows.Close()

	var faces []database.StoredFace
	var distances []float64

	for rows.Next() {
		face, dist, err := scanFaceWithDistance(rows)
		if err != nil {
			return nil, nil, err
		}
		faces = append(faces, face)
		distances = append(distances, dist)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate similar faces: %w", err)
	}

	return faces, distances, nil
}

// SaveFace stores a face and returns its ID. The image hash is computed from
// the plaintext so integrity checks work without decrypting.
func (r *FaceRepository) SaveFace(ctx context.Context, face *database.StoredFace) (int64, error) {
	imageData := face.ImageData
	imageHash := security.HashBytes(imageData)

	if r.codec != nil {
		sealed, err := r.codec.SealBytes(imageData)
		if err != nil {
			return 0, fmt.Errorf("encrypt face image: %w", err)
		}
		imageData = sealed
	}

	metadata, err := marshalMetadata(face.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshal face metadata: %w", err)
	}

	query := `
		INSERT INTO faces (person_name, image_data, image_hash, template, metadata)
		VALUES ($1, $2, $3, $4::vector, $5)
		RETURNING id
	`

	var id int64
	err = r.pool.QueryRow(ctx, query,
		face.PersonName,
		imageData,
		imageHash,
		pgvector.NewVector(face.Template),
		metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert face: %w", err)
	}

	return id, nil
}

// DeleteFacesByPerson removes all faces for a person.
func (r *FaceRepository) DeleteFacesByPerson(ctx context.Context, personName string) (int64, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM faces WHERE person_name = $1", personName)
	if err != nil {
		return 0, fmt.Errorf("delete faces by person: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return count, nil
}

// scanFaces scans rows from a query without image data or distance.
func scanFaces(rows *sql.Rows) ([]database.StoredFace, error) {
	var faces []database.StoredFace
	for rows.Next() {
		var (
			face     database.StoredFace
			template pgvector.Vector
			metadata []byte
		)
		err := rows.Scan(
			&face.ID,
			&face.PersonName,
			&face.ImageHash,
			&template,
			&metadata,
			&face.CreatedAt,
			&face.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		face.Template = template.Slice()
		if face.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, fmt.Errorf("face %d metadata: %w", face.ID, err)
		}
		faces = append(faces, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

// scanFaceWithDistance scans one row with a trailing distance column.
func scanFaceWithDistance(rows *sql.Rows) (database.StoredFace, float64, error) {
	var (
		face     database.StoredFace
		template pgvector.Vector
		metadata []byte
		distance float64
	)
	err := rows.Scan(
		&face.ID,
		&face.PersonName,
		&face.ImageHash,
		&template,
		&metadata,
		&face.CreatedAt,
		&face.UpdatedAt,
		&distance,
	)
	if err != nil {
		return face, 0, fmt.Errorf("scan face with distance: %w", err)
	}
	face.Template = template.Slice()
	if face.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return face, 0, fmt.Errorf("face %d metadata: %w", face.ID, err)
	}
	return face, distance, nil
}

// marshalMetadata converts a metadata map to JSONB bytes, nil for empty maps
// so the column stays NULL.
func marshalMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

// unmarshalMetadata converts JSONB bytes back to a map, nil for NULL columns.
func unmarshalMetadata(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

var _ database.FaceReader = (*FaceRepository)(nil)
var _ database.FaceWriter = (*FaceRepository)(nil)
