package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LegacyDocuments reads metadata rows from the legacy documents database.
type LegacyDocuments struct {
	pool        *pgxpool.Pool
	lookupQuery string
}

// NewLegacyDocuments opens a pool against the legacy documents database.
// The table name is baked into the query here and never again.
func NewLegacyDocuments(ctx context.Context, dsn, table string) (*LegacyDocuments, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to documents database: %w", err)
	}
	return &LegacyDocuments{
		pool: pool,
		lookupQuery: fmt.Sprintf(
			`SELECT "FileName", "Extension", "ContentType", "FileSize", "RecordDate"
			 FROM %s WHERE "ContentId" = $1 AND "DelStatus" = false`,
			quoteIdent(table)),
	}, nil
}

// Lookup fetches the metadata for one content id. Returns (nil, nil) when
// the document does not exist or is flagged deleted.
func (d *LegacyDocuments) Lookup(ctx context.Context, contentID int64) (*DocumentMeta, error) {
	var (
		filename    *string
		extension   *string
		contentType *string
		fileSize    *int64
		recordDate  *time.Time
	)
	err := d.pool.QueryRow(ctx, d.lookupQuery, contentID).
		Scan(&filename, &extension, &contentType, &fileSize, &recordDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup document %d: %w", contentID, err)
	}

	meta := &DocumentMeta{}
	if filename != nil {
		meta.Filename = *filename
	}
	if extension != nil {
		meta.Extension = *extension
	}
	if contentType != nil {
		meta.ContentType = *contentType
	}
	if fileSize != nil {
		meta.FileSize = *fileSize
	}
	if recordDate != nil {
		meta.RecordDate = *recordDate
	}
	return meta, nil
}

// Close releases the pool.
func (d *LegacyDocuments) Close() {
	d.pool.Close()
}

// LegacyContent reads blob bytes from a legacy per-year content database.
type LegacyContent struct {
	pool       *pgxpool.Pool
	idsQuery   string
	fetchQuery string
}

// NewLegacyContent opens a pool against one year's content database.
func NewLegacyContent(ctx context.Context, dsn, table string) (*LegacyContent, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to content database: %w", err)
	}
	quoted := quoteIdent(table)
	return &LegacyContent{
		pool:       pool,
		idsQuery:   fmt.Sprintf(`SELECT DISTINCT "ContentId" FROM %s ORDER BY "ContentId"`, quoted),
		fetchQuery: fmt.Sprintf(`SELECT "Content" FROM %s WHERE "ContentId" = $1`, quoted),
	}, nil
}

// DistinctContentIDs lists every content id present in the year's table.
// This is the seed input for the migration log.
func (c *LegacyContent) DistinctContentIDs(ctx context.Context) ([]int64, error) {
	rows, err := c.pool.Query(ctx, c.idsQuery)
	if err != nil {
		return nil, fmt.Errorf("list content ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan content id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content ids: %w", err)
	}
	return ids, nil
}

// Fetch returns the blob bytes for one content id, or (nil, nil) when the
// row is gone.
func (c *LegacyContent) Fetch(ctx context.Context, contentID int64) ([]byte, error) {
	var content []byte
	err := c.pool.QueryRow(ctx, c.fetchQuery, contentID).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch content %d: %w", contentID, err)
	}
	return content, nil
}

// Close releases the pool.
func (c *LegacyContent) Close() {
	c.pool.Close()
}
