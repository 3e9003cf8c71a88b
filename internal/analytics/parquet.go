package analytics

import (
	"bytes"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/zfogg/biolink/internal/models"
	"github.com/zfogg/biolink/internal/repository"
)

// PageViewRow is the schema of pageviews archive files
type PageViewRow struct {
	ID        string    `parquet:"id"`
	UserID    string    `parquet:"userId"`
	Referrer  *string   `parquet:"referrer,optional"`
	Source    *string   `parquet:"source,optional"`
	CreatedAt time.Time `parquet:"createdAt,timestamp(millisecond)"`
}

// LinkClickRow is the schema of linkclicks archive files
type LinkClickRow struct {
	UserLinkID string    `parquet:"userLinkId"`
	LinkURL    *string   `parquet:"linkUrl,optional"`
	LinkTitle  *string   `parquet:"linkTitle,optional"`
	CreatedAt  time.Time `parquet:"createdAt,timestamp(millisecond)"`
}

// IconClickRow is the schema of iconclicks archive files
type IconClickRow struct {
	UserIconID   string    `parquet:"userIconId"`
	IconURL      *string   `parquet:"iconUrl,optional"`
	IconPlatform *string   `parquet:"iconPlatform,optional"`
	IconLogo     *string   `parquet:"iconLogo,optional"`
	CreatedAt    time.Time `parquet:"createdAt,timestamp(millisecond)"`
}

func pageViewRows(views []models.PageView) []PageViewRow {
	rows := make([]PageViewRow, len(views))
	for i, v := range views {
		rows[i] = PageViewRow{
			ID:        v.ID,
			UserID:    v.UserID,
			Referrer:  v.Referrer,
			Source:    v.Source,
			CreatedAt: v.CreatedAt.UTC(),
		}
	}
	return rows
}

func linkClickRows(clicks []repository.LinkClickRecord) []LinkClickRow {
	rows := make([]LinkClickRow, len(clicks))
	for i, c := range clicks {
		rows[i] = LinkClickRow{
			UserLinkID: c.UserLinkID,
			LinkURL:    c.LinkURL,
			LinkTitle:  c.LinkTitle,
			CreatedAt:  c.CreatedAt.UTC(),
		}
	}
	return rows
}

func iconClickRows(clicks []repository.IconClickRecord) []IconClickRow {
	rows := make([]IconClickRow, len(clicks))
	for i, c := range clicks {
		rows[i] = IconClickRow{
			UserIconID:   c.UserIconID,
			IconURL:      c.IconURL,
			IconPlatform: c.IconPlatform,
			IconLogo:     c.IconLogo,
			CreatedAt:    c.CreatedAt.UTC(),
		}
	}
	return rows
}

// encodeParquet writes rows as a single parquet file
func encodeParquet[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[T](&buf)
	if _, err := w.Write(rows); err != nil {
		return nil, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return buf.Bytes(), nil
}
