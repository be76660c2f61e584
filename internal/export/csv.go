// Package export serializes the message log as CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/RichardoC/bizchat/internal/models"
)

var Header = []string{"id", "conv_id", "role", "content", "ip", "ua", "created_at"}

// MessageSource yields every stored message in ascending id order.
type MessageSource interface {
	EachMessage(ctx context.Context, fn func(models.Message) error) error
}

// WriteCSV streams all messages from src to w and returns the number of rows
// written, header excluded.
func WriteCSV(ctx context.Context, w io.Writer, src MessageSource) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("writing csv header: %w", err)
	}

	rows := 0
	err := src.EachMessage(ctx, func(m models.Message) error {
		if err := cw.Write(Record(m)); err != nil {
			return fmt.Errorf("writing csv row %d: %w", m.ID, err)
		}
		rows++
		return nil
	})
	if err != nil {
		return rows, err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("flushing csv: %w", err)
	}
	return rows, nil
}

// Record renders m as one CSV row. Line breaks are removed from free-text
// fields; quoting is left to the csv writer.
func Record(m models.Message) []string {
	return []string{
		strconv.FormatInt(m.ID, 10),
		stripNewlines(m.ConvID),
		string(m.Role),
		stripNewlines(m.Content),
		stripNewlines(m.IP),
		stripNewlines(m.UA),
		m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

var newlineStripper = strings.NewReplacer("\r", "", "\n", "")

func stripNewlines(s string) string {
	return newlineStripper.Replace(s)
}
