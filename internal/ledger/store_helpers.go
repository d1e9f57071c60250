package ledger

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, source_path, title, author, body, language, status, attempts, error_message, audio_path, alignment_path, video_path, output_ref, created_at, updated_at, processed_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id            string
		sourcePath    sql.NullString
		title         sql.NullString
		author        sql.NullString
		body          sql.NullString
		language      sql.NullString
		statusStr     string
		attempts      sql.NullInt64
		errorMessage  sql.NullString
		audioPath     sql.NullString
		alignmentPath sql.NullString
		videoPath     sql.NullString
		outputRef     sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
		processedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourcePath,
		&title,
		&author,
		&body,
		&language,
		&statusStr,
		&attempts,
		&errorMessage,
		&audioPath,
		&alignmentPath,
		&videoPath,
		&outputRef,
		&createdRaw,
		&updatedRaw,
		&processedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:            id,
		SourcePath:    sourcePath.String,
		Title:         title.String,
		Author:        author.String,
		Body:          body.String,
		Language:      language.String,
		Status:        Status(statusStr),
		Attempts:      int(attempts.Int64),
		ErrorMessage:  errorMessage.String,
		AudioPath:     audioPath.String,
		AlignmentPath: alignmentPath.String,
		VideoPath:     videoPath.String,
		OutputRef:     outputRef.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if processedRaw.Valid {
		if processed, err := parseTimeString(processedRaw.String); err == nil {
			item.ProcessedAt = &processed
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
