// package formatter exports quotes, tasks and playlists to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
)

// ParseFormat accepts csv, md/markdown, txt/text and json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
}

// Filename returns the default export filename for kind, e.g. "quotes.csv".
func (f Format) Filename(kind models.Kind) string {
	return string(kind) + "." + string(f)
}

const timeLayout = time.RFC3339

func formatCreated(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// Quotes renders quotes in format. Favorited IDs are marked.
func Quotes(f Format, quotes []models.Quote, favorites []string) ([]byte, error) {
	switch f {
	case FormatCSV:
		return QuotesToCSV(quotes, favorites)
	case FormatMarkdown:
		return QuotesToMarkdown(quotes, favorites), nil
	case FormatJSON:
		return ToJSON(quotes)
	default:
		return QuotesToText(quotes), nil
	}
}

// Tasks renders tasks in format.
func Tasks(f Format, tasks []models.Task) ([]byte, error) {
	switch f {
	case FormatCSV:
		return TasksToCSV(tasks)
	case FormatMarkdown:
		return TasksToMarkdown(tasks), nil
	case FormatJSON:
		return ToJSON(tasks)
	default:
		return TasksToText(tasks), nil
	}
}

// QuotesToCSV converts quotes to CSV with columns: ID, Text, Author, Category, Favorite, Local, Created
func QuotesToCSV(quotes []models.Quote, favorites []string) ([]byte, error) {
	headers := []string{"ID", "Text", "Author", "Category", "Favorite", "Local", "Created"}

	return writeCSV(headers, len(quotes), func(i int) []string {
		q := quotes[i]
		return []string{
			q.ID,
			q.Text,
			q.Author,
			q.Category,
			strconv.FormatBool(slices.Contains(favorites, q.ID)),
			strconv.FormatBool(q.LocalOnly),
			formatCreated(q.CreatedAt),
		}
	})
}

// TasksToCSV converts tasks to CSV with columns: ID, Title, Notes, Done, Priority, Local, Created
func TasksToCSV(tasks []models.Task) ([]byte, error) {
	headers := []string{"ID", "Title", "Notes", "Done", "Priority", "Local", "Created"}

	return writeCSV(headers, len(tasks), func(i int) []string {
		t := tasks[i]
		return []string{
			t.ID,
			t.Title,
			t.Notes,
			strconv.FormatBool(t.Done),
			strconv.Itoa(t.Priority),
			strconv.FormatBool(t.LocalOnly),
			formatCreated(t.CreatedAt),
		}
	})
}

func writeCSV(headers []string, n int, row func(i int) []string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i := range n {
		if err := writer.Write(row(i)); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// QuotesToMarkdown renders quotes as block quotes with attribution
func QuotesToMarkdown(quotes []models.Quote, favorites []string) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Quotes\n\n")
	fmt.Fprintf(&buf, "**Quotes**: %d\n", len(quotes))
	fmt.Fprintf(&buf, "**Favorites**: %d\n\n", countFavorites(quotes, favorites))

	for _, q := range quotes {
		writeQuote(&buf, q, slices.Contains(favorites, q.ID))
	}

	return buf.Bytes()
}

func writeQuote(buf *bytes.Buffer, q models.Quote, favorite bool) {
	fmt.Fprintf(buf, "> %s\n", q.Text)
	var meta []string
	if q.Author != "" {
		meta = append(meta, q.Author)
	}
	if q.Category != "" {
		meta = append(meta, "_"+q.Category+"_")
	}
	if favorite {
		meta = append(meta, "★")
	}
	if len(meta) > 0 {
		fmt.Fprintf(buf, ">\n> -- %s\n", strings.Join(meta, " · "))
	}
	buf.WriteString("\n")
}

func countFavorites(quotes []models.Quote, favorites []string) int {
	n := 0
	for _, q := range quotes {
		if slices.Contains(favorites, q.ID) {
			n++
		}
	}
	return n
}

// QuotesToText converts quotes to plain text, one per line
func QuotesToText(quotes []models.Quote) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Quotes: %d\n\n", len(quotes))
	for i, q := range quotes {
		if q.Author != "" {
			fmt.Fprintf(&buf, "%d. \"%s\" - %s\n", i+1, q.Text, q.Author)
		} else {
			fmt.Fprintf(&buf, "%d. \"%s\"\n", i+1, q.Text)
		}
	}

	return buf.Bytes()
}

// TasksToMarkdown renders tasks as a checklist
func TasksToMarkdown(tasks []models.Task) []byte {
	var buf bytes.Buffer

	done := 0
	for _, t := range tasks {
		if t.Done {
			done++
		}
	}

	buf.WriteString("# Tasks\n\n")
	fmt.Fprintf(&buf, "**Done**: %d/%d\n\n", done, len(tasks))

	for _, t := range tasks {
		box := " "
		if t.Done {
			box = "x"
		}
		fmt.Fprintf(&buf, "- [%s] %s", box, t.Title)
		if t.Priority > 0 {
			fmt.Fprintf(&buf, " (p%d)", t.Priority)
		}
		buf.WriteString("\n")
		if t.Notes != "" {
			fmt.Fprintf(&buf, "  %s\n", t.Notes)
		}
	}

	return buf.Bytes()
}

// TasksToText converts tasks to plain text, one per line
func TasksToText(tasks []models.Task) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Tasks: %d\n\n", len(tasks))
	for i, t := range tasks {
		status := "todo"
		if t.Done {
			status = "done"
		}
		fmt.Fprintf(&buf, "%d. [%s] %s\n", i+1, status, t.Title)
	}

	return buf.Bytes()
}

// PlaylistToMarkdown renders a playlist with its members resolved against quotes. Members that no longer exist
// are listed as missing.
func PlaylistToMarkdown(p models.Playlist, quotes []models.Quote) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", p.Name)
	fmt.Fprintf(&buf, "**Quotes**: %d\n", len(p.MemberIDs))
	if created := formatCreated(p.CreatedAt); created != "" {
		fmt.Fprintf(&buf, "**Created**: %s\n", created)
	}
	buf.WriteString("\n")

	for i, id := range p.MemberIDs {
		idx := slices.IndexFunc(quotes, func(q models.Quote) bool { return q.ID == id })
		if idx < 0 {
			fmt.Fprintf(&buf, "%d. _(missing %s)_\n", i+1, id)
			continue
		}
		q := quotes[idx]
		if q.Author != "" {
			fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, q.Text, q.Author)
		} else {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, q.Text)
		}
	}

	return buf.Bytes()
}

// ToJSON generates indented JSON
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteExport writes data to path, creating parent directories.
func WriteExport(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
