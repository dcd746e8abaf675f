package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Writer exports query result rows to CSV files in a results directory.
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter creates the results directory if needed.
func NewWriter(dir string, logger *zap.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &Writer{dir: dir, logger: logger.Named("export")}, nil
}

// Dir returns the results directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Export writes rows to a timestamped CSV file and returns its filename.
// Columns are the union of all row keys, sorted, so output is stable
// even when rows are sparse.
func (w *Writer) Export(rows []map[string]any) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("no rows to export")
	}

	columnSet := make(map[string]bool)
	for _, row := range rows {
		for key := range row {
			columnSet[key] = true
		}
	}
	columns := make([]string, 0, len(columnSet))
	for key := range columnSet {
		columns = append(columns, key)
	}
	sort.Strings(columns)

	filename := fmt.Sprintf("query_results_%s.csv", time.Now().Format("20060102_150405"))
	path := filepath.Join(w.dir, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(columns); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			if v, ok := row[col]; ok && v != nil {
				record[i] = fmt.Sprint(v)
			} else {
				record[i] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return "", fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}

	w.logger.Info("results exported",
		zap.String("file", filename),
		zap.Int("rows", len(rows)))

	return filename, nil
}
