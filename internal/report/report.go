// Package report rebuilds per-document performance records from pipeline logs
// and writes them as JSON and CSV.
package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spherical/pdf-summarizer/internal/domain"
)

var metricsPattern = regexp.MustCompile(
	`Performance metrics for (.+): \{'extraction_time': ([^,]+), 'summary_time': ([^,]+), ` +
		`'keyword_extraction_time': ([^,]+), 'mongodb_insertion_time': ([^,]+), 'memory_usage': ([^}]+)\}`)

// Aggregate reads the log at path and returns one record per well-formed
// metrics line, in file order.
func Aggregate(path string) ([]domain.PerformanceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse scans r line by line. Lines that do not match the metrics shape, or
// whose numbers do not parse, are skipped.
func Parse(r io.Reader) ([]domain.PerformanceRecord, error) {
	records := []domain.PerformanceRecord{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if rec, ok := parseLine(scanner.Text()); ok {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return records, nil
}

func parseLine(line string) (domain.PerformanceRecord, bool) {
	m := metricsPattern.FindStringSubmatch(line)
	if m == nil {
		return domain.PerformanceRecord{}, false
	}

	var floats [4]float64
	for i := range floats {
		v, err := strconv.ParseFloat(strings.TrimSpace(m[i+2]), 64)
		if err != nil {
			return domain.PerformanceRecord{}, false
		}
		floats[i] = v
	}
	memory, err := strconv.ParseInt(strings.TrimSpace(m[6]), 10, 64)
	if err != nil {
		return domain.PerformanceRecord{}, false
	}

	return domain.PerformanceRecord{
		Document:              m[1],
		ExtractionTime:        floats[0],
		SummaryTime:           floats[1],
		KeywordExtractionTime: floats[2],
		StoreInsertionTime:    floats[3],
		MemoryUsage:           memory,
	}, true
}

// Save writes records to <base>.json and <base>.csv, where base is outputPath
// without its extension. It returns both paths.
func Save(records []domain.PerformanceRecord, outputPath string) (string, string, error) {
	base := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))
	jsonPath := base + ".json"
	csvPath := base + ".csv"

	if dir := filepath.Dir(base); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", "", fmt.Errorf("create report directory: %w", err)
		}
	}

	if records == nil {
		records = []domain.PerformanceRecord{}
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return "", "", fmt.Errorf("encode json report: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write json report: %w", err)
	}

	if err := writeCSV(csvPath, records); err != nil {
		return "", "", err
	}

	return jsonPath, csvPath, nil
}

var csvHeader = []string{
	"document", "extraction_time", "summary_time", "keyword_extraction_time",
	"mongodb_insertion_time", "memory_usage",
}

func writeCSV(path string, records []domain.PerformanceRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Document,
			strconv.FormatFloat(r.ExtractionTime, 'f', -1, 64),
			strconv.FormatFloat(r.SummaryTime, 'f', -1, 64),
			strconv.FormatFloat(r.KeywordExtractionTime, 'f', -1, 64),
			strconv.FormatFloat(r.StoreInsertionTime, 'f', -1, 64),
			strconv.FormatInt(r.MemoryUsage, 10),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv report: %w", err)
	}
	return f.Close()
}
