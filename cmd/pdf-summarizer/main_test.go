package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-summarizer/internal/domain"
)

// writeConfig writes a config that keeps every side effect inside dir.
func writeConfig(t *testing.T, dir string) (cfgPath, logPath string) {
	t.Helper()
	t.Setenv("MONGODB_URI", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOG_FILE", "")

	logPath = filepath.Join(dir, "pipeline.log")
	cfgPath = filepath.Join(dir, "config.yaml")
	content := `
extractor:
  backend: pdf
store:
  driver: memory
cache:
  driver: memory
keywords:
  corpus_path: ` + filepath.Join(dir, "corpus.json") + `
logging:
  console: false
  file: ` + logPath + `
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	return cfgPath, logPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	cfgPath, _ := writeConfig(t, t.TempDir())

	out, err := execute(t, "version", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "pdf-summarizer v"+version)

	out, err = execute(t, "version", "-c", cfgPath, "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version, info["version"])
}

func TestRunCommand_CorruptInputIsReported(t *testing.T) {
	dir := t.TempDir()
	cfgPath, logPath := writeConfig(t, dir)

	input := filepath.Join(dir, "input")
	require.NoError(t, os.MkdirAll(input, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(input, "broken.pdf"), []byte("not a pdf"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(input, "notes.txt"), []byte("ignored"), 0o644))

	out, err := execute(t, "run", input, "-c", cfgPath, "--json")
	require.NoError(t, err)

	var summary domain.BatchRunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.TotalDocuments)
	assert.Equal(t, 1, summary.Batches)
	assert.Equal(t, domain.ErrorKindCorruptInput, summary.Failures["broken.pdf"])
	assert.NoFileExists(t, filepath.Join(input, "broken_summary.txt"))

	logData, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "Found 1 PDF files in")
	assert.Contains(t, string(logData), "Error processing broken.pdf")
	assert.Contains(t, string(logData), "Performance metrics for broken.pdf")
}

func TestRunCommand_MissingDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	cfgPath, _ := writeConfig(t, dir)

	_, err := execute(t, "run", filepath.Join(dir, "missing"), "-c", cfgPath)
	require.Error(t, err)
}

func TestReportCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath, _ := writeConfig(t, dir)

	logPath := filepath.Join(dir, "run.log")
	lines := "INF Performance metrics for a.pdf: {'extraction_time': 0.5, 'summary_time': 1.25, " +
		"'keyword_extraction_time': 0.1, 'mongodb_insertion_time': 0.01, 'memory_usage': 1048576}\n" +
		"INF unrelated line\n"
	require.NoError(t, os.WriteFile(logPath, []byte(lines), 0o644))

	output := filepath.Join(dir, "perf.json")
	out, err := execute(t, "report", logPath, "-c", cfgPath, "-o", output, "--json")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.EqualValues(t, 1, result["records"])
	assert.FileExists(t, output)
	assert.FileExists(t, filepath.Join(dir, "perf.csv"))
}

func TestDocsCommand_EmptyStore(t *testing.T) {
	cfgPath, _ := writeConfig(t, t.TempDir())

	out, err := execute(t, "docs", "-c", cfgPath, "--json")
	require.NoError(t, err)

	var docs []*domain.DocumentMetadata
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	assert.Empty(t, docs)
}

func TestExtractCommand_RejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	cfgPath, _ := writeConfig(t, dir)

	path := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	_, err := execute(t, "extract", path, "-c", cfgPath, "-o", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction failed")
}
