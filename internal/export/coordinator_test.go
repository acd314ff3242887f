package export

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/academica/forecast/internal/types"
)

// mockSource implements RawInputSource for testing
type mockSource struct {
	rows      []types.RawInput
	listErr   error
	cursor    time.Time
	cursorErr error
	setCalls  int
}

func (m *mockSource) ListRawInputsSince(ctx context.Context, since time.Time, limit int) ([]types.RawInput, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []types.RawInput
	for _, r := range m.rows {
		if r.CreatedAt.After(since) {
			out = append(out, r)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockSource) ExportCursor(ctx context.Context) (time.Time, error) {
	return m.cursor, m.cursorErr
}

func (m *mockSource) SetExportCursor(ctx context.Context, t time.Time) error {
	m.setCalls++
	m.cursor = t
	return nil
}

// mockUploader records uploads and can fail the first N attempts
type mockUploader struct {
	failures int
	attempts int
	keys     []string
	files    []string
}

func (m *mockUploader) Upload(ctx context.Context, objectKey, filePath string) error {
	m.attempts++
	if m.attempts <= m.failures {
		return errors.New("transient upload failure")
	}
	m.keys = append(m.keys, objectKey)
	m.files = append(m.files, filePath)
	return nil
}

func (m *mockUploader) Configured() bool { return true }

func testRows(n int) []types.RawInput {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rows := make([]types.RawInput, n)
	for i := range rows {
		rows[i] = types.RawInput{
			ID:              "01JROW000000000000000000" + string(rune('A'+i)),
			IdentityID:      "user-1",
			Attendance:      85,
			MotivationLevel: 7,
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
	}
	return rows
}

func TestExportOnce_UploadsAndAdvancesCursor(t *testing.T) {
	source := &mockSource{rows: testRows(3)}
	uploader := &mockUploader{}
	c := NewCoordinator(source, uploader, time.Hour, 100)

	if err := c.ExportOnce(context.Background()); err != nil {
		t.Fatalf("ExportOnce() error = %v", err)
	}

	if len(uploader.keys) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(uploader.keys))
	}
	if source.setCalls != 1 {
		t.Errorf("expected cursor advance, got %d calls", source.setCalls)
	}
	want := testRows(3)[2].CreatedAt
	if !source.cursor.Equal(want) {
		t.Errorf("cursor = %v, want %v", source.cursor, want)
	}
}

func TestExportOnce_NoRowsIsNoOp(t *testing.T) {
	source := &mockSource{}
	uploader := &mockUploader{}
	c := NewCoordinator(source, uploader, time.Hour, 100)

	if err := c.ExportOnce(context.Background()); err != nil {
		t.Fatalf("ExportOnce() error = %v", err)
	}
	if uploader.attempts != 0 {
		t.Error("upload must not be attempted with no rows")
	}
	if source.setCalls != 0 {
		t.Error("cursor must not move with no rows")
	}
}

func TestExportOnce_RetriesTransientUploadFailure(t *testing.T) {
	source := &mockSource{rows: testRows(1)}
	uploader := &mockUploader{failures: 2}
	c := NewCoordinator(source, uploader, time.Hour, 100)

	if err := c.ExportOnce(context.Background()); err != nil {
		t.Fatalf("ExportOnce() error = %v", err)
	}
	if uploader.attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", uploader.attempts)
	}
	if source.setCalls != 1 {
		t.Error("cursor must advance after eventual success")
	}
}

func TestExportOnce_FailedUploadLeavesCursor(t *testing.T) {
	source := &mockSource{rows: testRows(1)}
	uploader := &mockUploader{failures: 100}
	c := NewCoordinator(source, uploader, time.Hour, 100)

	if err := c.ExportOnce(context.Background()); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if source.setCalls != 0 {
		t.Error("cursor must not move after a failed upload")
	}
}

func TestExportOnce_RespectsBatchSize(t *testing.T) {
	source := &mockSource{rows: testRows(5)}
	uploader := &mockUploader{}
	c := NewCoordinator(source, uploader, time.Hour, 2)

	if err := c.ExportOnce(context.Background()); err != nil {
		t.Fatalf("ExportOnce() error = %v", err)
	}
	// Only the first two rows exported; cursor stops at the second.
	want := testRows(5)[1].CreatedAt
	if !source.cursor.Equal(want) {
		t.Errorf("cursor = %v, want %v", source.cursor, want)
	}
}

func TestWriteBatchFile_NDJSON(t *testing.T) {
	c := NewCoordinator(&mockSource{}, &mockUploader{}, time.Hour, 100)
	rows := testRows(3)

	path, err := c.writeBatchFile(rows)
	if err != nil {
		t.Fatalf("writeBatchFile() error = %v", err)
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec types.RawInput
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines+1, err)
		}
		lines++
	}
	if lines != 3 {
		t.Errorf("expected 3 NDJSON lines, got %d", lines)
	}
}

func TestObjectKey_Layout(t *testing.T) {
	c := NewCoordinator(&mockSource{}, &mockUploader{}, time.Hour, 100)
	c.now = func() time.Time { return time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC) }

	got := c.objectKey()
	want := "raw-inputs/20260829T103000Z.ndjson"
	if got != want {
		t.Errorf("objectKey() = %q, want %q", got, want)
	}
}

func TestRun_SkipsWhenNotConfigured(t *testing.T) {
	source := &mockSource{rows: testRows(1)}
	c := NewCoordinator(source, &NoopUploader{}, time.Millisecond, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c.Run(ctx) // returns immediately without ticking

	if source.setCalls != 0 {
		t.Error("unconfigured uploader must not export anything")
	}
}
