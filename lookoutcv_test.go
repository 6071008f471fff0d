package lookoutcv

import (
	"context"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/kavinraja10/lookoutcv/internal/imgmetrics"
	"github.com/kavinraja10/lookoutcv/internal/schema"
	"github.com/kavinraja10/lookoutcv/internal/storage"
)

func grayImage(w, h int, v uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestLogger_ClassificationRoundTrip(t *testing.T) {
	logsDir := t.TempDir()
	logger, err := New("resnet", WithLogsDir(logsDir))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = logger.LogPrediction(context.Background(), Prediction{
		ImageName:  "cat.jpg",
		Class:      "cat",
		Confidence: 0.93,
	})
	if err != nil {
		t.Fatalf("LogPrediction: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	wantPath := filepath.Join(logsDir, "resnet",
		"resnet_logs_"+strconv.Itoa(os.Getpid())+".parquet")
	if logger.LogFile() != wantPath {
		t.Fatalf("LogFile = %q, want %q", logger.LogFile(), wantPath)
	}

	rows, _, err := storage.ReadFile(logger.LogFile())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row["image_name"] != "cat.jpg" || row["pred_class"] != "cat" {
		t.Fatalf("row = %v", row)
	}
	conf, ok := row["confidence"].(float64)
	if !ok || math.Abs(conf-0.93) > 1e-6 {
		t.Fatalf("confidence = %v", row["confidence"])
	}
	if id, ok := row["record_id"].(string); !ok || id == "" {
		t.Fatalf("record_id = %v", row["record_id"])
	}
	if _, ok := row["logged_at"].(int64); !ok {
		t.Fatalf("logged_at = %v", row["logged_at"])
	}
}

func TestLogger_MandatoryFieldValidation(t *testing.T) {
	logger, err := New("m", WithLogsDir(t.TempDir()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = logger.Close() }()

	ctx := context.Background()
	if err := logger.LogPrediction(ctx, Prediction{Class: "cat"}); err == nil {
		t.Fatal("expected missing image_name error")
	}
	if err := logger.LogPrediction(ctx, Prediction{ImageName: "a.jpg"}); err == nil {
		t.Fatal("expected missing pred_class error")
	}
}

func TestLogger_DetectionRequiresBox(t *testing.T) {
	logger, err := New("yolo", WithLogsDir(t.TempDir()), WithTask(TaskDetection))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = logger.Close() }()

	ctx := context.Background()
	pred := Prediction{ImageName: "a.jpg", Class: "car", Confidence: 0.7}
	if err := logger.LogPrediction(ctx, pred); err == nil {
		t.Fatal("expected missing box error")
	}

	pred.Box = &Box{X1: 5, Y1: 10, X2: 50, Y2: 60}
	if err := logger.LogPrediction(ctx, pred); err != nil {
		t.Fatalf("LogPrediction: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows, fields, err := storage.ReadFile(logger.LogFile())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	names := schema.Names(fields)
	for _, want := range []string{"bbox_x1", "bbox_y1", "bbox_x2", "bbox_y2"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("columns %v missing %s", names, want)
		}
	}
	if v, _ := rows[0]["bbox_x2"].(float64); v != 50 {
		t.Fatalf("bbox_x2 = %v", rows[0]["bbox_x2"])
	}
}

func TestLogger_MetricsComputed(t *testing.T) {
	logger, err := New("m", WithLogsDir(t.TempDir()),
		WithMetrics("contrast", "brightness", "orientation"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = logger.LogPrediction(context.Background(), Prediction{
		ImageName:  "flat.png",
		Class:      "wall",
		Confidence: 0.5,
		Image:      imgmetrics.FromImage(grayImage(20, 10, 128)),
	})
	if err != nil {
		t.Fatalf("LogPrediction: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows, _, err := storage.ReadFile(logger.LogFile())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	row := rows[0]
	if c, _ := row["contrast"].(float64); c != 0 {
		t.Errorf("contrast = %v, want 0 for flat image", row["contrast"])
	}
	if b, _ := row["brightness"].(float64); math.Abs(b-128) > 0.5 {
		t.Errorf("brightness = %v, want ~128", row["brightness"])
	}
	if o, _ := row["orientation"].(float64); o != 1 {
		t.Errorf("orientation = %v, want 1 (landscape)", row["orientation"])
	}
}

func TestLogger_MissingImageYieldsNullMetrics(t *testing.T) {
	logger, err := New("m", WithLogsDir(t.TempDir()), WithMetrics("contrast"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = logger.LogPrediction(context.Background(), Prediction{
		ImageName:  "gone.jpg",
		Class:      "cat",
		Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("LogPrediction without image: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows, _, err := storage.ReadFile(logger.LogFile())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if _, ok := rows[0]["contrast"]; ok {
		t.Fatalf("contrast = %v, want null", rows[0]["contrast"])
	}
}

func TestLogger_MetricsCommaList(t *testing.T) {
	logger, err := New("m", WithLogsDir(t.TempDir()), WithMetrics("contrast, blur"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = logger.Close() }()

	for _, want := range []string{"contrast", "blur"} {
		found := false
		for _, f := range logger.writer.Fields() {
			if f.Name == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("columns missing %s: %v", want, schema.Names(logger.writer.Fields()))
		}
	}
}

func TestLogger_UnknownMetric(t *testing.T) {
	if _, err := New("m", WithLogsDir(t.TempDir()), WithMetrics("sharpness")); err == nil {
		t.Fatal("expected unknown metric error")
	}
}

func TestLogger_InvalidModelName(t *testing.T) {
	if _, err := New("", WithLogsDir(t.TempDir())); err == nil {
		t.Fatal("expected error for empty model name")
	}
	if _, err := New("a/b", WithLogsDir(t.TempDir())); err == nil {
		t.Fatal("expected error for path separator in model name")
	}
}

func TestLogger_SchemaEvolutionAcrossRuns(t *testing.T) {
	logsDir := t.TempDir()
	ctx := context.Background()

	logger, err := New("m", WithLogsDir(logsDir))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pred := Prediction{ImageName: "a.jpg", Class: "cat", Confidence: 0.9}
	if err := logger.LogPrediction(ctx, pred); err != nil {
		t.Fatalf("LogPrediction: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Same process id, so the second run reopens and widens the same file.
	logger, err = New("m", WithLogsDir(logsDir), WithMetrics("contrast"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	pred.Image = imgmetrics.FromImage(grayImage(10, 10, 50))
	if err := logger.LogPrediction(ctx, pred); err != nil {
		t.Fatalf("LogPrediction after evolve: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows, fields, err := storage.ReadFile(logger.LogFile())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	hasContrast := false
	for _, f := range fields {
		if f.Name == "contrast" {
			hasContrast = true
		}
	}
	if !hasContrast {
		t.Fatalf("columns %v missing contrast", schema.Names(fields))
	}
	if _, ok := rows[0]["contrast"]; ok {
		t.Fatalf("first-run row should have null contrast, got %v", rows[0]["contrast"])
	}
	if _, ok := rows[1]["contrast"]; !ok {
		t.Fatal("second-run row missing contrast value")
	}
}

func TestLogger_ConcurrentLogging(t *testing.T) {
	logger, err := New("m", WithLogsDir(t.TempDir()), WithFlushEvery(8))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const goroutines, each = 4, 20
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				err := logger.LogPrediction(context.Background(), Prediction{
					ImageName:  "x.jpg",
					Class:      "cat",
					Confidence: 0.5,
				})
				if err != nil {
					t.Errorf("LogPrediction: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows, _, err := storage.ReadFile(logger.LogFile())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(rows) != goroutines*each {
		t.Fatalf("rows = %d, want %d", len(rows), goroutines*each)
	}
}

func TestLogger_CancelledContext(t *testing.T) {
	logger, err := New("m", WithLogsDir(t.TempDir()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = logger.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = logger.LogPrediction(ctx, Prediction{ImageName: "a.jpg", Class: "cat"})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	logsDir := filepath.Join(dir, "telemetry")
	cfgPath := filepath.Join(dir, ".lookoutcv.yml")
	cfg := "logs-dir: " + logsDir + "\nmetrics: [orientation]\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	logger, err := NewFromConfig("m", cfgPath)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	err = logger.LogPrediction(context.Background(), Prediction{
		ImageName:  "a.png",
		Class:      "cat",
		Confidence: 0.5,
		Image:      imgmetrics.FromImage(grayImage(10, 30, 10)),
	})
	if err != nil {
		t.Fatalf("LogPrediction: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows, _, err := storage.ReadFile(logger.LogFile())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if o, _ := rows[0]["orientation"].(float64); o != 0 {
		t.Fatalf("orientation = %v, want 0 (portrait)", rows[0]["orientation"])
	}
}

func TestNewFromConfig_Task(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".lookoutcv.yml")
	cfg := "logs-dir: " + filepath.Join(dir, "logs") + "\ntask: detection\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	logger, err := NewFromConfig("m", cfgPath)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	defer func() { _ = logger.Close() }()

	// The configured task is detection, so a box is mandatory.
	err = logger.LogPrediction(context.Background(), Prediction{
		ImageName: "a.jpg", Class: "car", Confidence: 0.7,
	})
	if err == nil {
		t.Fatal("expected missing box error for configured detection task")
	}
}

func TestNewFromConfig_BadTask(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".lookoutcv.yml")
	if err := os.WriteFile(cfgPath, []byte("task: segmentation\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := NewFromConfig("m", cfgPath); err == nil {
		t.Fatal("expected unknown task error")
	}
}

func TestLogger_IntervalFlush(t *testing.T) {
	logger, err := New("m", WithLogsDir(t.TempDir()),
		WithFlushEvery(1000), WithFlushInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = logger.Close() }()

	err = logger.LogPrediction(context.Background(), Prediction{
		ImageName: "a.jpg", Class: "cat", Confidence: 0.5,
	})
	if err != nil {
		t.Fatalf("LogPrediction: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rows, _, err := storage.ReadFile(logger.LogFile())
		if err == nil && len(rows) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("interval flush never persisted the record")
}
