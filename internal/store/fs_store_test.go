package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}

	return store, tempDir
}

// createTestSummary creates a summary with test data.
func createTestSummary() *RunSummary {
	s := NewRunSummary(OptimizerGenetic, RunConfig{
		TargetPath: "assets/target.wav",
		Method:     "subtractive",
		Metric:     "freq",
		Components: []string{"oscillator", "envelope"},
		Seed:       42,
		Population: 100,
		Additions:  5,
		Mutation:   0.05,
		Evolution:  "constant",
		MaxSteps:   1000,
	})
	s.BestFitness = 0.8123
	s.Fundamental = 440
	s.Steps = 1000
	s.Reason = "max_generations"
	s.Genome = "osc(freq=440.00)"
	return s
}

func TestNewFSStore(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		t.Fatal("Base directory was not created")
	}
}

func TestSaveRun(t *testing.T) {
	store, tempDir := setupTestStore(t)
	summary := createTestSummary()

	if err := store.SaveRun(summary); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "runs", summary.RunID, "summary.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Summary file was not created at %s", expectedPath)
	}

	tempPath := expectedPath + ".tmp"
	if _, err := os.Stat(tempPath); !os.IsNotExist(err) {
		t.Errorf("Temp file should not exist after save: %s", tempPath)
	}

	if got := store.RunDir(summary.RunID); got != filepath.Dir(expectedPath) {
		t.Errorf("Expected run dir %s, got %s", filepath.Dir(expectedPath), got)
	}
}

func TestSaveRun_Nil(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveRun(nil); err == nil {
		t.Fatal("Expected error for nil summary")
	}
}

func TestSaveRun_Invalid(t *testing.T) {
	store, _ := setupTestStore(t)
	summary := createTestSummary()
	summary.BestFitness = 3

	err := store.SaveRun(summary)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if verr.Field != "BestFitness" {
		t.Errorf("Expected field BestFitness, got %s", verr.Field)
	}
}

func TestSaveRun_Overwrite(t *testing.T) {
	store, _ := setupTestStore(t)
	summary := createTestSummary()

	if err := store.SaveRun(summary); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	summary.BestFitness = 0.95
	if err := store.SaveRun(summary); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.LoadRun(summary.RunID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.BestFitness != 0.95 {
		t.Errorf("Expected overwritten fitness 0.95, got %f", loaded.BestFitness)
	}
}

func TestLoadRun(t *testing.T) {
	store, _ := setupTestStore(t)
	original := createTestSummary()

	if err := store.SaveRun(original); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	loaded, err := store.LoadRun(original.RunID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}

	if loaded.RunID != original.RunID {
		t.Errorf("RunID mismatch: expected %s, got %s", original.RunID, loaded.RunID)
	}
	if loaded.Optimizer != original.Optimizer {
		t.Errorf("Optimizer mismatch: expected %s, got %s", original.Optimizer, loaded.Optimizer)
	}
	if loaded.BestFitness != original.BestFitness {
		t.Errorf("BestFitness mismatch: expected %f, got %f", original.BestFitness, loaded.BestFitness)
	}
	if loaded.Genome != original.Genome {
		t.Errorf("Genome mismatch: expected %s, got %s", original.Genome, loaded.Genome)
	}
	if !loaded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp mismatch: expected %v, got %v", original.Timestamp, loaded.Timestamp)
	}
	if len(loaded.Config.Components) != 2 || loaded.Config.Components[1] != "envelope" {
		t.Errorf("Components mismatch: got %v", loaded.Config.Components)
	}
}

func TestLoadRun_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadRun("non-existent-run")
	if err == nil {
		t.Fatal("Expected error for non-existent run")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.RunID != "non-existent-run" {
		t.Errorf("Expected NotFoundError carrying the run ID, got %v", err)
	}
}

func TestLoadRun_EmptyRunID(t *testing.T) {
	store, _ := setupTestStore(t)

	if _, err := store.LoadRun(""); err == nil {
		t.Fatal("Expected error for empty runID")
	}
}

func TestListRuns_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected 0 runs, got %d", len(infos))
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	store, _ := setupTestStore(t)

	base := time.Date(2025, 10, 23, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		s := createTestSummary()
		s.Timestamp = base.Add(time.Duration(i) * time.Hour)
		if err := store.SaveRun(s); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
		ids = append(ids, s.RunID)
	}

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(infos))
	}
	if infos[0].RunID != ids[2] || infos[2].RunID != ids[0] {
		t.Errorf("Expected newest run first, got %s ... %s", infos[0].RunID, infos[2].RunID)
	}
	if infos[0].Method != "subtractive" || infos[0].TargetPath != "assets/target.wav" {
		t.Errorf("Unexpected info %+v", infos[0])
	}
}

func TestListRuns_SkipsInvalidDirectories(t *testing.T) {
	store, tempDir := setupTestStore(t)

	if err := store.SaveRun(createTestSummary()); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	// Directory without summary.json
	if err := os.MkdirAll(filepath.Join(tempDir, "runs", "empty-run"), 0755); err != nil {
		t.Fatalf("Failed to create empty run dir: %v", err)
	}

	// Corrupted summary
	corruptDir := filepath.Join(tempDir, "runs", "corrupt-run")
	if err := os.MkdirAll(corruptDir, 0755); err != nil {
		t.Fatalf("Failed to create corrupt run dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(corruptDir, "summary.json"), []byte("{invalid"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt summary: %v", err)
	}

	// Stray file
	if err := os.WriteFile(filepath.Join(tempDir, "runs", "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write stray file: %v", err)
	}

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("Expected 1 valid run, got %d", len(infos))
	}
}

func TestDeleteRun(t *testing.T) {
	store, _ := setupTestStore(t)
	summary := createTestSummary()

	if err := store.SaveRun(summary); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	// Artifacts next to the summary go too
	artifact := filepath.Join(store.RunDir(summary.RunID), "trace.jsonl")
	if err := os.WriteFile(artifact, []byte("{}\n"), 0644); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}

	if err := store.DeleteRun(summary.RunID); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := os.Stat(store.RunDir(summary.RunID)); !os.IsNotExist(err) {
		t.Error("Run directory should be removed")
	}
	if _, err := store.LoadRun(summary.RunID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteRun_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	err := store.DeleteRun("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRun_EmptyRunID(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.DeleteRun(""); err == nil {
		t.Fatal("Expected error for empty runID")
	}
}

func TestConcurrentSave(t *testing.T) {
	store, _ := setupTestStore(t)

	const numRuns = 10
	var wg sync.WaitGroup
	for i := 0; i < numRuns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.SaveRun(createTestSummary()); err != nil {
				t.Errorf("Concurrent save failed: %v", err)
			}
		}()
	}
	wg.Wait()

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != numRuns {
		t.Errorf("Expected %d runs, got %d", numRuns, len(infos))
	}
}
