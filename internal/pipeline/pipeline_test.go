package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prezentinnynizwszystkie-ctrl/render/internal/models"
	"github.com/prezentinnynizwszystkie-ctrl/render/internal/services"
)

// ---------------------------------------------------------------------------
// Collaborator fakes
// ---------------------------------------------------------------------------

type statusWrite struct {
	status  models.OrderStatus
	message string
}

type fakeOrders struct {
	orders     map[string]*models.Order
	writes     []statusWrite
	failWrites bool
}

func (f *fakeOrders) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, errors.New("order not found")
	}
	return order, nil
}

func (f *fakeOrders) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, message string) error {
	if f.failWrites {
		return errors.New("persistence unavailable")
	}
	f.writes = append(f.writes, statusWrite{status, message})
	return nil
}

type fakeStore struct {
	objects map[string][]byte // remote path -> blob
	uploads map[string][]byte // output key -> uploaded bytes
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: map[string][]byte{},
		uploads: map[string][]byte{},
	}
}

func (f *fakeStore) DownloadToFile(ctx context.Context, storagePath, localPath string) error {
	data, ok := f.objects[storagePath]
	if !ok {
		return fmt.Errorf("download failed with status 404: Object not found")
	}
	return os.WriteFile(localPath, data, 0644)
}

func (f *fakeStore) UploadFile(ctx context.Context, storagePath, localPath, contentType string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	f.uploads[storagePath] = data
	return nil
}

type fakeEngine struct {
	durations  map[string]float64 // basename -> seconds
	renders    []services.Graph
	concats    [][]string
	failRender bool
	failConcat bool
}

func (f *fakeEngine) Render(ctx context.Context, g services.Graph, outputPath string) error {
	if f.failRender {
		return errors.New("ffmpeg render failed: Invalid data found when processing input")
	}
	f.renders = append(f.renders, g)
	return os.WriteFile(outputPath, []byte("rendered"), 0644)
}

func (f *fakeEngine) Concat(ctx context.Context, clipPaths []string, outputPath string) error {
	if f.failConcat {
		return errors.New("ffmpeg concatenate failed")
	}
	for _, p := range clipPaths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("missing concat input %s", p)
		}
	}
	f.concats = append(f.concats, clipPaths)
	return os.WriteFile(outputPath, []byte("stitched"), 0644)
}

func (f *fakeEngine) ProbeDuration(ctx context.Context, path string) (float64, error) {
	d, ok := f.durations[filepath.Base(path)]
	if !ok {
		return 0, fmt.Errorf("ffprobe failed for %s", path)
	}
	return d, nil
}

// ---------------------------------------------------------------------------

func fullyStocked(order *models.Order) *fakeStore {
	store := newFakeStore()
	for _, entry := range BuildManifest(order) {
		store.objects[entry.RemotePath] = []byte("blob:" + entry.Key)
	}
	return store
}

func newTestPipeline(t *testing.T, orders *fakeOrders, store *fakeStore, engine *fakeEngine) (*Pipeline, string) {
	t.Helper()
	workDir := t.TempDir()
	return New(orders, store, engine, workDir), workDir
}

func TestRunSuccess(t *testing.T) {
	order := testOrder()
	orders := &fakeOrders{orders: map[string]*models.Order{"A1": order}}
	store := fullyStocked(order)
	engine := &fakeEngine{durations: map[string]float64{"1.mp3": 12.0, "2.mp3": 8.0}}

	p, workDir := newTestPipeline(t, orders, store, engine)

	if err := p.Run(context.Background(), "A1"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// Status sequence: processing x3 then completed
	if len(orders.writes) != 4 {
		t.Fatalf("expected 4 status writes, got %d: %v", len(orders.writes), orders.writes)
	}
	for i := 0; i < 3; i++ {
		if orders.writes[i].status != models.OrderStatusProcessing {
			t.Errorf("write %d: expected processing, got %s", i, orders.writes[i].status)
		}
	}
	last := orders.writes[3]
	if last.status != models.OrderStatusCompleted || last.message != "Gotowe!" {
		t.Errorf("expected terminal completed/Gotowe!, got %s/%s", last.status, last.message)
	}

	// Exactly two uploads at the deterministic output keys
	if len(store.uploads) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(store.uploads))
	}
	for _, chapter := range []int{1, 2} {
		key := fmt.Sprintf("acme/orders/A1/moon_story_acme_chapter_%d.mp4", chapter)
		if _, ok := store.uploads[key]; !ok {
			t.Errorf("missing upload at %s", key)
		}
	}

	// Each chapter rendered once and stitched once with its trailing clip
	if len(engine.renders) != 2 {
		t.Errorf("expected 2 renders, got %d", len(engine.renders))
	}
	if len(engine.concats) != 2 {
		t.Fatalf("expected 2 stitches, got %d", len(engine.concats))
	}
	if base := filepath.Base(engine.concats[0][1]); base != "end1.mp4" {
		t.Errorf("chapter 1 stitched with %s, want end1.mp4", base)
	}
	if base := filepath.Base(engine.concats[1][1]); base != "music_video.mp4" {
		t.Errorf("chapter 2 stitched with %s, want music_video.mp4", base)
	}

	// Narration drives the trim in both chapter graphs
	if fc := engine.renders[0].FilterComplex(); !strings.Contains(fc, "trim=duration=12.000") {
		t.Errorf("chapter 1 trim not driven by narration: %s", fc)
	}
	if fc := engine.renders[1].FilterComplex(); !strings.Contains(fc, "trim=duration=8.000") {
		t.Errorf("chapter 2 trim not driven by narration: %s", fc)
	}

	// Workspace gone
	if _, err := os.Stat(filepath.Join(workDir, "A1")); !os.IsNotExist(err) {
		t.Error("workspace still exists after successful run")
	}
}

func TestRunMissingAsset(t *testing.T) {
	order := testOrder()
	order.OrderID = "B2"
	orders := &fakeOrders{orders: map[string]*models.Order{"B2": order}}

	store := fullyStocked(order)
	delete(store.objects, "stories/moon_story/music_2.mp3") // chapter 2 background music absent

	engine := &fakeEngine{durations: map[string]float64{"1.mp3": 12.0, "2.mp3": 8.0}}
	p, workDir := newTestPipeline(t, orders, store, engine)

	err := p.Run(context.Background(), "B2")
	if err == nil {
		t.Fatal("expected run to fail")
	}

	var missing *AssetMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected AssetMissingError, got %T: %v", err, err)
	}
	if missing.Key != KeyChapter2Music {
		t.Errorf("expected failing key %s, got %s", KeyChapter2Music, missing.Key)
	}

	// Terminal status names the missing file
	last := orders.writes[len(orders.writes)-1]
	if last.status != models.OrderStatusError {
		t.Errorf("expected terminal error status, got %s", last.status)
	}
	if !strings.Contains(last.message, "4.mp3") {
		t.Errorf("error message should name 4.mp3, got %q", last.message)
	}

	// Nothing rendered, nothing uploaded, workspace gone
	if len(engine.renders) != 0 {
		t.Errorf("expected no renders, got %d", len(engine.renders))
	}
	if len(store.uploads) != 0 {
		t.Errorf("expected no uploads, got %d", len(store.uploads))
	}
	if _, err := os.Stat(filepath.Join(workDir, "B2")); !os.IsNotExist(err) {
		t.Error("workspace still exists after failed run")
	}
}

func TestRunOrderNotFound(t *testing.T) {
	orders := &fakeOrders{orders: map[string]*models.Order{}}
	p, _ := newTestPipeline(t, orders, newFakeStore(), &fakeEngine{})

	if err := p.Run(context.Background(), "missing"); err == nil {
		t.Fatal("expected run to fail")
	}

	// Best-effort error status write still happens
	if len(orders.writes) != 1 || orders.writes[0].status != models.OrderStatusError {
		t.Errorf("expected a single error status write, got %v", orders.writes)
	}
}

func TestRunTranscodeFailure(t *testing.T) {
	order := testOrder()
	orders := &fakeOrders{orders: map[string]*models.Order{"A1": order}}
	store := fullyStocked(order)
	engine := &fakeEngine{
		durations:  map[string]float64{"1.mp3": 12.0, "2.mp3": 8.0},
		failRender: true,
	}

	p, workDir := newTestPipeline(t, orders, store, engine)

	err := p.Run(context.Background(), "A1")
	var transcode *TranscodeError
	if !errors.As(err, &transcode) {
		t.Fatalf("expected TranscodeError, got %T: %v", err, err)
	}
	if transcode.Stage != "chapter_1" {
		t.Errorf("expected failure at chapter_1, got %s", transcode.Stage)
	}

	// Engine diagnostic survives into the status message
	last := orders.writes[len(orders.writes)-1]
	if last.status != models.OrderStatusError || !strings.Contains(last.message, "Invalid data") {
		t.Errorf("expected engine diagnostic in status, got %s/%q", last.status, last.message)
	}

	if len(store.uploads) != 0 {
		t.Errorf("expected no uploads after transcode failure, got %d", len(store.uploads))
	}
	if _, err := os.Stat(filepath.Join(workDir, "A1")); !os.IsNotExist(err) {
		t.Error("workspace still exists after failed run")
	}
}

func TestRunStitchFailure(t *testing.T) {
	order := testOrder()
	orders := &fakeOrders{orders: map[string]*models.Order{"A1": order}}
	store := fullyStocked(order)
	engine := &fakeEngine{
		durations:  map[string]float64{"1.mp3": 12.0, "2.mp3": 8.0},
		failConcat: true,
	}

	p, workDir := newTestPipeline(t, orders, store, engine)

	err := p.Run(context.Background(), "A1")
	var transcode *TranscodeError
	if !errors.As(err, &transcode) {
		t.Fatalf("expected TranscodeError, got %T: %v", err, err)
	}
	if transcode.Stage != "stitch_1" {
		t.Errorf("expected failure at stitch_1, got %s", transcode.Stage)
	}

	// Engine diagnostic survives into the terminal status
	last := orders.writes[len(orders.writes)-1]
	if last.status != models.OrderStatusError || !strings.Contains(last.message, "concatenate failed") {
		t.Errorf("expected stitch diagnostic in status, got %s/%q", last.status, last.message)
	}

	// Chapter 1 rendered but nothing stitched or uploaded
	if len(engine.renders) != 1 {
		t.Errorf("expected 1 render before stitch failure, got %d", len(engine.renders))
	}
	if len(engine.concats) != 0 {
		t.Errorf("expected no completed stitches, got %d", len(engine.concats))
	}
	if len(store.uploads) != 0 {
		t.Errorf("expected no uploads after stitch failure, got %d", len(store.uploads))
	}
	if _, err := os.Stat(filepath.Join(workDir, "A1")); !os.IsNotExist(err) {
		t.Error("workspace still exists after failed run")
	}
}

func TestRunStatusWriteFailureAborts(t *testing.T) {
	order := testOrder()
	// First write fails: the run aborts before fetching anything
	orders := &fakeOrders{
		orders:     map[string]*models.Order{"A1": order},
		failWrites: true,
	}
	store := fullyStocked(order)
	engine := &fakeEngine{durations: map[string]float64{"1.mp3": 12.0, "2.mp3": 8.0}}

	p, workDir := newTestPipeline(t, orders, store, engine)

	if err := p.Run(context.Background(), "A1"); err == nil {
		t.Fatal("expected run to fail")
	}

	// The error-path status write also failed; it must be swallowed, not
	// escalated, so the run still terminates cleanly with the workspace gone.
	if len(store.uploads) != 0 {
		t.Errorf("expected no uploads, got %d", len(store.uploads))
	}
	if _, err := os.Stat(filepath.Join(workDir, "A1")); !os.IsNotExist(err) {
		t.Error("workspace still exists after failed run")
	}
}

func TestRunPublishFailureKeepsEarlierUpload(t *testing.T) {
	order := testOrder()
	orders := &fakeOrders{orders: map[string]*models.Order{"A1": order}}
	store := fullyStocked(order)
	engine := &fakeEngine{durations: map[string]float64{"1.mp3": 12.0, "2.mp3": 8.0}}

	p, _ := newTestPipeline(t, orders, store, engine)

	// Wrap the store so only the chapter 2 upload fails
	failing := &failingUploadStore{fakeStore: store, failKey: OutputKey(order, 2)}
	p.store = failing

	err := p.Run(context.Background(), "A1")
	var publish *PublishError
	if !errors.As(err, &publish) {
		t.Fatalf("expected PublishError, got %T: %v", err, err)
	}

	// Chapter 1 stays published — no transactional rollback
	if _, ok := store.uploads[OutputKey(order, 1)]; !ok {
		t.Error("chapter 1 upload should remain published")
	}
	if _, ok := store.uploads[OutputKey(order, 2)]; ok {
		t.Error("chapter 2 should not have been published")
	}

	last := orders.writes[len(orders.writes)-1]
	if last.status != models.OrderStatusError {
		t.Errorf("expected terminal error status, got %s", last.status)
	}
}

type failingUploadStore struct {
	*fakeStore
	failKey string
}

func (f *failingUploadStore) UploadFile(ctx context.Context, storagePath, localPath, contentType string) error {
	if storagePath == f.failKey {
		return errors.New("upload failed with status 503")
	}
	return f.fakeStore.UploadFile(ctx, storagePath, localPath, contentType)
}
