package pipeline

import (
	"context"
	"log"

	"github.com/prezentinnynizwszystkie-ctrl/render/internal/models"
	"github.com/prezentinnynizwszystkie-ctrl/render/internal/services"
)

// Status messages written to the order row at phase boundaries. The
// customer-facing frontend displays these verbatim.
const (
	msgFetching  = "Pobieranie plików..."
	msgRendering = "Renderowanie Ch 1..."
	msgUploading = "Upload wyników..."
	msgDone      = "Gotowe!"
)

// OrderStore is the persistence collaborator: one lookup, one status write.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, message string) error
}

// ObjectStore is the storage collaborator holding source and output blobs.
type ObjectStore interface {
	DownloadToFile(ctx context.Context, storagePath, localPath string) error
	UploadFile(ctx context.Context, storagePath, localPath, contentType string) error
}

// Engine is the transcoding collaborator. Render runs one declarative
// graph atomically; Concat joins finished clips; ProbeDuration measures a
// media file in seconds.
type Engine interface {
	Render(ctx context.Context, g services.Graph, outputPath string) error
	Concat(ctx context.Context, clipPaths []string, outputPath string) error
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Pipeline assembles one order's two narrated chapters: fetch assets,
// render and stitch each chapter, publish, report status. All collaborators
// are injected; the pipeline owns only the workspace lifecycle.
type Pipeline struct {
	orders  OrderStore
	store   ObjectStore
	engine  Engine
	workDir string
}

func New(orders OrderStore, store ObjectStore, engine Engine, workDir string) *Pipeline {
	return &Pipeline{
		orders:  orders,
		store:   store,
		engine:  engine,
		workDir: workDir,
	}
}

// Run executes the full pipeline for one order. Phases are strictly
// sequential, single attempt each; the first failure aborts the run,
// writes a terminal error status (best effort) and removes the workspace.
// The returned error is for the caller's log only — the triggering request
// was already acknowledged.
func (p *Pipeline) Run(ctx context.Context, orderID string) error {
	order, err := p.orders.GetOrder(ctx, orderID)
	if err != nil {
		log.Printf("[Pipeline] order %s: lookup failed: %v", orderID, err)
		p.reportError(ctx, orderID, err)
		return err
	}

	ws, err := NewWorkspace(p.workDir, orderID)
	if err != nil {
		log.Printf("[Pipeline] order %s: %v", orderID, err)
		p.reportError(ctx, orderID, err)
		return err
	}
	// Workspace removal runs on every exit path, success or failure
	defer ws.Remove()

	if err := p.process(ctx, order, ws); err != nil {
		log.Printf("[Pipeline] order %s failed: %v", orderID, err)
		p.reportError(ctx, orderID, err)
		return err
	}

	log.Printf("[Pipeline] order %s completed", orderID)
	return nil
}

func (p *Pipeline) process(ctx context.Context, order *models.Order, ws *Workspace) error {
	manifest := BuildManifest(order)

	// Fetch
	if err := p.setStatus(ctx, order.OrderID, msgFetching); err != nil {
		return err
	}
	if err := p.fetch(ctx, manifest, ws); err != nil {
		return err
	}

	// Render + stitch, chapter by chapter
	if err := p.setStatus(ctx, order.OrderID, msgRendering); err != nil {
		return err
	}
	if err := p.renderChapter1(ctx, ws); err != nil {
		return err
	}
	if err := p.renderChapter2(ctx, ws); err != nil {
		return err
	}

	// Publish
	if err := p.setStatus(ctx, order.OrderID, msgUploading); err != nil {
		return err
	}
	if err := p.publish(ctx, order, ws); err != nil {
		return err
	}

	return p.orders.UpdateOrderStatus(ctx, order.OrderID, models.OrderStatusCompleted, msgDone)
}

// fetch downloads every manifest entry into the workspace, in manifest
// order. The first failing entry aborts the phase.
func (p *Pipeline) fetch(ctx context.Context, manifest []ManifestEntry, ws *Workspace) error {
	for _, entry := range manifest {
		log.Printf("[Pipeline] downloading %s -> %s", entry.RemotePath, entry.LocalName)
		if err := p.store.DownloadToFile(ctx, entry.RemotePath, ws.Path(entry.LocalName)); err != nil {
			return &AssetMissingError{
				Key:        entry.Key,
				RemotePath: entry.RemotePath,
				LocalName:  entry.LocalName,
				Err:        err,
			}
		}
	}
	return nil
}

// renderChapter1 renders the chapter 1 recipe and stitches the end clip
// onto it. The intermediate stays in the workspace; only chapter_1.mp4 is
// published.
func (p *Pipeline) renderChapter1(ctx context.Context, ws *Workspace) error {
	narrationSec, err := p.engine.ProbeDuration(ctx, ws.Path("1.mp3"))
	if err != nil {
		return &TranscodeError{Stage: "chapter_1", Err: err}
	}

	g := Chapter1Graph(ws.Path("bg1.mp4"), ws.Path("photo.jpg"), ws.Path("1.mp3"), ws.Path("3.mp3"), narrationSec)
	if err := p.engine.Render(ctx, g, ws.Path("chapter_1_raw.mp4")); err != nil {
		return &TranscodeError{Stage: "chapter_1", Err: err}
	}

	if err := p.engine.Concat(ctx, []string{ws.Path("chapter_1_raw.mp4"), ws.Path("end1.mp4")}, ws.Path("chapter_1.mp4")); err != nil {
		return &TranscodeError{Stage: "stitch_1", Err: err}
	}

	return nil
}

// renderChapter2 renders the chapter 2 recipe and stitches the closing
// music video onto it.
func (p *Pipeline) renderChapter2(ctx context.Context, ws *Workspace) error {
	narrationSec, err := p.engine.ProbeDuration(ctx, ws.Path("2.mp3"))
	if err != nil {
		return &TranscodeError{Stage: "chapter_2", Err: err}
	}

	g := Chapter2Graph(ws.Path("bg2.mp4"), ws.Path("2.mp3"), ws.Path("4.mp3"), narrationSec)
	if err := p.engine.Render(ctx, g, ws.Path("chapter_2_raw.mp4")); err != nil {
		return &TranscodeError{Stage: "chapter_2", Err: err}
	}

	if err := p.engine.Concat(ctx, []string{ws.Path("chapter_2_raw.mp4"), ws.Path("music_video.mp4")}, ws.Path("chapter_2.mp4")); err != nil {
		return &TranscodeError{Stage: "stitch_2", Err: err}
	}

	return nil
}

// publish uploads both finished chapters. Chapter 1 first; a chapter 2
// failure leaves chapter 1 published.
func (p *Pipeline) publish(ctx context.Context, order *models.Order, ws *Workspace) error {
	for chapter := 1; chapter <= 2; chapter++ {
		key := OutputKey(order, chapter)
		local := ws.Path(chapterFile(chapter))
		log.Printf("[Pipeline] uploading %s", key)
		if err := p.store.UploadFile(ctx, key, local, "video/mp4"); err != nil {
			return &PublishError{OutputKey: key, Err: err}
		}
	}
	return nil
}

func chapterFile(chapter int) string {
	if chapter == 1 {
		return "chapter_1.mp4"
	}
	return "chapter_2.mp4"
}

func (p *Pipeline) setStatus(ctx context.Context, orderID, message string) error {
	return p.orders.UpdateOrderStatus(ctx, orderID, models.OrderStatusProcessing, message)
}

// reportError writes the terminal error status best-effort: a failing
// write here must not mask the failure that put us on this path.
func (p *Pipeline) reportError(ctx context.Context, orderID string, runErr error) {
	if err := p.orders.UpdateOrderStatus(ctx, orderID, models.OrderStatusError, runErr.Error()); err != nil {
		log.Printf("[Pipeline] order %s: could not persist error status: %v", orderID, err)
	}
}
