package cover

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/emandor/bookcover_service/internal/cache"
	"github.com/emandor/bookcover_service/internal/model"
	"github.com/emandor/bookcover_service/internal/ocr"
	"github.com/emandor/bookcover_service/internal/pipeline"
	"github.com/emandor/bookcover_service/internal/storage"
	"github.com/emandor/bookcover_service/internal/ws"
)

// Events receives gallery notifications.
type Events interface {
	Processed(c model.Cover)
	Failed(filename string, kind pipeline.Kind, err error)
}

type wsEvents struct{}

func (wsEvents) Processed(c model.Cover) { ws.BroadcastCoverProcessed(c) }
func (wsEvents) Failed(filename string, kind pipeline.Kind, err error) {
	ws.BroadcastCoverFailed(filename, kind.String(), err)
}

type Service struct {
	pipe    *pipeline.Pipeline
	backend string
	store   *storage.Dirs
	repo    Repository
	cache   *cache.ResultCache[model.Cover]
	sem     *semaphore.Weighted
	events  Events
	log     zerolog.Logger
	baseURL string

	ocr        ocr.Reader
	ocrTimeout time.Duration
}

type Deps struct {
	Pipeline *pipeline.Pipeline
	Backend  string
	Store    *storage.Dirs
	Repo     Repository
	Cache    *cache.ResultCache[model.Cover]
	// Workers bounds concurrent pipeline runs.
	Workers int
	Events  Events
	Log     zerolog.Logger
	// BaseURL prefixes processed URLs in responses; empty keeps them relative.
	BaseURL string

	// OCR is optional.
	OCR        ocr.Reader
	OCRTimeout time.Duration
}

func NewService(d Deps) *Service {
	if d.Workers < 1 {
		d.Workers = 1
	}
	if d.Events == nil {
		d.Events = wsEvents{}
	}
	if d.Repo == nil {
		d.Repo = NewMemoryRepository()
	}
	if d.OCRTimeout <= 0 {
		d.OCRTimeout = 30 * time.Second
	}
	return &Service{
		pipe:       d.Pipeline,
		backend:    d.Backend,
		store:      d.Store,
		repo:       d.Repo,
		cache:      d.Cache,
		sem:        semaphore.NewWeighted(int64(d.Workers)),
		events:     d.Events,
		log:        d.Log,
		baseURL:    strings.TrimRight(d.BaseURL, "/"),
		ocr:        d.OCR,
		ocrTimeout: d.OCRTimeout,
	}
}

// Result is a processed cover and whether it came from the cache.
type Result struct {
	Cover  model.Cover
	Cached bool
}

// Process runs one upload through the pipeline and records it. Identical
// uploads are answered from the result cache while the processed file exists.
func (s *Service) Process(ctx context.Context, filename string, raw []byte) (_ Result, err error) {
	sum := sha256.Sum256(raw)
	uploadHash := hex.EncodeToString(sum[:])
	log := s.log.With().Str("upload_hash", uploadHash[:12]).Str("filename", filename).Logger()

	if c, ok := s.cached(ctx, uploadHash, log); ok {
		log.Info().Str("cover_id", c.ID).Msg("cover_cache_hit")
		return Result{Cover: c, Cached: true}, nil
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	defer s.sem.Release(1)

	id := storage.NewID()
	upload, err := s.store.SaveUpload(id, filename, raw)
	if err != nil {
		log.Error().Err(err).Msg("upload_save_fail")
		return Result{}, fmt.Errorf("save upload: %w", err)
	}
	// failed uploads leave nothing behind in the upload folder
	defer func() {
		if err == nil {
			return
		}
		if rerr := s.store.RemoveUpload(upload); rerr != nil {
			log.Warn().Err(rerr).Msg("upload_remove_fail")
		}
	}()

	start := time.Now()
	out, err := s.pipe.ProcessBytes(raw)
	if err != nil {
		kind := pipeline.KindOf(err)
		log.Warn().Err(err).Str("kind", kind.String()).Msg("cover_process_fail")
		s.events.Failed(filename, kind, err)
		return Result{}, err
	}

	saved, err := s.store.SaveProcessed(id, out.Bytes)
	if err != nil {
		log.Error().Err(err).Msg("processed_save_fail")
		return Result{}, fmt.Errorf("save processed: %w", err)
	}

	c := model.Cover{
		ID:           id,
		OriginalName: filename,
		ImagePath:    saved.Path,
		URL:          "/processed/" + saved.Name,
		ImageHash:    out.Hash,
		UploadHash:   uploadHash,
		Width:        out.Width,
		Height:       out.Height,
		Detected:     out.Detected,
		Rescaled:     out.Rescaled,
		Backend:      s.backend,
		CreatedAt:    time.Now().UTC(),
	}
	c.OCRText = s.readText(ctx, out.Bytes, log)

	if err := s.repo.Save(ctx, &c); err != nil {
		log.Error().Err(err).Msg("cover_save_fail")
		return Result{}, fmt.Errorf("save cover: %w", err)
	}
	if err := s.cache.Set(ctx, uploadHash, c); err != nil {
		log.Warn().Err(err).Msg("cover_cache_set_err")
	}

	log.Info().
		Str("cover_id", c.ID).
		Bool("detected", c.Detected).
		Int("width", c.Width).
		Int("height", c.Height).
		Dur("took", time.Since(start)).
		Msg("cover_processed")
	s.events.Processed(c)
	return Result{Cover: c}, nil
}

func (s *Service) cached(ctx context.Context, hash string, log zerolog.Logger) (model.Cover, bool) {
	c, ok, err := s.cache.Get(ctx, hash)
	if err != nil {
		log.Warn().Err(err).Msg("cover_cache_get_err")
		return model.Cover{}, false
	}
	if !ok {
		return model.Cover{}, false
	}
	if _, err := os.Stat(c.ImagePath); err != nil {
		// processed file is gone, reprocess
		_ = s.cache.Delete(ctx, hash)
		return model.Cover{}, false
	}
	return c, true
}

// readText is best effort; failures leave the text empty.
func (s *Service) readText(ctx context.Context, jpeg []byte, log zerolog.Logger) string {
	if s.ocr == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, s.ocrTimeout)
	defer cancel()
	res, err := s.ocr.Read(ctx, jpeg)
	if err != nil {
		log.Warn().Err(err).Msg("cover_ocr_fail")
		return ""
	}
	log.Debug().Int("len", len(res.Text)).Msg("cover_ocr_done")
	return res.Text
}

// PublicURL is the absolute address of a processed cover when a base URL
// is configured.
func (s *Service) PublicURL(c model.Cover) string {
	return s.baseURL + c.URL
}

func (s *Service) Get(ctx context.Context, id string) (*model.Cover, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]model.Cover, error) {
	return s.repo.List(ctx, limit)
}

// ProcessedPath resolves a processed file name for serving.
func (s *Service) ProcessedPath(name string) (string, error) {
	p, err := s.store.ProcessedPath(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	return p, nil
}
