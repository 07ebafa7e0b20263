// File: internal/generate/service.go
package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"jazz_picker_backend/internal/catalog"
	"jazz_picker_backend/internal/common"
	"jazz_picker_backend/internal/filestorage"
	"jazz_picker_backend/internal/music"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CoreFileSource resolves a song title to its LilyPond sources.
type CoreFileSource interface {
	CoreFiles(ctx context.Context, title string) ([]string, error)
}

// Service renders songs on demand and keeps the PDFs in object storage.
type Service interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ServiceImplementation implements the generate Service interface.
type ServiceImplementation struct {
	songs    CoreFileSource
	store    filestorage.ObjectStore
	renderer Renderer
	dataDir  string
	urlTTL   time.Duration
	timeout  time.Duration
	group    singleflight.Group
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new generate service.
func NewService(
	songs CoreFileSource,
	store filestorage.ObjectStore,
	renderer Renderer,
	dataDir string,
	urlTTL time.Duration,
	timeout time.Duration,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		songs:    songs,
		store:    store,
		renderer: renderer,
		dataDir:  dataDir,
		urlTTL:   urlTTL,
		timeout:  timeout,
		logger:   logger.Named("GenerateService"),
		now:      time.Now,
	}
}

// Normalize lowercases key and clef, defaults clef to treble and trims the instrument.
func Normalize(req Request) Request {
	req.Song = strings.TrimSpace(req.Song)
	req.Key = strings.ToLower(strings.TrimSpace(req.Key))
	req.Clef = strings.ToLower(strings.TrimSpace(req.Clef))
	if req.Clef == "" {
		req.Clef = string(music.ClefTreble)
	}
	req.Instrument = strings.TrimSpace(req.Instrument)
	return req
}

// Validate checks a normalized request.
func Validate(req Request) error {
	if req.Song == "" {
		return common.ErrBadRequest.WithMessage("Missing required field: song")
	}
	if req.Key == "" {
		return common.ErrBadRequest.WithMessage("Missing required field: key")
	}
	if !music.ValidGenerateKey(req.Key) {
		keys := append([]string(nil), music.GenerateKeys...)
		sort.Strings(keys)
		return common.ErrBadRequest.WithMessage("Invalid key. Must be one of: %s", strings.Join(keys, ", "))
	}
	if !music.ValidClef(req.Clef) {
		return common.ErrBadRequest.WithMessage("Invalid clef. Must be one of: treble, bass")
	}
	return nil
}

func (s *ServiceImplementation) Generate(ctx context.Context, req Request) (*Response, error) {
	start := s.now()
	req = Normalize(req)
	if err := Validate(req); err != nil {
		return nil, err
	}

	coreFiles, err := s.songs.CoreFiles(ctx, req.Song)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound.WithMessage("Song not found: %s", req.Song)
		}
		return nil, err
	}
	if len(coreFiles) == 0 {
		return nil, common.ErrNotFound.WithMessage("Song not found: %s", req.Song)
	}

	objectKey := catalog.GeneratedObjectKey(req.Song, req.Key, req.Clef, req.Instrument)

	// Concurrent requests for the same rendering share one compile. It must outlive the
	// caller that started it; the renderer enforces its own timeout.
	renderCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(objectKey, func() (interface{}, error) {
		return s.ensureRendered(renderCtx, objectKey, coreFiles[0], req)
	})
	if err != nil {
		return nil, err
	}
	cached := v.(bool)

	url, err := s.store.URL(ctx, objectKey, s.urlTTL)
	if err != nil {
		s.logger.Error("Failed to create download URL", zap.String("key", objectKey), zap.Error(err))
		return nil, common.ErrInternalServer.WithMessage("Generation failed: %s", err.Error())
	}
	return &Response{
		URL:              url,
		Cached:           cached,
		GenerationTimeMS: s.now().Sub(start).Milliseconds(),
	}, nil
}

// ensureRendered reports true when the object already existed.
func (s *ServiceImplementation) ensureRendered(ctx context.Context, objectKey, coreFile string, req Request) (bool, error) {
	exists, err := s.store.Exists(ctx, objectKey)
	if err != nil {
		s.logger.Warn("Error checking generated PDF cache", zap.String("key", objectKey), zap.Error(err))
	}
	if exists {
		return true, nil
	}

	base := strings.TrimSuffix(strings.TrimPrefix(objectKey, catalog.GeneratedPrefix), ".pdf")
	genDir := filepath.Join(s.dataDir, GeneratedDir)
	if err := os.MkdirAll(genDir, os.ModePerm); err != nil {
		return false, common.ErrInternalServer.WithMessage("Generation failed: %s", err.Error())
	}
	wrapperPath := filepath.Join(genDir, base+".ly")
	pdfPath := filepath.Join(genDir, base+".pdf")
	defer os.Remove(wrapperPath)

	content := WrapperContent(coreFile, req.Key, req.Clef, req.Instrument)
	if err := os.WriteFile(wrapperPath, []byte(content), 0o644); err != nil {
		return false, common.ErrInternalServer.WithMessage("Generation failed: %s", err.Error())
	}

	s.logger.Info("Rendering lead sheet",
		zap.String("song", req.Song),
		zap.String("key", req.Key),
		zap.String("clef", req.Clef),
		zap.String("instrument", req.Instrument),
	)
	stderr, err := s.renderer.Render(ctx, s.dataDir, base)
	if errors.Is(err, ErrRenderTimeout) {
		s.logger.Error("LilyPond timed out", zap.String("key", objectKey), zap.Duration("timeout", s.timeout))
		return false, common.ErrInternalServer.WithMessage("LilyPond compilation timed out (%ds limit)", int(s.timeout.Seconds()))
	}
	if err != nil {
		return false, common.ErrInternalServer.WithMessage("Generation failed: %s", err.Error())
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		summary := ErrorSummary(stderr)
		s.logger.Error("LilyPond compilation failed", zap.String("key", objectKey), zap.String("stderr", summary))
		return false, common.ErrInternalServer.WithMessage("LilyPond compilation failed").WithDetails(summary)
	}
	defer os.Remove(pdfPath)
	defer f.Close()

	if err := s.store.Put(ctx, objectKey, f, "application/pdf"); err != nil {
		s.logger.Error("Failed to upload generated PDF", zap.String("key", objectKey), zap.Error(err))
		return false, common.ErrInternalServer.WithMessage("Generation failed: %s", fmt.Sprint(err))
	}
	return false, nil
}
