package ml

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"gradecast/schema"
)

// Service owns the loaded artifacts and serves predictions over them. The
// whole pipeline state sits behind an atomic pointer: requests read a
// consistent snapshot without locking, and an artifact reload swaps the
// snapshot in one step.
type Service struct {
	schema    *schema.Schema
	path      string
	cacheSize int
	log       *zap.Logger

	state   atomic.Pointer[pipelineState]
	watcher *fsnotify.Watcher
	done    chan struct{}
}

type pipelineState struct {
	bundle    *Bundle
	encoder   *Encoder
	predictor *Predictor
	cache     *lru.Cache[string, *Prediction]
}

// NewService loads and validates the bundle. Artifact problems fail here,
// during startup, so a misconfigured process never serves traffic.
func NewService(path string, s *schema.Schema, cacheSize int, log *zap.Logger) (*Service, error) {
	svc := &Service{
		schema:    s,
		path:      path,
		cacheSize: cacheSize,
		log:       log,
		done:      make(chan struct{}),
	}
	state, err := svc.loadState()
	if err != nil {
		return nil, err
	}
	svc.state.Store(state)
	return svc, nil
}

func (s *Service) loadState() (*pipelineState, error) {
	bundle, err := LoadBundle(s.path, s.schema)
	if err != nil {
		return nil, err
	}
	encoder, err := NewEncoder(s.schema, bundle)
	if err != nil {
		return nil, err
	}
	size := s.cacheSize
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New[string, *Prediction](size)
	if err != nil {
		return nil, err
	}
	return &pipelineState{
		bundle:    bundle,
		encoder:   encoder,
		predictor: NewPredictor(bundle.Classes, bundle.Forest),
		cache:     cache,
	}, nil
}

// Predict validates, encodes, and classifies one record. Identical records
// hit the result cache; the operation is deterministic so a cached result is
// indistinguishable from a fresh one.
func (s *Service) Predict(rec schema.Record) (*Prediction, []schema.Warning, error) {
	warnings, err := s.schema.Validate(rec)
	if err != nil {
		return nil, warnings, err
	}
	for _, w := range warnings {
		s.log.Warn("suspicious input field", zap.String("field", w.Field), zap.String("detail", w.Message))
	}

	state := s.state.Load()
	key := cacheKey(rec)
	if cached, ok := state.cache.Get(key); ok {
		return cached, warnings, nil
	}

	vec, err := state.encoder.Encode(rec)
	if err != nil {
		return nil, warnings, err
	}
	pred, err := state.predictor.Predict(vec)
	if err != nil {
		return nil, warnings, err
	}
	state.cache.Add(key, pred)
	return pred, warnings, nil
}

// Bundle returns the currently served artifact bundle.
func (s *Service) Bundle() *Bundle {
	return s.state.Load().bundle
}

// Schema returns the immutable feature schema.
func (s *Service) Schema() *schema.Schema {
	return s.schema
}

// Watch reloads the bundle whenever the artifact file is rewritten on disk.
// A bad replacement bundle is rejected and the previous state keeps serving.
func (s *Service) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: artifact writers typically replace the file.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				state, err := s.loadState()
				if err != nil {
					s.log.Error("artifact reload rejected", zap.String("path", s.path), zap.Error(err))
					continue
				}
				s.state.Store(state)
				s.log.Info("artifact reloaded",
					zap.String("path", s.path),
					zap.Time("trained_at", state.bundle.TrainedAt))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Error("artifact watch error", zap.Error(err))
			case <-s.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the artifact watcher if one is running.
func (s *Service) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// cacheKey builds a canonical key from the record's sorted fields.
func cacheKey(rec schema.Record) string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, rec[k])
	}
	return b.String()
}
