package loader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/modelview/internal/logger"
	"github.com/Faultbox/modelview/pkg/formats"
	"github.com/Faultbox/modelview/pkg/scene"
)

// Options configures a Loader.
type Options struct {
	// Timeout bounds each network fetch. Zero uses DefaultTimeout.
	Timeout time.Duration

	// BaseURL resolves relative asset URLs.
	BaseURL string

	// Decoder handles Draco-compressed glTF primitives. Nil leaves such
	// assets unloadable.
	Decoder formats.MeshDecoder
}

// Loader turns ModelAssets into scene graphs. It holds no viewport state
// and is safe for concurrent use.
type Loader struct {
	fetcher *Fetcher
	decoder formats.MeshDecoder
}

// New creates a loader.
func New(opts Options) (*Loader, error) {
	f, err := NewFetcher(opts.Timeout, opts.BaseURL)
	if err != nil {
		return nil, err
	}
	return &Loader{fetcher: f, decoder: opts.Decoder}, nil
}

// Load fetches and decodes the asset. progress may be nil.
//
// Errors are *UnsupportedFormatError, *LoadFailedError, or ErrCancelled
// when ctx is done.
func (l *Loader) Load(ctx context.Context, asset ModelAsset, progress func(int)) (*scene.Node, error) {
	if asset.URL == "" {
		return nil, &LoadFailedError{URL: asset.URL, Cause: ErrEmptyURL}
	}
	if asset.Format == "" {
		a, err := NewAsset(asset.URL)
		if err != nil {
			return nil, err
		}
		asset = a
	}

	start := time.Now()
	u, err := l.fetcher.Resolve(asset.URL)
	if err != nil {
		return nil, &LoadFailedError{URL: asset.URL, Cause: err}
	}

	data, err := l.fetcher.fetchURL(ctx, u, progress)
	if err != nil {
		return nil, l.failure(ctx, asset, err)
	}

	var model *formats.Model
	switch asset.Format {
	case FormatMeshPBR:
		model, err = formats.ReadGLTF(data, formats.GLTFOptions{
			Resources: &resourceFS{ctx: ctx, fetcher: l.fetcher, base: u},
			Decoder:   l.decoder,
			Context:   ctx,
		})
	case FormatLegacyOBJ:
		model, err = formats.ReadOBJ(data)
	default:
		return nil, &UnsupportedFormatError{Extension: Extension(asset.URL)}
	}
	if err != nil {
		return nil, l.failure(ctx, asset, err)
	}

	for _, w := range model.Warnings {
		logger.Warn("model warning", zap.String("url", asset.URL), zap.String("warning", w))
	}
	stats := model.Root.Stats()
	logger.Info("model loaded",
		zap.String("url", asset.URL),
		zap.String("format", string(asset.Format)),
		zap.Int("bytes", len(data)),
		zap.Int("meshes", stats.Meshes),
		zap.Int("triangles", stats.Triangles),
		zap.Duration("elapsed", time.Since(start)))

	return model.Root, nil
}

func (l *Loader) failure(ctx context.Context, asset ModelAsset, err error) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}
	if errors.Is(err, formats.ErrDecoderRequired) {
		err = fmt.Errorf("%w (set loader.decoder_path)", err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		err = fmt.Errorf("timed out: %w", err)
	}
	return &LoadFailedError{URL: asset.URL, Cause: err}
}

// Result is the outcome of an asynchronous load.
type Result struct {
	Asset ModelAsset
	Root  *scene.Node
	Err   error
}

// Pending tracks an in-flight asynchronous load.
type Pending struct {
	Asset ModelAsset

	cancel   context.CancelFunc
	done     chan Result
	progress atomic.Int32
}

// LoadFunc is the signature of Loader.Load.
type LoadFunc func(ctx context.Context, asset ModelAsset, progress func(int)) (*scene.Node, error)

// Start loads the asset on a new goroutine. Exactly one Result is sent on
// Done; the channel is buffered so an abandoned load never blocks.
func (l *Loader) Start(ctx context.Context, asset ModelAsset) *Pending {
	return Start(ctx, asset, l.Load)
}

// Start runs load on a new goroutine and tracks it as a Pending.
func Start(ctx context.Context, asset ModelAsset, load LoadFunc) *Pending {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pending{
		Asset:  asset,
		cancel: cancel,
		done:   make(chan Result, 1),
	}
	go func() {
		defer cancel()
		root, err := load(ctx, asset, func(pct int) { p.progress.Store(int32(pct)) })
		if err != nil && ctx.Err() != nil {
			err = ErrCancelled
		}
		p.done <- Result{Asset: asset, Root: root, Err: err}
	}()
	return p
}

// Done delivers the load result.
func (p *Pending) Done() <-chan Result { return p.done }

// Progress returns the last reported percentage.
func (p *Pending) Progress() int { return int(p.progress.Load()) }

// Cancel aborts the load. The goroutine still delivers a Result.
func (p *Pending) Cancel() { p.cancel() }
