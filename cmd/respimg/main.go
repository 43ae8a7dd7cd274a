// respimg generates AVIF, WebP and JPEG renditions of an image and prints <picture> markup for it.
//
//	respimg [flags] <source image> [scale percent]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
	"k8s.io/klog/v2"

	"github.com/tstromberg/respimg/pkg/respimg"
)

var (
	codec       = flag.String("codec", "magick", "image codec: magick or native")
	magickBin   = flag.String("magick", "magick", "ImageMagick binary")
	proberFlag  = flag.String("prober", "", "how to identify the source: magick, exiftool or decode (default: decode for the native codec, magick otherwise)")
	prefix      = flag.String("prefix", respimg.DefaultURLPrefix, "public URL prefix for renditions")
	parallel    = flag.Int("parallel", 1, "number of breakpoints to transcode at once")
	legacySizes = flag.Bool("legacy-sizes", false, "reproduce the sizes/srcset trimming of older pages")
	quiet       = flag.Bool("quiet", false, "only print the HTML fragment")
	alt         = flag.String("alt", "", "alt text for the fallback image")
	aiAlt       = flag.Bool("ai-alt", false, "generate alt text with Gemini (requires GOOGLE_AI_API_KEY)")
	aiModel     = flag.String("ai-model", respimg.AltModel, "Gemini model used by --ai-alt")
	publishDir  = flag.String("publish", "", "copy generated files into this directory (served at --prefix)")
	watchFlag   = flag.Bool("watch", false, "watch the source image for changes and rebuild")
	listen      = flag.Bool("listen", false, "serve --publish via HTTP")
	addr        = flag.String("addr", "localhost:12800", "host:port to bind to in listen mode")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if err := run(context.Background()); err != nil {
		klog.Exitf("%v", err)
	}
}

// run returns rather than exiting so that deferred cleanup, such as stopping exiftool, happens.
func run(ctx context.Context) error {
	if flag.NArg() < 1 || flag.NArg() > 2 {
		return fmt.Errorf("usage: %s [flags] <source image> [scale percent]", os.Args[0])
	}

	scale := respimg.DefaultScale
	if flag.NArg() == 2 {
		s, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			return fmt.Errorf("scale %q: %w", flag.Arg(1), err)
		}
		scale = s
	}

	if *listen && *publishDir == "" {
		return fmt.Errorf("--listen requires --publish")
	}

	src := flag.Arg(0)

	p, closer, err := newProber()
	if err != nil {
		return fmt.Errorf("prober: %w", err)
	}
	defer closer()

	t, err := newTranscoder()
	if err != nil {
		return fmt.Errorf("transcoder: %w", err)
	}

	var diag io.Writer = os.Stdout
	if *quiet {
		diag = nil
	}

	c := &respimg.Config{
		URLPrefix:   *prefix,
		Parallel:    *parallel,
		LegacySizes: *legacySizes,
		Alt:         *alt,
		Diag:        diag,
	}
	b := respimg.New(c, p, t)

	var ai *genai.Client
	if *aiAlt {
		ai, err = genai.NewClient(ctx, &genai.ClientConfig{APIKey: os.Getenv("GOOGLE_AI_API_KEY")})
		if err != nil {
			return fmt.Errorf("genai: %w", err)
		}
	}

	if err := build(ctx, b, ai, src, scale); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	if *watchFlag {
		// Created after the first build so that its writes are part of the recorded state.
		w, err := newSourceWatcher(src)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		eg.Go(func() error {
			defer w.Close()
			err := w.run(ctx, func() error { return build(ctx, b, ai, src, scale) })
			if err != nil {
				return fmt.Errorf("watch failed: %w", err)
			}
			return nil
		})
	}

	if *listen {
		eg.Go(func() error {
			if err := serve(ctx, *publishDir, *prefix, *addr); err != nil {
				return fmt.Errorf("listen failed: %w", err)
			}
			return nil
		})
	}

	return eg.Wait()
}

func newProber() (respimg.Prober, func(), error) {
	name := *proberFlag
	if name == "" {
		name = "magick"
		if *codec == "native" {
			name = "decode"
		}
	}

	switch name {
	case "magick":
		return &respimg.Magick{Binary: *magickBin}, func() {}, nil
	case "decode":
		return respimg.Decode{}, func() {}, nil
	case "exiftool":
		e, err := respimg.NewExiftool()
		if err != nil {
			return nil, nil, err
		}
		return e, func() {
			if err := e.Close(); err != nil {
				klog.Errorf("Failed to close exiftool: %v", err)
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown prober %q", name)
}

func newTranscoder() (respimg.Transcoder, error) {
	switch *codec {
	case "magick":
		m := &respimg.Magick{Binary: *magickBin}
		if err := m.LookPath(); err != nil {
			return nil, err
		}
		return m, nil
	case "native":
		return &respimg.Native{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", *codec)
}

// build builds the image set once and prints its markup.
func build(ctx context.Context, b *respimg.Builder, ai *genai.Client, src string, scale int) error {
	s, err := b.Build(ctx, src, scale)
	if err != nil {
		return err
	}

	if ai != nil && *alt == "" {
		text, err := respimg.AltText(ctx, ai, *aiModel, s)
		if err != nil {
			klog.Errorf("alt text: %v", err)
		} else if err := s.SetAlt(text); err != nil {
			return err
		}
	}

	if *publishDir != "" {
		copied, err := respimg.Publish(s, *publishDir)
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		klog.Infof("published %d files to %s", len(copied), *publishDir)
	}

	_, err = s.WriteTo(os.Stdout)
	return err
}

// serve serves the published images via HTTP under prefix until ctx is done.
func serve(ctx context.Context, path string, prefix string, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(path))))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	klog.Infof("Listening on %s...", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// fileStamp identifies one version of a file's contents.
type fileStamp struct {
	modTime int64
	size    int64
}

func stampOf(path string) fileStamp {
	st, err := os.Stat(path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{modTime: st.ModTime().UnixNano(), size: st.Size()}
}

// sourceWatcher reports changes to a single source image.
type sourceWatcher struct {
	w    *fsnotify.Watcher
	abs  string
	last fileStamp
}

func newSourceWatcher(src string) (*sourceWatcher, error) {
	abs, err := filepath.Abs(src)
	if err != nil {
		return nil, fmt.Errorf("abs: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new watcher: %w", err)
	}

	// Editors often replace files by renaming, so watch the directory rather than the file.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("add: %w", err)
	}
	klog.Infof("watching %s ...", abs)

	return &sourceWatcher{w: w, abs: abs, last: stampOf(abs)}, nil
}

func (sw *sourceWatcher) Close() error {
	return sw.w.Close()
}

// run calls rebuild whenever the source changes, until ctx is done. A build may write
// the source itself (a .jpg fallback has the source's name), so the source is re-stamped
// after every rebuild and events that leave it unchanged are ignored.
func (sw *sourceWatcher) run(ctx context.Context, rebuild func() error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-sw.w.Events:
			if !ok {
				return nil
			}
			if event.Name != sw.abs {
				continue
			}
			klog.V(1).Infof("event: %s", event)
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cur := stampOf(sw.abs)
			if cur == sw.last {
				klog.V(1).Infof("%s unchanged since last build", sw.abs)
				continue
			}
			if err := rebuild(); err != nil {
				klog.Errorf("rebuild failed: %v", err)
			}
			sw.last = stampOf(sw.abs)
		case err, ok := <-sw.w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}
