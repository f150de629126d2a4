// Command assetcache manages a persisted, expiring cache of remote assets
// from the command line. Every command prints one JSON response line.
package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/richardartoul/assetcache/pkg/asset"
	"github.com/richardartoul/assetcache/pkg/assetcache"
	"github.com/richardartoul/assetcache/pkg/assets"
	"github.com/richardartoul/assetcache/pkg/locking"
	"github.com/richardartoul/assetcache/pkg/metrics"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what a single command invocation needs.
type app struct {
	cfg      Config
	logger   *slog.Logger
	out      *ResponseWriter
	stderr   io.Writer
	tracker  *metrics.LatencyTracker
	factory  *assets.Factory
	shared   *assetcache.Serialized
	closeFns []func() error
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		out:    NewResponseWriter(stdout),
		stderr: stderr,
	}

	root := &cobra.Command{
		Use:           "assetcache",
		Short:         "Persisted, expiring cache of remote assets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file")
	root.PersistentFlags().Bool("stats", false, "print operation latencies to stderr")
	root.PersistentFlags().Bool("debug", false, "log every store and backend call")

	root.AddCommand(
		a.putTextCommand(),
		a.putImageCommand(),
		a.putBlobCommand(),
		a.getCommand(),
		a.rmCommand(),
		a.lsCommand(),
		a.sweepCommand(),
		a.purgeCommand(),
	)
	return root
}

// open loads the configuration and opens the stores and the cache index.
func (a *app) open(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	a.cfg = cfg

	level, err := ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	a.tracker = metrics.NewLatencyTracker(0.01)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, closeStore, err := openIndex(ctx, cfg, a.logger)
	if err != nil {
		return err
	}
	a.closeFns = append(a.closeFns, closeStore)

	blobs, err := openBlobs(ctx, cfg, a.logger)
	if err != nil {
		return err
	}

	a.factory = &assets.Factory{Store: store, Blobs: blobs}
	cache, err := assetcache.New(store, a.factory.Registry(),
		assetcache.WithPrefix(cfg.Prefix),
		assetcache.WithLogger(a.logger),
		assetcache.WithLatencyTracker(a.tracker))
	if err != nil {
		return err
	}
	a.shared = assetcache.NewSerialized(cache, locking.NewNoOpGroup())
	return nil
}

func (a *app) close(cmd *cobra.Command) error {
	var err error
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		err = errors.CombineErrors(err, a.closeFns[i]())
	}
	a.closeFns = nil

	if stats, _ := cmd.Flags().GetBool("stats"); stats && a.tracker != nil {
		fmt.Fprintln(a.stderr, "Latency stats:")
		for _, s := range a.tracker.GetAllStats() {
			fmt.Fprintln(a.stderr, s.String())
		}
	}
	return err
}

// run opens the cache, runs fn and prints its response. A failure is printed
// as a response too and returned so the process exits non-zero.
func (a *app) run(fn func(c *assetcache.Cache, cmd *cobra.Command, args []string) (Response, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			err = errors.CombineErrors(err, a.close(cmd))
		}()

		if err := a.open(cmd); err != nil {
			a.out.SendError(err)
			return err
		}
		var resp Response
		err = a.shared.Do(func(c *assetcache.Cache) error {
			var fnErr error
			resp, fnErr = fn(c, cmd, args)
			return fnErr
		})
		if err != nil {
			a.out.SendError(err)
			return err
		}
		resp.Success = true
		return a.out.Send(resp)
	}
}

func (a *app) lifetime(cmd *cobra.Command) (int, error) {
	s, _ := cmd.Flags().GetString("lifetime")
	if s == "" {
		s = a.cfg.Lifetime
	}
	return ParseLifetime(s)
}

func addLifetimeFlag(cmd *cobra.Command) {
	cmd.Flags().String("lifetime", "", "asset lifetime, e.g. 5d, 36h or never (defaults to the configured lifetime)")
}

func infoOf(x asset.Asset) *AssetInfo {
	info := describe(x)
	return &info
}

func (a *app) putTextCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put-text URL TEXT",
		Short: "Cache a text payload for URL",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(c *assetcache.Cache, cmd *cobra.Command, args []string) (Response, error) {
			days, err := a.lifetime(cmd)
			if err != nil {
				return Response{}, err
			}
			t, err := a.factory.SaveText(c, args[0], args[1], days, true)
			if err != nil {
				return Response{}, err
			}
			return Response{Asset: infoOf(t)}, nil
		}),
	}
	addLifetimeFlag(cmd)
	return cmd
}

func (a *app) putImageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put-image URL FILE",
		Short: "Cache a PNG image for URL",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(c *assetcache.Cache, cmd *cobra.Command, args []string) (Response, error) {
			days, err := a.lifetime(cmd)
			if err != nil {
				return Response{}, err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return Response{}, errors.Wrap(err, "failed to read image")
			}
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				return Response{}, errors.Wrapf(err, "%s is not a PNG image", args[1])
			}
			i, err := a.factory.SaveImage(c, args[0], img, days, true)
			if err != nil {
				return Response{}, err
			}
			return Response{Asset: infoOf(i), Bounds: boundsOf(img)}, nil
		}),
	}
	addLifetimeFlag(cmd)
	return cmd
}

func (a *app) putBlobCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put-blob URL FILE",
		Short: "Cache the raw bytes of FILE for URL",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(c *assetcache.Cache, cmd *cobra.Command, args []string) (Response, error) {
			days, err := a.lifetime(cmd)
			if err != nil {
				return Response{}, err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return Response{}, errors.Wrap(err, "failed to read blob")
			}
			b, err := a.factory.SaveBlob(c, args[0], data, days, true)
			if err != nil {
				return Response{}, err
			}
			return Response{Asset: infoOf(b), Size: len(data)}, nil
		}),
	}
	addLifetimeFlag(cmd)
	return cmd
}

func boundsOf(img image.Image) *ImageBounds {
	b := img.Bounds()
	return &ImageBounds{Width: b.Dx(), Height: b.Dy()}
}

func (a *app) getCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Load the payload cached for URL",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(c *assetcache.Cache, cmd *cobra.Command, args []string) (Response, error) {
			url := args[0]
			refresh, _ := cmd.Flags().GetBool("refresh")
			outPath, _ := cmd.Flags().GetString("out")

			cached, ok := c.Get(url)
			if !ok {
				return Response{}, errors.Wrapf(asset.ErrNotFound, "%s is not cached", url)
			}

			resp := Response{}
			switch cached.(type) {
			case *assets.Text:
				text, err := assets.LoadText(c, url, refresh)
				if err != nil {
					return Response{}, err
				}
				resp.Text = text
			case *assets.Image:
				img, err := assets.LoadImage(c, url, refresh)
				if err != nil {
					return Response{}, err
				}
				resp.Bounds = boundsOf(img)
				if outPath != "" {
					var buf bytes.Buffer
					if err := png.Encode(&buf, img); err != nil {
						return Response{}, errors.Wrap(err, "failed to encode image")
					}
					if err := writeOutput(outPath, buf.Bytes()); err != nil {
						return Response{}, err
					}
					resp.Path = outPath
				}
			case *assets.Blob:
				data, err := assets.LoadBlob(c, url, refresh)
				if err != nil {
					return Response{}, err
				}
				resp.Size = len(data)
				if outPath != "" {
					if err := writeOutput(outPath, data); err != nil {
						return Response{}, err
					}
					resp.Path = outPath
				}
			default:
				return Response{}, errors.Newf("assets of kind %s cannot be loaded from the command line", cached.Kind())
			}

			if refresh {
				if err := c.Persist(); err != nil {
					return Response{}, err
				}
			}
			resp.Asset = infoOf(cached)
			return resp, nil
		}),
	}
	cmd.Flags().Bool("refresh", false, "restart the asset's lifetime")
	cmd.Flags().String("out", "", "write image or blob payloads to this file")
	return cmd
}

func writeOutput(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

func (a *app) rmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm URL",
		Short: "Remove the asset cached for URL",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(c *assetcache.Cache, cmd *cobra.Command, args []string) (Response, error) {
			if err := c.RemoveByURL(args[0]); err != nil {
				return Response{}, err
			}
			return Response{Removed: 1}, nil
		}),
	}
}

func (a *app) lsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List cached assets in insertion order",
		Args:  cobra.NoArgs,
		RunE: a.run(func(c *assetcache.Cache, cmd *cobra.Command, args []string) (Response, error) {
			infos := make([]AssetInfo, 0, c.Len())
			for _, x := range c.Assets() {
				infos = append(infos, describe(x))
			}
			return Response{Assets: infos}, nil
		}),
	}
}

func (a *app) sweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired assets",
		Long:  "Remove expired assets. Opening the cache already sweeps, so the count includes assets removed on open.",
		Args:  cobra.NoArgs,
		RunE: a.run(func(c *assetcache.Cache, cmd *cobra.Command, args []string) (Response, error) {
			removed := c.RemovedOnOpen() + c.RemoveExpired()
			return Response{Removed: removed}, nil
		}),
	}
}

func (a *app) purgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove every cached asset",
		Args:  cobra.NoArgs,
		RunE: a.run(func(c *assetcache.Cache, cmd *cobra.Command, args []string) (Response, error) {
			return Response{Removed: c.RemoveAll(nil)}, nil
		}),
	}
}
