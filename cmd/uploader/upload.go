package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/upload"
	"github.com/input-output-hk/catalyst-forge-libs/upload/payload"
	"github.com/input-output-hk/catalyst-forge-libs/upload/presign"
	"github.com/input-output-hk/catalyst-forge-libs/upload/transport/cloudinary"
	"github.com/input-output-hk/catalyst-forge-libs/upload/transport/minio"
	"github.com/input-output-hk/catalyst-forge-libs/upload/transport/s3"
	"github.com/input-output-hk/catalyst-forge-libs/upload/uploadtypes"
)

func newUploadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload one or more files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			transport, err := buildTransport(ctx, a)
			if err != nil {
				return err
			}
			return runUpload(ctx, a, transport, osfs.New("/"), args, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("backend", "s3", "storage backend (s3, minio, cloudinary)")
	flags.String("folder", "", "destination folder")
	flags.Int("concurrency", upload.DefaultConcurrency, "uploads running at once")
	flags.Int("max-retries", upload.DefaultMaxRetries, "retries per file after a failed attempt")
	flags.Duration("base-delay", upload.DefaultBaseDelay, "wait before the first retry")
	flags.String("presign-url", "", "presign server base URL for the s3 backend")
	_ = a.v.BindPFlag("upload.backend", flags.Lookup("backend"))
	_ = a.v.BindPFlag("upload.folder", flags.Lookup("folder"))
	_ = a.v.BindPFlag("upload.concurrency", flags.Lookup("concurrency"))
	_ = a.v.BindPFlag("upload.max_retries", flags.Lookup("max-retries"))
	_ = a.v.BindPFlag("upload.base_delay", flags.Lookup("base-delay"))
	_ = a.v.BindPFlag("upload.presign_url", flags.Lookup("presign-url"))

	return cmd
}

func buildTransport(ctx context.Context, a *app) (uploadtypes.Transport, error) {
	cfg := a.cfg
	switch cfg.Upload.Backend {
	case "s3":
		var p presign.Presigner
		if cfg.Upload.PresignURL != "" {
			p = presign.NewClient(cfg.Upload.PresignURL)
		} else {
			svc, err := presign.NewServiceFromConfig(ctx, cfg.S3, presign.WithLogger(a.logger))
			if err != nil {
				return nil, err
			}
			p = svc
		}
		return s3.New(p, s3.WithPublicURL(cfg.S3.PublicURL), s3.WithLogger(a.logger)), nil
	case "minio":
		return minio.NewFromConfig(cfg.MinIO, minio.WithLogger(a.logger))
	case "cloudinary":
		return cloudinary.New(cfg.Cloudinary, cloudinary.WithLogger(a.logger))
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Upload.Backend)
	}
}

func runUpload(
	ctx context.Context,
	a *app,
	transport uploadtypes.Transport,
	fs billy.Filesystem,
	files []string,
	out io.Writer,
) error {
	m, err := upload.New(transport,
		upload.WithConcurrency(a.cfg.Upload.Concurrency),
		upload.WithDefaultMaxRetries(a.cfg.Upload.MaxRetries),
		upload.WithDefaultBaseDelay(a.cfg.Upload.BaseDelay),
		upload.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	defer m.Close()

	tasks := make([]*upload.Task, 0, len(files))
	for _, name := range files {
		path, err := filepath.Abs(name)
		if err != nil {
			return err
		}
		p, err := payload.FromFile(fs, path)
		if err != nil {
			return err
		}
		task, err := m.Add(&uploadtypes.Intent{File: p, Folder: a.cfg.Upload.Folder})
		if err != nil {
			return err
		}
		tasks = append(tasks, task)
	}

	var failed []string
	results := make([]uploadtypes.State, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		g.Go(func() error {
			state, err := task.Wait(gctx)
			results[i] = state
			if err != nil && gctx.Err() != nil {
				task.Cancel()
				results[i] = task.State()
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, state := range results {
		name := tasks[i].Intent().Name()
		switch state.Status {
		case uploadtypes.StatusSuccess:
			fmt.Fprintf(out, "%s %s -> %s\n", color.GreenString("ok"), name, state.Response.URL)
		case uploadtypes.StatusCancelled:
			fmt.Fprintf(out, "%s %s\n", color.YellowString("cancelled"), name)
			failed = append(failed, name)
		default:
			fmt.Fprintf(out, "%s %s: %s\n", color.RedString("failed"), name, state.Error)
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d uploads did not succeed", len(failed), len(tasks))
	}
	return nil
}
