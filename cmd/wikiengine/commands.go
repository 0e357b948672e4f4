package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/wikiengine"
	"github.com/eringen/wikiengine/pages"
	"github.com/eringen/wikiengine/storage"
)

// withPages opens the configured page store for the length of fn.
func (c *cli) withPages(cmd *cobra.Command, fn func(ctx context.Context, h *pages.Handler) error) error {
	h, err := wikiengine.OpenPages(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("open pages: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return errors.Join(fn(ctx, h), h.Close())
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the wiki over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := wikiengine.New(c.cfg, wikiengine.WithLogger(c.log))
			if err := app.Init(); err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				c.log.WithField("addr", app.Config.Addr).Info("starting wiki server")
				errc <- app.Echo.Start(app.Config.Addr)
			}()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			c.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return app.Echo.Shutdown(shutdownCtx)
		},
	}
}

func newGetCmd(c *cli) *cobra.Command {
	var recycled bool
	cmd := &cobra.Command{
		Use:   "get <slug>",
		Short: "Print a page, following the default and plugin fallbacks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if recycled {
				key = storage.RecycleKey(key)
			}
			return c.withPages(cmd, func(ctx context.Context, h *pages.Handler) error {
				page, err := h.Get(ctx, key)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), page)
			})
		},
	}
	cmd.Flags().BoolVar(&recycled, "recycled", false, "read the page from the recycler")
	return cmd
}

func newPutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "put <slug> [file]",
		Short: "Store a page document read from a file or stdin",
		Long: `Store a page document under slug. The document is read from file, or
from stdin when file is omitted or "-". The slug is normalized first.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := pages.AsSlug(args[0])
			if slug == "" {
				return fmt.Errorf("invalid slug %q", args[0])
			}
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			data, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read page: %w", err)
			}
			page, err := pages.ParsePage(data)
			if err != nil {
				return fmt.Errorf("invalid page: %w", err)
			}
			return c.withPages(cmd, func(ctx context.Context, h *pages.Handler) error {
				if err := h.Put(ctx, slug, page); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), slug)
				return nil
			})
		},
	}
}

func newDeleteCmd(c *cli) *cobra.Command {
	var recycled bool
	cmd := &cobra.Command{
		Use:   "delete <slug>",
		Short: "Move a page to the recycler, or purge it with --recycled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if recycled {
				key = storage.RecycleKey(key)
			}
			return c.withPages(cmd, func(ctx context.Context, h *pages.Handler) error {
				return h.Delete(ctx, key)
			})
		},
	}
	cmd.Flags().BoolVar(&recycled, "recycled", false, "permanently remove the recycled copy")
	return cmd
}

func newRecycleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "recycle <slug>",
		Short: "Copy a page into the recycler, keeping the original",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withPages(cmd, func(ctx context.Context, h *pages.Handler) error {
				return h.Recycle(ctx, args[0])
			})
		},
	}
}

func newSlugsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "slugs",
		Short: "List the slugs in the page store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withPages(cmd, func(ctx context.Context, h *pages.Handler) error {
				slugs, err := h.Slugs(ctx)
				if err != nil {
					return err
				}
				for _, s := range slugs {
					fmt.Fprintln(cmd.OutOrStdout(), s)
				}
				return nil
			})
		},
	}
}

func newSitemapCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sitemap",
		Short: "Print the sitemap as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withPages(cmd, func(ctx context.Context, h *pages.Handler) error {
				entries, err := h.Pages(ctx)
				if err != nil {
					return err
				}
				if entries == nil {
					entries = []pages.SitemapEntry{}
				}
				return writeJSON(cmd.OutOrStdout(), entries)
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the wikiengine version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wikiengine %s\n", version)
		},
	}
}
