// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/poiesic/codex/core"
	"github.com/poiesic/codex/extract"
	"github.com/poiesic/codex/ingestion"
	"github.com/poiesic/codex/rag"
	"github.com/poiesic/codex/search"
	"github.com/urfave/cli/v2"
)

func documentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "category", Usage: "Document category", Value: ingestion.DefaultCategory},
		&cli.StringFlag{Name: "jurisdiction", Usage: "Document jurisdiction", Value: ingestion.DefaultJurisdiction},
		&cli.IntFlag{Name: "year", Usage: "Year of enactment (defaults to the current year)"},
		&cli.StringFlag{Name: "description", Usage: "Short document description"},
	}
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Run the HTTP API",
			Action: serveCommand,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "addr",
					Usage:   "Listen address",
					Value:   ":8000",
					EnvVars: []string{"CODEX_ADDR"},
				},
				&cli.StringFlag{
					Name:    "cors-origin",
					Usage:   "Allowed CORS origin",
					Value:   "*",
					EnvVars: []string{"CORS_ORIGIN"},
				},
				&cli.DurationFlag{
					Name:  "shutdown-timeout",
					Usage: "Grace period for in-flight requests on shutdown",
					Value: 10 * time.Second,
				},
			},
		},
		{
			Name:      "ingest",
			Usage:     "Ingest a single PDF or text file",
			ArgsUsage: "<file>",
			Action:    ingestCommand,
			Flags: append([]cli.Flag{
				&cli.StringFlag{Name: "title", Usage: "Document title (defaults to the file name)"},
			}, documentFlags()...),
		},
		{
			Name:      "import",
			Usage:     "Import every supported file under a directory",
			ArgsUsage: "<dir>",
			Action:    importCommand,
			Flags: append([]cli.Flag{
				&cli.IntFlag{
					Name:  "workers",
					Usage: "Number of files processed concurrently",
					Value: ingestion.DefaultImportWorkers,
				},
			}, documentFlags()...),
		},
		{
			Name:      "search",
			Usage:     "Search document sections",
			ArgsUsage: "<query>",
			Action:    searchCommand,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Search type (text, vector, hybrid)", Value: string(core.ModeHybrid)},
				&cli.StringFlag{Name: "category", Usage: "Restrict to a category"},
				&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of results", Value: search.DefaultLimit},
			},
		},
		{
			Name:      "ask",
			Usage:     "Answer a question from the indexed documents",
			ArgsUsage: "<question>",
			Action:    askCommand,
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "max-context", Usage: "Context budget in characters", Value: rag.DefaultMaxContext},
				&cli.BoolFlag{Name: "detailed", Usage: "Prefix each passage with its citation"},
			},
		},
		{
			Name:      "delete",
			Usage:     "Delete a document with its sections and vectors",
			ArgsUsage: "<document-id>",
			Action:    deleteCommand,
		},
		{
			Name:   "stats",
			Usage:  "Print collection counts",
			Action: statsCommand,
		},
	}
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	server, err := sys.NewAPIServer(c.String("cors-origin"))
	if err != nil {
		return err
	}

	addr := c.String("addr")
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api server starting", "addr", addr, "storage", sys.Store.Kind(), "ai_mode", sys.AIMode)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), c.Duration("shutdown-timeout"))
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func requestDefaults(c *cli.Context) ingestion.Request {
	return ingestion.Request{
		Category:     c.String("category"),
		Jurisdiction: c.String("jurisdiction"),
		Year:         c.Int("year"),
		Description:  c.String("description"),
	}
}

func singleArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one %s argument", name)
	}
	return c.Args().First(), nil
}

func ingestCommand(c *cli.Context) error {
	path, err := singleArg(c, "file")
	if err != nil {
		return err
	}

	text, err := extract.New().ExtractFile(c.Context, path)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", path, err)
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	req := requestDefaults(c)
	req.Title = c.String("title")
	if req.Title == "" {
		req.Title = extract.TitleFromPath(path)
	}
	req.Text = text
	req.SourceName = filepath.Base(path)

	res, err := sys.Pipeline.Ingest(c.Context, req)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Ingested %q as %s (%d sections)\n", res.Document.Title, res.Document.ID, res.Sections)
	return nil
}

func importCommand(c *cli.Context) error {
	root, err := singleArg(c, "directory")
	if err != nil {
		return err
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	importer, err := sys.NewImporter(
		ingestion.WithWorkers(c.Int("workers")),
		ingestion.WithProgress(c.App.ErrWriter),
	)
	if err != nil {
		return err
	}

	summary, err := importer.ImportDir(c.Context, root, requestDefaults(c))
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Imported: %d  Skipped: %d  Failed: %d  Sections: %d\n",
		summary.Imported, summary.Skipped, len(summary.Failed), summary.Sections)
	paths := make([]string, 0, len(summary.Failed))
	for path := range summary.Failed {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		fmt.Fprintf(c.App.Writer, "  %s: %v\n", path, summary.Failed[path])
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	text, err := singleArg(c, "query")
	if err != nil {
		return err
	}
	if err := core.ValidateLimit(c.Int("limit")); err != nil {
		return err
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	resp, err := sys.Retriever.Search(c.Context, search.Query{
		Text:     text,
		Mode:     core.SearchMode(c.String("type")),
		Category: c.String("category"),
		Limit:    c.Int("limit"),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%d results for %q\n", resp.Count(), resp.Query)
	for i, res := range resp.Results {
		fmt.Fprintf(c.App.Writer, "\n%d. %s, %s [%s %.2f]\n   %s\n",
			i+1, res.DocumentTitle, res.Label, res.Mode, res.Score, res.Excerpt)
	}
	return nil
}

func askCommand(c *cli.Context) error {
	question, err := singleArg(c, "question")
	if err != nil {
		return err
	}
	if err := core.ValidateContextLength(c.Int("max-context")); err != nil {
		return err
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	resp, err := sys.Synthesizer.Ask(c.Context, rag.AskRequest{
		Question:   question,
		Detailed:   c.Bool("detailed"),
		MaxContext: c.Int("max-context"),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s\n\nConfidence: %.2f\n", resp.Answer, resp.Confidence)
	for _, src := range resp.Sources {
		fmt.Fprintf(c.App.Writer, "  - %s, %s\n", src.DocumentTitle, src.Label)
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	id, err := singleArg(c, "document-id")
	if err != nil {
		return err
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	if err := sys.Store.DeleteDocument(c.Context, core.ID(id)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	fmt.Fprintf(c.App.Writer, "Deleted %s\n", id)
	return nil
}

func statsCommand(c *cli.Context) error {
	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	stats, err := sys.Store.Stats(c.Context)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Storage:    %s (%s)\n", sys.Store.Kind(), sys.Database)
	fmt.Fprintf(c.App.Writer, "AI mode:    %s\n", sys.AIMode)
	fmt.Fprintf(c.App.Writer, "Documents:  %d\n", stats.Documents)
	fmt.Fprintf(c.App.Writer, "Sections:   %d\n", stats.Sections)
	fmt.Fprintf(c.App.Writer, "Vectors:    %d\n", stats.Vectors)
	fmt.Fprintf(c.App.Writer, "Queries:    %d (%d vector)\n", stats.Queries, stats.AIQueries)
	return nil
}
