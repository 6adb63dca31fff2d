package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/invoice-drafter/internal/audit"
	"github.com/joseph-ayodele/invoice-drafter/internal/export"
	"github.com/joseph-ayodele/invoice-drafter/internal/extract"
	"github.com/joseph-ayodele/invoice-drafter/internal/pipeline"
	"github.com/joseph-ayodele/invoice-drafter/internal/server"
)

var modeFlag = &cli.StringFlag{Name: "mode", Value: "full", Usage: "audit mode: fast or full"}

func draftCommand() *cli.Command {
	return &cli.Command{
		Name:      "draft",
		Usage:     "draft an invoice from a notes file (txt, md, csv, pdf, xlsx)",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			modeFlag,
			&cli.BoolFlag{Name: "remote", Usage: "upload the file and let the server extract it"},
			&cli.BoolFlag{Name: "local", Usage: "draft in-process against the completion service, no server needed"},
		},
		Action: func(c *cli.Context) error {
			path, err := requireArg(c, "FILE")
			if err != nil {
				return err
			}
			if c.Bool("remote") {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				return call(c, "DraftUpload", map[string]any{
					"name":    filepath.Base(path),
					"content": content,
					"mode":    c.String("mode"),
				})
			}
			text, err := extract.NewExtractor(extract.Config{}, nil).ExtractFile(c.Context, path)
			if err != nil {
				return err
			}
			if c.Bool("local") {
				pipe, err := localPipeline(slog.Default())
				if err != nil {
					return err
				}
				res, err := pipe.Draft(c.Context, pipeline.DraftRequest{SourceText: text, Mode: audit.Mode(c.String("mode"))})
				if err != nil {
					return err
				}
				return printJSON(res)
			}
			return call(c, "Draft", map[string]any{"sourceText": text, "mode": c.String("mode")})
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list saved invoices",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Usage: "include deleted invoices"},
		},
		Action: func(c *cli.Context) error {
			return call(c, "ListInvoices", map[string]any{"includeDeleted": c.Bool("all")})
		},
	}
}

func idCommand(name, usage, method string) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "INVOICE_ID",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "INVOICE_ID")
			if err != nil {
				return err
			}
			return call(c, method, map[string]any{"invoiceId": id})
		},
	}
}

func getCommand() *cli.Command {
	return idCommand("get", "show a saved invoice", "GetInvoice")
}

func deleteCommand() *cli.Command {
	return idCommand("delete", "soft-delete a saved invoice", "DeleteInvoice")
}

func restoreCommand() *cli.Command {
	return idCommand("restore", "restore a deleted invoice to its previous status", "RestoreInvoice")
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "set the status of a saved invoice (draft, sent, paid, deleted)",
		ArgsUsage: "INVOICE_ID STATUS",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("usage: status INVOICE_ID STATUS")
			}
			return call(c, "UpdateInvoiceStatus", map[string]any{
				"invoiceId": c.Args().Get(0),
				"status":    c.Args().Get(1),
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "render a saved invoice to PDF or XLSX",
		ArgsUsage: "INVOICE_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: export.FormatPDF, Usage: "pdf or xlsx"},
			&cli.StringFlag{Name: "out", Usage: "output path (defaults to the server-suggested file name)"},
		},
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "INVOICE_ID")
			if err != nil {
				return err
			}
			client, conn, err := dial(c)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			var f export.File
			if err := client.Call(c.Context, "ExportInvoice", map[string]any{"invoiceId": id, "format": c.String("format")}, &f); err != nil {
				return err
			}
			out := c.String("out")
			if out == "" {
				out = f.Name
			}
			if err := os.WriteFile(out, f.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Printf("wrote %s (%d bytes)\n", out, len(f.Data))
			if f.ArchiveKey != "" {
				fmt.Printf("archived as %s\n", f.ArchiveKey)
			}
			return nil
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "check the server's gRPC health",
		Action: func(c *cli.Context) error {
			_, conn, err := dial(c)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()
			resp, err := grpc_health_v1.NewHealthClient(conn).Check(c.Context, &grpc_health_v1.HealthCheckRequest{Service: server.ServiceName})
			if err != nil {
				return err
			}
			fmt.Println(resp.GetStatus().String())
			return nil
		},
	}
}
