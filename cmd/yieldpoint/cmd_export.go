package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/talgya/yieldpoint/internal/export"
	"github.com/talgya/yieldpoint/internal/format"
)

func newExportCmd(load loadFunc) *cobra.Command {
	var (
		cf      curveFlags
		outPath string
		fmtName string
		dbPath  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the curve to CSV or XLSX, optionally recording it in SQLite",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cf.apply(cmd, &cfg); err != nil {
				return err
			}

			// Format comes from --format, else the output extension, else CSV.
			name := fmtName
			if name == "" && outPath != "" {
				name = filepath.Ext(outPath)
			}
			f := export.CSV
			if name != "" {
				if f, err = export.ParseFormat(name); err != nil {
					return err
				}
			}

			m, curve, err := generate(cfg)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := export.Write(&buf, f, m, curve); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath == "" {
				if f != export.CSV {
					return fmt.Errorf("%s output needs --out", f)
				}
				_, err := buf.WriteTo(out)
				return err
			}
			if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(out, "wrote %s (%s, %s samples)\n", outPath, format.Bytes(int64(buf.Len())), format.Count(len(curve)))

			if dbPath == "" {
				dbPath = cfg.ExportDB
			}
			if dbPath != "" {
				store, err := export.OpenStore(dbPath)
				if err != nil {
					return err
				}
				defer store.Close()
				run, err := store.SaveRun(cmd.Context(), m, cfg.Resolution, cfg.Overshoot, curve)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "recorded run %s in %s\n", run.ID, dbPath)
			}
			return nil
		},
	}
	cf.register(cmd)
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default stdout, CSV only)")
	cmd.Flags().StringVar(&fmtName, "format", "", "csv or xlsx (default from --out extension)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to record the run in (default $YIELDPOINT_EXPORT_DB)")
	return cmd
}
