package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/config"
	"github.com/forPelevin/reelcut/internal/jobs"
	"github.com/forPelevin/reelcut/internal/pipeline"
	"github.com/forPelevin/reelcut/internal/server"
	"github.com/forPelevin/reelcut/internal/workspace"
)

func (a *app) serveCommand() *cobra.Command {
	var (
		bind    string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP job server",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("bind") {
				a.cfg.Server.Bind = bind
			}
			if cmd.Flags().Changed("workers") {
				if workers <= 0 {
					return usageError{fmt.Errorf("--workers must be > 0, got %d", workers)}
				}
				a.cfg.Server.Workers = workers
			}
			return server.Serve(cmd.Context(), a.cfg, a.usecase(), a.log)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent jobs (default from config)")
	return cmd
}

func (a *app) jobsCommand() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List server jobs",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.EnsureDirectories(); err != nil {
				return err
			}
			store, err := jobs.Open(a.cfg.DBPath())
			if err != nil {
				return err
			}
			defer store.Close()
			list, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				if list == nil {
					list = []jobs.Job{}
				}
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			fmt.Fprintln(a.stdout, jobsTable(list))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum jobs to list, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func jobsTable(list []jobs.Job) string {
	rows := make([][]string, 0, len(list))
	for _, j := range list {
		status := string(j.Status)
		if j.ErrorKind != "" {
			status += " (" + j.ErrorKind + ")"
		}
		outputs := ""
		if j.Manifest != nil {
			outputs = strconv.Itoa(len(j.Manifest.Artifacts))
		}
		rows = append(rows, []string{
			j.ID,
			j.Kind,
			status,
			strconv.Itoa(j.Percent) + "%",
			outputs,
			j.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return renderTable(
		[]string{"ID", "Kind", "Status", "Progress", "Outputs", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func (a *app) cleanCommand() *cobra.Command {
	var maxAge time.Duration
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove finished jobs and uploads past the retention window",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("max-age") {
				maxAge = time.Duration(a.cfg.Cleanup.RetentionHours) * time.Hour
			}
			if maxAge <= 0 {
				return usageError{fmt.Errorf("--max-age must be > 0")}
			}
			ws, err := workspace.New(a.cfg.Paths.Root)
			if err != nil {
				return err
			}
			store, err := jobs.Open(a.cfg.DBPath())
			if err != nil {
				return err
			}
			defer store.Close()
			res, err := pipeline.Sweep(cmd.Context(), store, ws, maxAge, time.Now(), a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "removed %d jobs and %d uploads\n", res.Jobs, res.Media)
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Remove entries older than this (default from config)")
	return cmd
}

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Configuration helpers",
		Annotations: map[string]string{"skip-config": "true"},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a commented sample configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if path, err = config.ExpandPath(args[0]); err != nil {
					return err
				}
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, path)
			return nil
		},
	})
	return cmd
}
