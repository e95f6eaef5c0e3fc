package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/camden-git/photoqueue/config"
	"github.com/camden-git/photoqueue/database"
	"github.com/camden-git/photoqueue/media"
	"github.com/camden-git/photoqueue/pipeline"
	"github.com/camden-git/photoqueue/remote"
	"github.com/camden-git/photoqueue/vision"
)

func newIngestCommand(cfg *config.Config) *cobra.Command {
	var req pipeline.IngestRequest

	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Move new images into the originals tree and queue them for review",
		Long:  "Ingest the given files, or every image in INCOMING_DIR when none are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunLock(cfg.LockPath, func() error {
				a, err := openApp(*cfg, cfg.ValidateForIngest, true)
				if err != nil {
					return err
				}
				defer a.Close()

				req.Files = args
				if len(req.Files) == 0 {
					req.Files, err = listIncoming(cfg.IncomingDir)
					if err != nil {
						return err
					}
				}
				if len(req.Files) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No images to ingest")
					return nil
				}

				ingestor := pipeline.NewIngestor(a.repo, a.files, a.folders)
				ingestor.Locations = a.locations
				summary, results := ingestor.Ingest(req)
				printFailures(cmd, results)
				fmt.Fprintln(cmd.OutOrStdout(), summary.String())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Subject, "subject", "", "Subject of the shoot")
	cmd.Flags().StringVar(&req.Location, "location", "", "Where the images were taken")
	cmd.Flags().StringVar(&req.Folder, "folder", "", "Display name of the destination folder")
	_ = cmd.MarkFlagRequired("folder")
	return cmd
}

func newScoreCommand(cfg *config.Config) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute quality metrics and QR for every unscored record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunLock(cfg.LockPath, func() error {
				a, err := openApp(*cfg, cfg.ValidateForScoring, false)
				if err != nil {
					return err
				}
				defer a.Close()

				model, err := vision.NewAestheticModel(cfg.AestheticModelPath)
				if err != nil {
					return &config.ConfigurationError{Stage: "score", Keys: []string{"AESTHETIC_MODEL_PATH"}, Err: err}
				}
				defer model.Close()

				stage := pipeline.NewScoreStage(a.repo, vision.NewExtractor(model))
				var bar *progressbar.ProgressBar
				if !quiet {
					stage.OnProgress = func(done, total int) {
						if bar == nil {
							bar = progressbar.Default(int64(total), "scoring")
						}
						_ = bar.Set(done)
					}
				}

				summary, results, err := stage.Run()
				if bar != nil {
					_ = bar.Finish()
				}
				if err != nil {
					return err
				}
				printFailures(cmd, results)
				fmt.Fprintln(cmd.OutOrStdout(), summary.String())
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Disable the progress bar")
	return cmd
}

func newUploadCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "upload",
		Short: "Replicate approved and published records to the remote catalog and file store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunLock(cfg.LockPath, func() error {
				a, err := openApp(*cfg, cfg.ValidateForUpload, true)
				if err != nil {
					return err
				}
				defer a.Close()

				catalog, err := remote.OpenCatalog(cfg.RemoteCatalogDSN, cfg.RemoteCatalogTable)
				if err != nil {
					return err
				}
				defer catalog.Close()
				if err := catalog.EnsureSchema(); err != nil {
					return err
				}

				fileStore, err := remote.OpenFileStore(*cfg)
				if err != nil {
					return err
				}
				defer fileStore.Close()

				mirrorDB, err := database.InitMirrorDB(cfg.MirrorDatabasePath)
				if err != nil {
					return err
				}
				defer mirrorDB.Close()

				uploader := pipeline.NewUploader(a.repo, catalog, fileStore, database.NewMirrorStore(mirrorDB), a.files, a.folders)
				uploader.RemoteBase = cfg.RemoteBasePath
				uploader.ErrorLog = cfg.UploadErrorLog

				summary, results, err := uploader.Run()
				if err != nil {
					return err
				}
				printFailures(cmd, results)
				fmt.Fprintln(cmd.OutOrStdout(), summary.String())
				return nil
			})
		},
	}
}

func newCleanupCommand(cfg *config.Config) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove uploaded records from the review queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunLock(cfg.LockPath, func() error {
				a, err := openApp(*cfg, nil, false)
				if err != nil {
					return err
				}
				defer a.Close()

				cleanup := pipeline.NewCleanup(a.repo)
				var n int64
				if all {
					n, err = cleanup.ClearQueue()
				} else {
					n, err = cleanup.PurgeUploaded()
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d record(s)\n", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Delete every record regardless of status")
	return cmd
}

// listIncoming returns the raster images directly inside dir, sorted by name.
func listIncoming(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read incoming directory %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !media.IsRasterImage(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	log.Printf("Found %d image(s) in %s", len(files), dir)
	return files, nil
}

func printFailures(cmd *cobra.Command, results []pipeline.Result) {
	for _, res := range results {
		if res.OK() {
			continue
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "FAILED %s (id %d): %v\n", res.FileName, res.ID, res.Err)
	}
}
