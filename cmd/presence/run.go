package main

import (
	"VideoPresence/database/postgres"
	authRepository "VideoPresence/internal/api/auth/repository"
	authService "VideoPresence/internal/api/auth/service"
	"VideoPresence/internal/attendance"
	"VideoPresence/pkg/log"
	"VideoPresence/pkg/video"
	websocketPkg "VideoPresence/pkg/websocket"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type runOptions struct {
	InputPath    string
	RosterPath   string
	DetectorURL  string
	NumEngines   int
	FrameTimeout time.Duration
	OutputPath   string
	UseUsersDB   bool
}

var runOpts runOptions

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one attendance session over a video or image",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd.Context(), runOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOpts.InputPath, "input", "i", "", "Path to a video or image")
	runCmd.Flags().StringVarP(&runOpts.RosterPath, "roster", "r", "", "Path to the roster JSON file")
	runCmd.Flags().StringVarP(&runOpts.DetectorURL, "detector", "d", os.Getenv("DETECTOR_WS_URL"), "Websocket URL of the detection server")
	runCmd.Flags().IntVarP(&runOpts.NumEngines, "engines", "e", 1, "Number of parallel detector calls")
	runCmd.Flags().DurationVarP(&runOpts.FrameTimeout, "timeout", "t", 10*time.Second, "Per-frame detection timeout")
	runCmd.Flags().StringVarP(&runOpts.OutputPath, "output", "o", "", "Also write the name to duration artifact to this file")
	runCmd.Flags().BoolVar(&runOpts.UseUsersDB, "users-db", false, "Merge contact data from the users table (POSTGRES_* env)")

	runCmd.MarkFlagRequired("input")
	runCmd.MarkFlagRequired("roster")
	rootCmd.AddCommand(runCmd)
}

func isImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

func openSource(ctx context.Context, path string) (attendance.FrameSource, attendance.Mode, error) {
	if isImage(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, attendance.ModeImage, fmt.Errorf("%w: %v", attendance.ErrSourceUnavailable, err)
		}
		src, err := video.NewImageSource(data)
		if err != nil {
			return nil, attendance.ModeImage, err
		}
		return src, attendance.ModeImage, nil
	}

	src, err := video.Open(ctx, path)
	if err != nil {
		return nil, attendance.ModeVideo, err
	}
	return src, attendance.ModeVideo, nil
}

func runSession(ctx context.Context, opts runOptions, stdout, stderr io.Writer) error {
	if opts.DetectorURL == "" {
		return fmt.Errorf("--detector is required when DETECTOR_WS_URL is unset")
	}
	if opts.NumEngines < 1 {
		opts.NumEngines = 1
	}

	logger := log.NewLogger()

	roster, err := attendance.LoadRoster(opts.RosterPath)
	if err != nil {
		return err
	}

	var lookup attendance.MetadataLookup
	if opts.UseUsersDB {
		db, err := postgres.New()
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		lookup = authService.NewMetadataLookup(authRepository.New(db, logger))
	}

	detector := websocketPkg.NewDetectorClient(opts.DetectorURL, opts.NumEngines, logger)
	defer detector.CloseConnections()

	src, mode, err := openSource(ctx, opts.InputPath)
	if err != nil {
		return err
	}

	total := -1
	if mode == attendance.ModeImage {
		total = 1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Scanning "+filepath.Base(opts.InputPath)),
		progressbar.OptionSetWriter(stderr),
		progressbar.OptionShowCount(),
	)

	session, err := attendance.NewSession(attendance.SessionConfig{
		ID:           uuid.NewString(),
		Mode:         mode,
		Roster:       roster,
		Detector:     detector,
		Lookup:       lookup,
		FrameTimeout: opts.FrameTimeout,
		Workers:      opts.NumEngines,
		Logger:       logger,
		OnFrame: func(int, attendance.DetectionResult, error) {
			_ = bar.Add(1)
		},
	})
	if err != nil {
		return err
	}

	res, err := session.Run(ctx, src)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "\nSession %s: %d frames read, %d failed, %d of %d present\n",
		res.SessionID, res.FramesRead, res.FramesFailed, res.PresentCount(), len(res.Records))

	if opts.OutputPath != "" {
		body, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(res.DurationMap(), "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.OutputPath, body, 0o644); err != nil {
			return err
		}
	}

	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Records)
}
