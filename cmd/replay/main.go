package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/racerstats/laptimer/pkg/catalog"
	"github.com/racerstats/laptimer/pkg/config"
	"github.com/racerstats/laptimer/pkg/datastructure"
	"github.com/racerstats/laptimer/pkg/live"
	"github.com/racerstats/laptimer/pkg/location"
	"github.com/racerstats/laptimer/pkg/logger"
	"github.com/racerstats/laptimer/pkg/recorder"
	"github.com/racerstats/laptimer/pkg/spatialindex"
	"github.com/racerstats/laptimer/pkg/storage"
	"github.com/racerstats/laptimer/pkg/storage/memory"
	"github.com/racerstats/laptimer/pkg/storage/sqlite"
	"github.com/racerstats/laptimer/pkg/timing"
	"github.com/racerstats/laptimer/pkg/util"
	"go.uber.org/zap"
)

var (
	gpxPath   = flag.String("gpx", "", "GPX file to replay (required)")
	configDir = flag.String("config", "./data", "directory holding an optional config.yaml")
	trackID   = flag.String("track", "", "time against the start line of this stored track")
	saveName  = flag.String("save", "", "store the replayed trace as a recording with this name")
	dbPath    = flag.String("db", "", "sqlite database, defaults to DB_PATH; empty store in memory when neither -track nor -save is set")
)

func main() {
	flag.Parse()
	if *gpxPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(context.Background(), log); err != nil {
		log.Fatal("replay failed", zap.Error(err))
	}
}

func run(ctx context.Context, log *zap.Logger) error {
	cfg, err := config.Load(*configDir)
	if err != nil {
		return err
	}

	f, err := os.Open(*gpxPath)
	if err != nil {
		return err
	}
	defer f.Close()
	fixes, err := location.ReadGPX(f)
	if err != nil {
		return err
	}
	log.Info("gpx loaded", zap.String("file", *gpxPath), zap.Int("fixes", len(fixes)))

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	catalogConfig, err := cfg.Catalog()
	if err != nil {
		return err
	}
	svc := catalog.NewService(log, repo, spatialindex.NewRtree(), catalogConfig)

	details := catalog.TrackDetails{}
	if *trackID != "" {
		details, err = svc.TrackDetails(ctx, *trackID)
		if err != nil {
			return err
		}
		fmt.Printf("timing against %q (%.0f m)\n", details.Track.Name, details.Track.LengthM)
	}

	rec := recorder.New()
	rec.Start()
	session := live.NewSession(log, svc.DetectorFor(details), timing.NewEngine(cfg.Timing())).WithRecorder(rec)

	for _, fix := range fixes {
		upd, ok := session.Process(fix)
		if !ok || upd.Completed == nil {
			continue
		}
		lap := upd.Completed
		marker := ""
		switch {
		case !lap.Valid:
			marker = " (discarded)"
		case lap.IsBest:
			marker = " *best*"
		}
		fmt.Printf("lap %2d  %s  %6.0f m%s\n", lap.Lap.Number, util.FormatLapTime(lap.Duration()),
			lap.Lap.TotalDistance, marker)
	}

	sum := session.Summary()
	fmt.Printf("laps %d (valid %d)  best %s  vmax %.1f km/h\n",
		sum.LapCount, sum.ValidLaps, util.FormatLapTime(sum.BestLapMs), sum.VmaxKmh)
	if best, ok := session.BestLap(); ok {
		fmt.Printf("best lap %d over %.0f m, %d samples\n", best.Number, best.TotalDistance, len(best.Samples))
	}

	if *saveName == "" {
		return nil
	}
	points := rec.Stop()
	if len(points) == 0 {
		return fmt.Errorf("no points recorded")
	}
	start := datastructure.NewGate(points[0], points[0])
	if *trackID != "" {
		start = details.Line.Start
	}
	res, err := svc.SaveRecording(ctx, *saveName, points, start, nil)
	if err != nil {
		return err
	}
	if res.Matched {
		fmt.Printf("merged into track %s (similarity %.3f)\n", res.TrackID, res.Similarity)
	} else {
		fmt.Printf("created track %s (%.0f m)\n", res.TrackID, res.LengthM)
	}
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config) (storage.Repository, func(), error) {
	path := *dbPath
	if path == "" && *trackID == "" && *saveName == "" {
		return memory.NewStore(), func() {}, nil
	}
	if path == "" {
		path = cfg.DBPath
	}

	db, err := sqlite.NewDB(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return sqlite.NewTrackStore(db), func() { db.Close() }, nil
}
