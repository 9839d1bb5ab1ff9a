package main

import (
	"context"
	"errors"
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/terolaakso/sepelinpotkija-sub000/app/train-monitor/monitor"
	"github.com/terolaakso/sepelinpotkija-sub000/business/timetable"
	"github.com/terolaakso/sepelinpotkija-sub000/foundation/database"
	"github.com/terolaakso/sepelinpotkija-sub000/foundation/httpclient"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "TRAIN_MONITOR : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	// .env is optional, the environment and command line are enough
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			Enabled    bool   `conf:"default:false"`
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
			Record     bool   `conf:"default:true"`
		}
		NATS struct {
			Url             string `conf:"default:nats://localhost:4222"`
			Enabled         bool   `conf:"default:true"`
			LocationSubject string `conf:"default:train-locations"`
			ResultsSubject  string `conf:"default:train-timelines"`
		}
		Feed struct {
			TrainsUrl              string        `conf:"default:https://rata.digitraffic.fi/api/v1/live-trains"`
			LocationsUrl           string        `conf:"help:optional gtfs-realtime vehicle positions url"`
			PollSeconds            int           `conf:"default:60"`
			LocationPollSeconds    int           `conf:"default:10"`
			MetadataRefreshSeconds int           `conf:"default:300"`
			ExpireTrainSeconds     int           `conf:"default:7200"`
			RequestTimeout         time.Duration `conf:"default:15s"`
			MaxRetries             uint64        `conf:"default:4"`
		}
		Policy struct {
			DurationTolerance    float64       `conf:"default:0.5"`
			MinimumDwell         time.Duration `conf:"default:60s"`
			AtStationDistanceKm  float64       `conf:"default:1"`
			MaxSegmentDistanceKm float64       `conf:"default:10"`
			MaxLocationAge       time.Duration `conf:"default:60s"`
		}
		Web struct {
			Port int `conf:"default:8080"`
		}
		Metadata struct {
			File string `conf:"help:yaml station and cause category snapshot used instead of database"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Reconcile live train timetables, project train locations and attribute delays"
	const prefix = "TRAIN_MONITOR"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			printUsage(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	// =========================================================================
	// Start Database

	var db *sqlx.DB
	if cfg.DB.Enabled {
		log.Println("main: Initializing database support")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err = database.Open(ctx, database.Config{
			User:       cfg.DB.User,
			Password:   cfg.DB.Password,
			Host:       cfg.DB.Host,
			Name:       cfg.DB.Name,
			DisableTLS: cfg.DB.DisableTLS,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("connecting to db: %w", err)
		}
		defer func() {
			log.Printf("main: Database Stopping : %s", cfg.DB.Host)
			err = db.Close()
			if err != nil {
				log.Printf("main: error closing database: %v", err)
			}
		}()
	}

	if cfg.Args.Num(0) == "import-metadata" {
		if db == nil {
			return fmt.Errorf("import-metadata requires database, set --db-enabled")
		}
		path := cfg.Args.Num(1)
		if path == "" {
			path = cfg.Metadata.File
		}
		return monitor.ImportMetadataFile(log, db, path)
	}

	// =========================================================================
	// Start NATS

	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		log.Printf("main: Connecting to NATS\n")
		natsConn, err = nats.Connect(cfg.NATS.Url)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer func() {
			log.Printf("main: closing NATS connection\n")
			natsConn.Close()
		}()
	}

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	httpConfig := httpclient.DefaultConfig()
	httpConfig.Timeout = cfg.Feed.RequestTimeout
	httpConfig.MaxRetries = cfg.Feed.MaxRetries

	return monitor.StartServices(log, db, natsConn, monitor.Config{
		Policy: timetable.Policy{
			DurationTolerance:    cfg.Policy.DurationTolerance,
			MinimumDwell:         cfg.Policy.MinimumDwell,
			AtStationDistanceKm:  cfg.Policy.AtStationDistanceKm,
			MaxSegmentDistanceKm: cfg.Policy.MaxSegmentDistanceKm,
			MaxLocationAge:       cfg.Policy.MaxLocationAge,
		},
		Http:                   httpConfig,
		TrainsUrl:              cfg.Feed.TrainsUrl,
		LocationsUrl:           cfg.Feed.LocationsUrl,
		PollSeconds:            cfg.Feed.PollSeconds,
		LocationPollSeconds:    cfg.Feed.LocationPollSeconds,
		MetadataRefreshSeconds: cfg.Feed.MetadataRefreshSeconds,
		MetadataFile:           cfg.Metadata.File,
		ExpireTrainSeconds:     cfg.Feed.ExpireTrainSeconds,
		LocationSubject:        cfg.NATS.LocationSubject,
		ResultsSubject:         cfg.NATS.ResultsSubject,
		RecordToDatabase:       cfg.DB.Record,
		HttpPort:               cfg.Web.Port,
	}, shutdown)
}

func printUsage(confUsage string) {
	fmt.Println(confUsage)
}
