package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	_ "github.com/joho/godotenv/autoload"

	"github.com/skyban/go-skyban/database"
	"github.com/skyban/go-skyban/hypixel"
	"github.com/skyban/go-skyban/itemdata"
	"github.com/skyban/go-skyban/publisher"
	"github.com/skyban/go-skyban/skyban"
)

const (
	activeIndexName     = "auction/active.json"
	soldIndexName       = "auction/sold.json"
	activeTimestampName = "auction/active_timestamp"
)

var GlobalLogCallback skyban.LogCallbackFunc = log.Printf

var Commit = func() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}
	return ""
}()

var (
	Increment    float64
	ValueCeiling float64 = skyban.DefaultValueCeiling
	ComboFloor   float64 = skyban.DefaultComboFloor
)

func init() {
	Increment = envFloat("LBIN_INCREMENT", Increment)
	ValueCeiling = envFloat("LBIN_VALUE_CEILING", ValueCeiling)
	ComboFloor = envFloat("LBIN_COMBO_FLOOR", ComboFloor)
}

func envFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	num, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Println("Ignoring invalid", key, "value", value)
		return fallback
	}
	return num
}

// State shared by all passes of a run
type toolConfig struct {
	Datastore  string
	OutputPath string
	Format     string
	Floor      float64
	Publish    bool
	Summary    bool

	Options skyban.Options
	Client  *hypixel.Client
	DB      *gorm.DB
}

type modeOption struct {
	Enabled bool
	Run     func(ctx context.Context, cfg *toolConfig) error
}

var options = map[string]*modeOption{
	"active": {
		Run: runActive,
	},
	"sold": {
		Run: runSold,
	},
	"bazaar": {
		Run: runBazaar,
	},
}

// Active runs first so that the sold pass merges the freshest scan
var modeOrder = []string{"active", "sold", "bazaar"}

func runActive(ctx context.Context, cfg *toolConfig) error {
	index, err := loadIndex(cfg.Datastore, activeIndexName)
	if err != nil {
		return err
	}
	index.Upgrade(time.Now())

	since, err := loadTimestamp(cfg.Datastore, activeTimestampName)
	if err != nil {
		return err
	}

	feed := hypixel.NewActiveFeed(cfg.Client, since)
	feed.LogCallback = GlobalLogCallback
	listings, err := feed.Listings(ctx)
	if errors.Is(err, skyban.ErrSourceUnavailable) {
		log.Println("Active auctions unavailable, keeping the previous index:", err)
		return nil
	} else if err != nil {
		return err
	}
	log.Println("Found", len(listings), "new listings")

	index = refreshActive(index, listings, cfg.Options, time.Now())

	err = saveIndex(cfg.Datastore, activeIndexName, index)
	if err != nil {
		return err
	}
	err = saveTimestamp(cfg.Datastore, activeTimestampName, feed.Newest())
	if err != nil {
		return err
	}

	return cfg.finish(ctx, "active", index)
}

func runSold(ctx context.Context, cfg *toolConfig) error {
	index, err := loadIndex(cfg.Datastore, soldIndexName)
	if err != nil {
		return err
	}
	now := time.Now()
	index.Upgrade(now)

	auctions, err := cfg.Client.EndedAuctions(ctx)
	if errors.Is(err, skyban.ErrSourceUnavailable) {
		log.Println("Ended auctions unavailable, keeping the previous index:", err)
		return nil
	} else if err != nil {
		return err
	}

	store := skyban.NewStore(index, &cfg.Options)
	store.DecaySweep(now)

	agg := skyban.NewAggregator(store, itemdata.NewDecoder())
	agg.LogCallback = GlobalLogCallback
	index = agg.RunPass(hypixel.Listings(auctions))

	err = saveIndex(cfg.Datastore, soldIndexName, index)
	if err != nil {
		return err
	}

	// Published prices also account for what is currently listed
	active, err := loadIndex(cfg.Datastore, activeIndexName)
	if err != nil {
		return err
	}
	merged, count := mergeActive(index, active, cfg.Options, now)
	log.Println("Merged", count, "records from the active index")

	return cfg.finish(ctx, "sold", merged)
}

// Age the previous active snapshot out before folding in the new listings
func refreshActive(index skyban.PriceIndex, listings []skyban.ListingRecord, opts skyban.Options, now time.Time) skyban.PriceIndex {
	store := skyban.NewStore(index, &opts)
	store.DecaySweep(now)

	agg := skyban.NewAggregator(store, itemdata.NewDecoder())
	agg.LogCallback = GlobalLogCallback
	agg.Clock = func() time.Time {
		return now
	}
	return agg.RunPass(listings)
}

// Return a copy of sold with the live records of active merged in. Stale
// active records are dropped first, without inflating the others.
func mergeActive(sold, active skyban.PriceIndex, opts skyban.Options, now time.Time) (skyban.PriceIndex, int) {
	sweep := opts
	sweep.Increment = 0
	live := skyban.NewStore(active.Clone(), &sweep)
	live.DecaySweep(now)

	merged := skyban.NewStore(sold.Clone(), &opts)
	count := merged.MergeSnapshot(live.Index(), now)
	return merged.Index(), count
}

func runBazaar(ctx context.Context, cfg *toolConfig) error {
	bazaar, err := cfg.Client.Bazaar(ctx)
	if errors.Is(err, skyban.ErrSourceUnavailable) {
		log.Println("Bazaar unavailable:", err)
		return nil
	} else if err != nil {
		return err
	}
	log.Println("Found", len(bazaar), "bazaar products")

	if cfg.OutputPath != "" {
		writer, err := putData("lbin/bazaar.json", cfg.OutputPath)
		if err != nil {
			return err
		}
		err = json.NewEncoder(writer).Encode(bazaar)
		if err != nil {
			writer.Close()
			return err
		}
		err = writer.Close()
		if err != nil {
			return err
		}
	}

	if cfg.Publish {
		return publish(ctx, "BAZAAR_URL", bazaar)
	}
	return nil
}

// Handle the outputs of an auction pass
func (cfg *toolConfig) finish(ctx context.Context, name string, index skyban.PriceIndex) error {
	if cfg.Summary {
		log.Println(cases.Title(language.English).String(name), "index:", skyban.Summarize(index))
	}

	export := index.PruneForExport(cfg.Floor, ComboFloor)

	if cfg.OutputPath != "" {
		err := dumpExport(export, cfg.OutputPath, name, cfg.Format)
		if err != nil {
			return err
		}
	}

	if cfg.DB != nil {
		now := time.Now()
		err := database.SaveIndex(cfg.DB, name, index)
		if err != nil {
			return err
		}
		log.Println("saving to database took:", time.Since(now))
	}

	if cfg.Publish {
		return publish(ctx, "AUCTION_URL", export)
	}
	return nil
}

func publish(ctx context.Context, env string, items interface{}) error {
	link := os.Getenv(env)
	if link == "" {
		return fmt.Errorf("missing %s env var", env)
	}
	err := publisher.NewPublisher(link, os.Getenv("LBIN_KEY")).Send(ctx, items)
	if err != nil {
		return err
	}
	log.Println("Published to", env)
	return nil
}

func run() int {
	start := time.Now()

	for key, val := range options {
		flag.BoolVar(&val.Enabled, key, false, "Run the "+cases.Title(language.English).String(key)+" pass")
	}

	datastoreOpt := flag.String("datastore", "", "Path where the index snapshots are kept")
	outputPathOpt := flag.String("output-path", "", "Path where to dump the exported prices")
	fileFormatOpt := flag.String("format", "json", "File format of the output files (json/csv/ndjson/xlsx)")
	floorOpt := flag.Float64("floor", 0, "Drop exported prices below this value")

	publishOpt := flag.Bool("publish", false, "Send the results to AUCTION_URL and BAZAAR_URL")
	dbOpt := flag.Bool("db", false, "Store the indexes in the DATABASE_URL database")
	summaryOpt := flag.Bool("summary", false, "Log a summary of each index")
	versionOpt := flag.Bool("v", false, "Print version information")
	flag.Parse()

	log.Println("lbintool version", Commit)
	if *versionOpt {
		return 0
	}

	switch strings.Split(*fileFormatOpt, ".")[0] {
	case "json", "csv", "ndjson", "xlsx":
	default:
		log.Println("Invalid -format option, see -h for supported values")
		return 1
	}

	var enabled []string
	for _, name := range modeOrder {
		if options[name].Enabled {
			enabled = append(enabled, name)
		}
	}
	if len(enabled) == 0 {
		log.Println("No pass enabled, run with -h for a list of commands")
		return 1
	}

	if *datastoreOpt == "" {
		log.Println("Missing datastore argument")
		return 1
	}
	err := initializeBucket(*datastoreOpt)
	if err != nil {
		log.Println("cannot initialize datastore:", err)
		return 1
	}

	if *outputPathOpt != "" {
		u, err := url.Parse(*outputPathOpt)
		if err != nil {
			log.Println("cannot parse output-path", err)
			return 1
		}
		// Sanity check in case things are on different providers
		err = initializeBucket(u.String())
		if err != nil {
			log.Println("cannot initialize buckets:", err)
			return 1
		}
	}

	opts := skyban.DefaultOptions()
	opts.Increment = Increment
	opts.ValueCeiling = ValueCeiling

	cfg := &toolConfig{
		Datastore:  *datastoreOpt,
		OutputPath: *outputPathOpt,
		Format:     *fileFormatOpt,
		Floor:      *floorOpt,
		Publish:    *publishOpt,
		Summary:    *summaryOpt,
		Options:    opts,
		Client:     hypixel.NewClient(),
	}
	if baseURL := os.Getenv("HYPIXEL_API_URL"); baseURL != "" {
		cfg.Client.BaseURL = baseURL
	}

	if *dbOpt {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			log.Println("Missing DATABASE_URL env var")
			return 1
		}
		cfg.DB, err = database.Initialize(dsn)
		if err != nil {
			log.Println(err)
			return 1
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	for _, name := range enabled {
		now := time.Now()
		err = options[name].Run(ctx, cfg)
		if err != nil {
			log.Println("Something didn't work during the", name, "pass")
			log.Println(err)
			return 1
		}
		log.Println(name, "pass took:", time.Since(now))
	}

	log.Println("Completed in", time.Since(start))

	return 0
}

func main() {
	os.Exit(run())
}
