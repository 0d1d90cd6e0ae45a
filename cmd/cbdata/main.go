package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/esseedoubleyou/goldmonitor/internal/config"
	"github.com/esseedoubleyou/goldmonitor/pkg/centralbank"
)

const dateLayout = "2006-01-02"

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	var (
		configPath = flag.String("f", "etc/goldmonitor.yaml", "the config file")
		doInit     = flag.Bool("init", false, "create the curated CSV if missing")
		sample     = flag.Bool("sample", false, "seed sample rows when initialising")
		show       = flag.Bool("show", false, "print curated entries and the derived signal")
		quarter    = flag.String("quarter", "", "quarter label to record, e.g. Q2_2025")
		tonnes     = flag.Float64("tonnes", 0, "net central-bank purchases in tonnes")
		source     = flag.String("source", "", "where the figure was transcribed from")
		validated  = flag.String("validated", "", "validation date as yyyy-mm-dd (defaults to today)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Warning: %v, using defaults\n", err)
		cfg = config.DefaultConfig()
	}
	cbCfg := cfg.CentralBankConfig()
	store := centralbank.NewStore(cbCfg.DataFile, centralbank.WithStaleAfter(cbCfg.StaleDays))

	switch {
	case *doInit:
		if err := store.Init(*sample); err != nil {
			fail("init %s: %v", store.Path(), err)
		}
		fmt.Printf("Curated store ready at %s\n", store.Path())
		if *sample {
			fmt.Println("Sample rows written, replace them with transcribed figures.")
		}
	case *quarter != "":
		entry := centralbank.Entry{Quarter: *quarter, Tonnes: *tonnes, Source: *source}
		if *validated != "" {
			ts, parseErr := time.Parse(dateLayout, *validated)
			if parseErr != nil {
				fail("parse -validated: %v", parseErr)
			}
			entry.ValidatedAt = ts
		}
		if err := store.Append(entry); err != nil {
			fail("record %s: %v", *quarter, err)
		}
		fmt.Printf("Recorded %s: %.1ft in %s\n", entry.Quarter, entry.Tonnes, store.Path())
	case *show:
		printEntries(store)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func printEntries(store *centralbank.Store) {
	entries, err := store.Entries()
	if errors.Is(err, centralbank.ErrNoData) {
		fmt.Printf("No curated data at %s, run -init first\n", store.Path())
		return
	}
	if err != nil {
		fail("read %s: %v", store.Path(), err)
	}

	fmt.Printf("Curated central-bank purchases (%s)\n", store.Path())
	for _, e := range entries {
		fmt.Printf("  %-8s %8.1ft  validated %s  %s\n",
			e.Quarter, e.Tonnes, e.ValidatedAt.Format(dateLayout), e.Source)
	}

	sig := store.Latest(time.Now())
	fmt.Println()
	fmt.Printf("Signal: %s", sig.Status)
	if sig.Quarter != "" {
		fmt.Printf(", %s %.1ft (%d days old)", sig.Quarter, sig.Tonnes, sig.DaysOld)
	}
	if sig.IsStale {
		fmt.Printf(", stale")
	}
	fmt.Println()
	if sig.Message != "" {
		fmt.Printf("Note: %s\n", sig.Message)
	}
}
