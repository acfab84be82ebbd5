// seed_state injects a usage record into a session-times state file for
// smoke testing. It is a standalone tool — not part of the module's test
// suite.
//
// Usage:
//
//	go run scripts/seed_state/main.go --state /var/lib/session_times --user ted --used 2h
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/developingchet/session-timelimit/internal/statefile"
	"github.com/developingchet/session-timelimit/timespan"
)

func main() {
	statePath := flag.String("state", "", "Path to the state file (required)")
	user := flag.String("user", "", "Username to seed (required)")
	used := flag.String("used", "1h", "Time already consumed today (e.g. 90min, 2h 15min)")
	flag.Parse()

	if *statePath == "" {
		log.Fatal("--state is required")
	}
	if *user == "" {
		log.Fatal("--user is required")
	}

	usec, err := timespan.Parse(*used, timespan.PerSec)
	if err != nil {
		log.Fatalf("parse --used %q: %v", *used, err)
	}

	sf, err := statefile.Open(*statePath)
	if err != nil {
		log.Fatalf("open %s: %v", *statePath, err)
	}
	defer sf.Close()

	if err := sf.SetUsedTime(*user, usec); err != nil {
		log.Fatalf("write record: %v", err)
	}

	day := time.Unix(statefile.Today(), 0).UTC().Format("2006-01-02")
	fmt.Printf("[seed_state] %s: user=%s day=%s used=%s\n",
		*statePath, *user, day, timespan.Format(usec, timespan.PerSec))
	fmt.Println("[seed_state] done — run timelimitctl check to observe the seeded budget")
}
