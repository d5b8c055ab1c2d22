// Command newsidx-fetcher is the outer shell that wires a config.MainConfig
// together and drives the Indexer facade: refresh the group list, refresh
// watched groups, and run until interrupted. Flag/signal handling style
// grounded on the teacher's cmd/nntp-fetcher/main.go.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-while/newsidx/internal/config"
	"github.com/go-while/newsidx/internal/indexer"
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion
	log.Printf("Starting newsidx-fetcher (version %s)", config.AppVersion)

	var (
		host          = flag.String("host", "localhost", "NNTP server hostname")
		port          = flag.Int("port", 119, "NNTP server port")
		ssl           = flag.Bool("ssl", false, "use TLS to connect")
		username      = flag.String("username", "", "NNTP username (optional, falls back to ~/.netrc)")
		password      = flag.String("password", "", "NNTP password")
		connections   = flag.Int("connections", 1, "max concurrent sessions against this server")
		xoverSpan     = flag.Int("xover-span", config.DefaultXOverSpan, "XOVER chunk width")
		groups        = flag.String("groups", "", "comma-separated list of newsgroups to watch")
		regexpFile    = flag.String("regexp-file", "", "path to the matcher template file (optional)")
		workerCount   = flag.Int("workers", config.DefaultWorkerCount, "number of fetch workers")
		backfill      = flag.Int64("backfill", config.DefaultBackfill, "max articles to fetch for a newly-watched group")
		dbPath        = flag.String("db", "newsidx.db", "path to the sqlite index file")
		shutdownAfter = flag.Duration("shutdown-deadline", 30*time.Second, "how long Shutdown waits for in-flight tasks to drain")
	)
	flag.Parse()

	var watched []string
	if *groups != "" {
		for _, g := range strings.Split(*groups, ",") {
			if g = strings.TrimSpace(g); g != "" {
				watched = append(watched, g)
			}
		}
	}

	cfg := config.MainConfig{
		Servers: []config.Server{{
			Name:        *host,
			Host:        *host,
			Port:        *port,
			SSL:         *ssl,
			Username:    *username,
			Password:    *password,
			Connections: *connections,
			XOverSpan:   *xoverSpan,
		}},
		Groups:      watched,
		RegexpFile:  *regexpFile,
		WorkerCount: *workerCount,
		Backfill:    int(*backfill),
	}

	ix, err := indexer.New(cfg, *dbPath)
	if err != nil {
		log.Fatalf("failed to start indexer: %v", err)
	}

	if err := ix.RefreshGroups(); err != nil {
		log.Printf("RefreshGroups failed: %v", err)
	}
	if err := ix.RefreshWatched(*backfill); err != nil {
		log.Printf("RefreshWatched failed: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	log.Printf("shutdown requested, draining up to %s", *shutdownAfter)
	if err := ix.Shutdown(*shutdownAfter); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
	log.Printf("newsidx-fetcher stopped cleanly")
}
