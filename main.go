package main

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/sgoodz/bitcoin-heatmap/internal/logger"
	"github.com/sgoodz/bitcoin-heatmap/internal/nodes"
	"github.com/sgoodz/bitcoin-heatmap/internal/web"
)

func main() {
	listen := pflag.StringP("listen", "l", ":8080", "address the dashboard listens on")
	snapshotURL := pflag.String("snapshot-url", nodes.DefaultSnapshotURL, "Bitnodes snapshot endpoint")
	cacheDir := pflag.String("cache-dir", "./cache", "directory for the persistent snapshot cache")
	cacheTTL := pflag.Duration("cache-ttl", nodes.DefaultCacheTTL, "how long a fetched snapshot stays fresh")
	markerCap := pflag.Int("marker-cap", nodes.DefaultMarkerCap, "maximum peers handed to the marker layer")
	refreshEvery := pflag.Duration("refresh-interval", 0, "background refresh interval, 0 disables")
	logLevel := pflag.String("log-level", "info", "log level: debug, info, warn, error")
	logDir := pflag.String("log-dir", ".", "directory for JSONL event logs")
	pflag.Parse()

	logger.Setup(*logLevel, *logDir)

	store, err := nodes.OpenStore(*cacheDir)
	if err != nil {
		logrus.WithError(err).Fatal("cache open failed")
	}
	defer store.Close()

	fetcher := nodes.NewFetcher(*snapshotURL)
	svc := nodes.NewService(fetcher, store, *cacheTTL, *markerCap)
	defer svc.Stop()
	svc.StartAutoRefresh(*refreshEvery)

	r := gin.Default()
	r.Static("/static", "./static")
	r.LoadHTMLGlob("templates/*.html")

	web.SetupRoutes(r, svc)

	logrus.WithField("listen", *listen).Info("bitcoin heatmap dashboard starting")
	if err := r.Run(*listen); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}
