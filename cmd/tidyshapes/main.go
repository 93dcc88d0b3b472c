package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/ray1729/tidyshapes/pkg/lookup"
	"github.com/ray1729/tidyshapes/pkg/output"
	"github.com/ray1729/tidyshapes/pkg/overture"
	"github.com/ray1729/tidyshapes/pkg/places"
	"github.com/ray1729/tidyshapes/pkg/qrank"
	"github.com/ray1729/tidyshapes/pkg/upload"
)

const (
	defaultRelease   = "2026-01-21.0"
	defaultThreshold = 50000
)

func main() {
	log.SetFlags(0)
	app := &cli.App{
		Name:           "tidyshapes",
		Usage:          "Build bounding boxes and simplified outlines for popular places",
		DefaultCommand: "build",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Run the build pipeline",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "release",
						Usage: "Overture release tag",
						Value: defaultRelease,
					},
					&cli.IntFlag{
						Name:  "qrank-threshold",
						Usage: "Minimum QRank score to include",
						Value: defaultThreshold,
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Usage:   "Output directory",
						Value:   "output",
					},
					&cli.StringFlag{
						Name:  "cache-dir",
						Usage: "Download cache directory",
						Value: "data",
					},
				},
				Action: runBuild,
			},
			{
				Name:      "upload",
				Usage:     "Upload output files to R2",
				ArgsUsage: "VERSION",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "bucket",
						Usage:    "R2 bucket name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "endpoint-url",
						Usage:    "R2 S3-compatible endpoint",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "output-dir",
						Usage: "Output directory",
						Value: "output",
					},
				},
				Action: runUpload,
			},
			{
				Name:      "lookup",
				Usage:     "Find places whose bounding box contains a point",
				ArgsUsage: "LON LAT",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "output-dir",
						Usage: "Built dataset directory",
						Value: "output",
					},
				},
				Action: runLookup,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runBuild(c *cli.Context) error {
	cacheDir := c.String("cache-dir")
	fetcher, err := overture.NewFetcher(cacheDir)
	if err != nil {
		return err
	}
	defer fetcher.Close()

	log.Println("Downloading data:")
	release := c.String("release")
	divisionPath, err := fetcher.EnsureParquet(release, "division")
	if err != nil {
		return err
	}
	areaPath, err := fetcher.EnsureParquet(release, "division_area")
	if err != nil {
		return err
	}
	qrankPath, err := qrank.Ensure(cacheDir)
	if err != nil {
		return err
	}

	log.Println("Loading QRank:")
	popularity, err := qrank.Load(qrankPath)
	if err != nil {
		return err
	}

	log.Println("Joining division areas with divisions:")
	records, err := fetcher.LoadAreas(divisionPath, areaPath)
	if err != nil {
		return err
	}

	log.Println("Deduplicating:")
	best := places.Dedup(records, popularity, c.Int("qrank-threshold"))
	log.Printf("%d unique entries after dedup and QRank filter", len(best))

	log.Println("Resolving name collisions:")
	entries := places.Entries(best)
	slugMap := places.AssignSlugs(entries, popularity)
	if dropped := len(entries) - len(slugMap); dropped > 0 {
		log.Printf("%d entries skipped: name has no ASCII slug", dropped)
	}

	outputDir := c.String("output-dir")
	w := output.NewWriter(outputDir)
	log.Printf("Writing %d entries:", len(slugMap))
	stats, err := w.Run(slugMap)
	if err != nil {
		return err
	}
	log.Printf("Wrote %d .bbox + %d .geojson files + index to %s/", stats.Entries, stats.GeoJSON, outputDir)
	if stats.Warnings > 0 {
		log.Printf("%d warnings", stats.Warnings)
	}
	return nil
}

func runUpload(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: %s upload VERSION --bucket BUCKET --endpoint-url URL", c.App.Name)
	}
	return upload.Sync(c.String("output-dir"), c.String("bucket"), c.Args().Get(0), c.String("endpoint-url"))
}

func runLookup(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: %s lookup LON LAT", c.App.Name)
	}
	lon, err := strconv.ParseFloat(c.Args().Get(0), 64)
	if err != nil {
		return fmt.Errorf("invalid longitude %q", c.Args().Get(0))
	}
	lat, err := strconv.ParseFloat(c.Args().Get(1), 64)
	if err != nil {
		return fmt.Errorf("invalid latitude %q", c.Args().Get(1))
	}
	ix, err := lookup.Load(c.String("output-dir"))
	if err != nil {
		return err
	}
	for _, slug := range ix.FindContaining(lon, lat) {
		fmt.Println(slug)
	}
	return nil
}
