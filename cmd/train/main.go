package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"gradecast/dataset"
	"gradecast/db"
	"gradecast/ml"
	"gradecast/schema"
)

func main() {
	app := &cli.App{
		Name:  "gradecast-train",
		Usage: "Train the student grade classifier and write the serving bundle",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "data",
				Usage:    "Student CSV file (repeatable, semicolon separated)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Output path for the artifact bundle",
				Value: "./models/student.bundle.json",
			},
			&cli.IntFlag{
				Name:  "estimators",
				Usage: "Number of trees in the forest",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  "max-depth",
				Usage: "Maximum tree depth",
				Value: 10,
			},
			&cli.IntFlag{
				Name:  "min-split",
				Usage: "Minimum samples to split a node",
				Value: 2,
			},
			&cli.Float64Flag{
				Name:  "test-ratio",
				Usage: "Held-out fraction for evaluation",
				Value: 0.2,
			},
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "Random seed",
				Value: 42,
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite database to record the training run (optional)",
			},
		},
		Action: train,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func train(c *cli.Context) error {
	s := schema.Student()

	samples, err := dataset.Load(c.StringSlice("data")...)
	if err != nil {
		return err
	}
	log.Printf("loaded %d samples", len(samples))

	cleaner := dataset.NewCleaner(s)
	cleaned, issues := cleaner.Clean(samples)
	stats := cleaner.Stats()
	log.Printf("cleaning: %d passed, %d rejected", stats.Passed, stats.Rejected)
	for _, issue := range issues {
		log.Printf("  rejected row %d (%s): %s", issue.Row, issue.Rule, issue.Message)
	}

	records := make([]schema.Record, len(cleaned))
	labels := make([]string, len(cleaned))
	for i, sample := range cleaned {
		records[i] = sample.Record
		labels[i] = sample.Grade
	}

	bundle, metrics, err := ml.Train(records, labels, s, ml.TrainConfig{
		NEstimators:     c.Int("estimators"),
		MaxDepth:        c.Int("max-depth"),
		MinSamplesSplit: c.Int("min-split"),
		TestRatio:       c.Float64("test-ratio"),
		Seed:            c.Int64("seed"),
	})
	if err != nil {
		return err
	}

	log.Printf("accuracy=%.4f (train=%d test=%d columns=%d)",
		metrics.Accuracy, metrics.TrainRows, metrics.TestRows, metrics.ColumnCount)
	classes := make([]string, 0, len(metrics.Precision))
	for class := range metrics.Precision {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		log.Printf("  class %s: precision=%.4f recall=%.4f", class, metrics.Precision[class], metrics.Recall[class])
	}

	out := c.String("out")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := bundle.Save(out); err != nil {
		return err
	}
	fmt.Printf("bundle saved to %s\n", out)

	if dbPath := c.String("db"); dbPath != "" {
		if err := db.InitDB(dbPath); err != nil {
			return err
		}
		defer db.Close()
		if err := db.SaveTrainingLog(db.TrainingLog{
			ModelName:   "random_forest",
			Accuracy:    metrics.Accuracy,
			TrainRows:   metrics.TrainRows,
			TestRows:    metrics.TestRows,
			ColumnCount: metrics.ColumnCount,
			TrainedAt:   time.Now().UTC(),
		}); err != nil {
			return err
		}
		log.Printf("training run recorded in %s", dbPath)
	}
	return nil
}
