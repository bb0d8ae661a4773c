package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"infrascan/internal/dataset"
	"infrascan/internal/logger"
)

const usage = `Usage:
  dataset merge  -src datasets -dst merged_dataset [-splits train,valid,test] [-flat]
  dataset reduce -dir path
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "merge":
		err = runMerge(os.Args[2:])
	case "reduce":
		err = runReduce(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func runMerge(args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	src := fs.String("src", "datasets", "Directory containing the source datasets")
	dst := fs.String("dst", "merged_dataset", "Output directory")
	splits := fs.String("splits", strings.Join(dataset.DefaultSplits, ","), "Comma-separated split folders to merge")
	flat := fs.Bool("flat", false, "Merge only the train split into flat images/ and labels/ folders")
	logDir := fs.String("logs", "", "Also write log files to this directory")
	fs.Parse(args)

	l, err := newLogger(*logDir)
	if err != nil {
		return err
	}
	defer l.Close()

	fmt.Printf("Merging datasets from %s into %s\n", *src, *dst)
	stats, err := dataset.Merge(dataset.MergeOptions{
		SrcDir: *src,
		DstDir: *dst,
		Splits: splitList(*splits),
		Flat:   *flat,
	}, l)
	if err != nil {
		return err
	}

	fmt.Printf("Merged %d images, wrote %d label files (%d lines kept, %d dropped, %d folders skipped)\n",
		stats.Images, stats.LabelFiles, stats.Lines, stats.DroppedLines, stats.SkippedFolders)
	return nil
}

func runReduce(args []string) error {
	fs := flag.NewFlagSet("reduce", flag.ExitOnError)
	dir := fs.String("dir", "", "Folder to thin out")
	logDir := fs.String("logs", "", "Also write log files to this directory")
	fs.Parse(args)

	if *dir == "" {
		return fmt.Errorf("-dir is required")
	}

	l, err := newLogger(*logDir)
	if err != nil {
		return err
	}
	defer l.Close()

	deleted, err := dataset.Reduce(*dir, l)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d files from %s\n", len(deleted), *dir)
	return nil
}

func newLogger(dir string) (*logger.Logger, error) {
	if dir == "" {
		return logger.Stdout(), nil
	}
	return logger.New(dir)
}

func splitList(s string) []string {
	var splits []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			splits = append(splits, part)
		}
	}
	return splits
}
