// Package dataset combines several YOLO-format datasets into one training set
// with a shared class vocabulary.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"infrascan/internal/logger"
)

// Source describes one input dataset and how its labels are remapped.
type Source struct {
	Name  string
	Class string
	ID    int
	// KeepOnly, when set, keeps only lines whose original class id resolves to
	// this name in Classes.
	KeepOnly string
	Classes  []string
}

// DefaultSources is the fixed table of datasets under the source directory.
var DefaultSources = []Source{
	{Name: "damaged-poles", Class: "Broken Pole", ID: 0},
	{Name: "fallen-trees", Class: "Fallen Tree", ID: 1},
	{
		Name: "garbage", Class: "Garbage", ID: 2, KeepOnly: "garbage",
		Classes: []string{"0", "c", "garbage", "garbage_bag", "sampah-detection", "trash"},
	},
	{Name: "inclined-poles", Class: "Inclined Pole", ID: 3},
	{Name: "potholes", Class: "Pothole", ID: 4},
}

// DefaultSplits are the split folders of a YOLO dataset.
var DefaultSplits = []string{"train", "valid", "test"}

// DataFile is the name of the dataset descriptor written next to the splits.
const DataFile = "data.yaml"

// MergeOptions configures Merge.
type MergeOptions struct {
	SrcDir  string
	DstDir  string
	Sources []Source
	Splits  []string
	// Flat merges only the train split into DstDir/images and DstDir/labels
	// and writes no data.yaml.
	Flat bool
}

// MergeStats summarizes a merge run.
type MergeStats struct {
	Images         int
	LabelFiles     int
	Lines          int
	DroppedLines   int
	SkippedFolders int
}

// Merge copies every source's images into the destination and rewrites
// their label files with the source's merged class id.
func Merge(opts MergeOptions, log *logger.Logger) (*MergeStats, error) {
	if len(opts.Sources) == 0 {
		opts.Sources = DefaultSources
	}
	switch {
	case opts.Flat:
		opts.Splits = []string{"train"}
	case len(opts.Splits) == 0:
		opts.Splits = DefaultSplits
	}

	stats := &MergeStats{}
	for _, split := range opts.Splits {
		dst := splitDir(opts, split)
		for _, sub := range []string{"images", "labels"} {
			if err := os.MkdirAll(filepath.Join(dst, sub), 0755); err != nil {
				return nil, fmt.Errorf("create %s: %w", filepath.Join(dst, sub), err)
			}
		}
	}

	for _, src := range opts.Sources {
		for _, split := range opts.Splits {
			imageDir := filepath.Join(opts.SrcDir, src.Name, split, "images")
			labelDir := filepath.Join(opts.SrcDir, src.Name, split, "labels")
			if !isDir(imageDir) || !isDir(labelDir) {
				log.Warning("Skipping %s %s, folders missing", src.Name, split)
				stats.SkippedFolders++
				continue
			}

			if err := mergeSplit(src, imageDir, labelDir, splitDir(opts, split), stats); err != nil {
				return nil, fmt.Errorf("merge %s %s: %w", src.Name, split, err)
			}
			log.Info("Merged %s %s", src.Name, split)
		}
	}

	if !opts.Flat {
		names := make([]string, len(opts.Sources))
		for i, src := range opts.Sources {
			names[i] = src.Class
		}
		if err := WriteDataYAML(filepath.Join(opts.DstDir, DataFile), names); err != nil {
			return nil, err
		}
	}

	log.Info("Dataset merging complete: %d images, %d label files, %d lines kept, %d dropped",
		stats.Images, stats.LabelFiles, stats.Lines, stats.DroppedLines)
	return stats, nil
}

func splitDir(opts MergeOptions, split string) string {
	if opts.Flat {
		return opts.DstDir
	}
	return filepath.Join(opts.DstDir, split)
}

func mergeSplit(src Source, imageDir, labelDir, dst string, stats *MergeStats) error {
	entries, err := os.ReadDir(imageDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isImage(name) {
			continue
		}

		if err := copyFile(filepath.Join(imageDir, name), filepath.Join(dst, "images", name)); err != nil {
			return err
		}
		stats.Images++

		labelName := LabelName(name)
		lines, err := readLines(filepath.Join(labelDir, labelName))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}

		kept := RemapLabels(lines, src)
		stats.Lines += len(kept)
		stats.DroppedLines += len(lines) - len(kept)
		if len(kept) == 0 {
			continue
		}

		content := strings.Join(kept, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dst, "labels", labelName), []byte(content), 0644); err != nil {
			return fmt.Errorf("write labels: %w", err)
		}
		stats.LabelFiles++
	}
	return nil
}

// RemapLabels rewrites YOLO label lines to the source's merged class id.
// Lines with fewer than five fields or a non-integer class are dropped, as
// are lines rejected by the source's KeepOnly filter.
func RemapLabels(lines []string, src Source) []string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		parts := strings.Fields(line)
		if len(parts) < 5 {
			continue
		}
		classID, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		if src.KeepOnly != "" {
			if classID < 0 || classID >= len(src.Classes) || src.Classes[classID] != src.KeepOnly {
				continue
			}
		}
		kept = append(kept, strconv.Itoa(src.ID)+" "+strings.Join(parts[1:], " "))
	}
	return kept
}

// LabelName maps an image file name to its label file name.
func LabelName(image string) string {
	return strings.TrimSuffix(image, filepath.Ext(image)) + ".txt"
}

func isImage(name string) bool {
	return strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".png")
}

type dataYAML struct {
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	Test  string   `yaml:"test"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names,flow"`
}

// WriteDataYAML writes the YOLO dataset descriptor for the split layout.
func WriteDataYAML(path string, names []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(dataYAML{
		Train: "train/images",
		Val:   "valid/images",
		Test:  "test/images",
		NC:    len(names),
		Names: names,
	}); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
