// Package populator writes synthetic CMS extracts so the upload and the
// pipeline can be exercised without the real downloads.
package populator

import (
	"encoding/csv"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/yourbasic/graph"

	"github.com/vitebski/claims-ops/internal/generator"
)

const batchSize = 100

// SamplePopulator writes sample datasets as CSV files
type SamplePopulator struct {
	Fs            afero.Fs
	Dir           string
	DataGenerator *generator.DataGenerator
	NumRecords    int
	MaxRetries    int
	// OrphanRate is the share of foreign keys pointing at hospitals that do not exist
	OrphanRate   float64
	InsertedData map[string][]map[string]string
	Logger       *logrus.Logger
}

// NewSamplePopulator creates a new sample populator
func NewSamplePopulator(
	fs afero.Fs,
	dir string,
	dataGenerator *generator.DataGenerator,
	numRecords int,
	orphanRate float64,
	logger *logrus.Logger,
) *SamplePopulator {
	return &SamplePopulator{
		Fs:            fs,
		Dir:           dir,
		DataGenerator: dataGenerator,
		NumRecords:    numRecords,
		MaxRetries:    10,
		OrphanRate:    orphanRate,
		InsertedData:  make(map[string][]map[string]string),
		Logger:        logger,
	}
}

// InsertionOrder orders datasets so referenced datasets are written first
func InsertionOrder(datasets []generator.Dataset) ([]generator.Dataset, error) {
	index := make(map[string]int, len(datasets))
	for i, d := range datasets {
		index[d.Name] = i
	}

	g := graph.New(len(datasets))
	for i, d := range datasets {
		for _, dep := range d.DependsOn() {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("dataset %s references unknown dataset %s", d.Name, dep)
			}
			g.Add(j, i)
		}
	}

	order, ok := graph.TopSort(g)
	if !ok {
		return nil, fmt.Errorf("datasets contain a circular reference")
	}
	ordered := make([]generator.Dataset, 0, len(datasets))
	for _, i := range order {
		ordered = append(ordered, datasets[i])
	}
	return ordered, nil
}

// Populate writes every dataset and returns the number of rows per dataset
func (sp *SamplePopulator) Populate(datasets []generator.Dataset) (map[string]int, error) {
	ordered, err := InsertionOrder(datasets)
	if err != nil {
		return nil, err
	}

	written := make(map[string]int, len(ordered))
	for _, d := range ordered {
		n, err := sp.populateDataset(d)
		if err != nil {
			return written, err
		}
		written[d.Name] = n
	}
	return written, nil
}

// Path returns the file a dataset is written to
func (sp *SamplePopulator) Path(d generator.Dataset) string {
	return filepath.Join(sp.Dir, d.LocalPath)
}

func (sp *SamplePopulator) populateDataset(d generator.Dataset) (int, error) {
	sp.Logger.Infof("Generating dataset: %s", d.Name)

	path := sp.Path(d)
	if err := sp.Fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create directory for %s: %w", path, err)
	}
	f, err := sp.Fs.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		header[i] = c.Name
	}
	if err := w.Write(header); err != nil {
		return 0, fmt.Errorf("write header of %s: %w", path, err)
	}

	scale := d.Scale
	if scale <= 0 {
		scale = 1
	}
	numRecords := sp.NumRecords * scale

	seen := make(map[string]map[string]bool)
	var records []map[string]string
	for i := 0; i < numRecords; i++ {
		record, ok := sp.generateRecord(d, seen)
		if !ok {
			sp.Logger.Warningf("Skipping record %d of %s after %d retries", i, d.Name, sp.MaxRetries)
			continue
		}

		row := make([]string, len(d.Columns))
		for j, c := range d.Columns {
			row[j] = record[c.Name]
		}
		if err := w.Write(row); err != nil {
			return 0, fmt.Errorf("write %s: %w", path, err)
		}
		records = append(records, record)

		// Flush in batches of 100 records
		if len(records)%batchSize == 0 {
			w.Flush()
			if err := w.Error(); err != nil {
				return 0, fmt.Errorf("write %s: %w", path, err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}

	// Store generated data for reference
	sp.InsertedData[d.Name] = records

	sp.Logger.Infof("Successfully wrote %s with %d records", path, len(records))
	return len(records), nil
}

// generateRecord generates a record, retrying while unique columns collide
func (sp *SamplePopulator) generateRecord(d generator.Dataset, seen map[string]map[string]bool) (map[string]string, bool) {
	for attempt := 0; attempt <= sp.MaxRetries; attempt++ {
		record := sp.DataGenerator.GenerateRecord(d.Columns)
		for _, c := range d.Columns {
			if c.References != nil {
				record[c.Name] = sp.getForeignKeyValue(*c.References)
			}
		}

		duplicate := false
		for _, c := range d.Columns {
			if !c.Unique {
				continue
			}
			if seen[c.Name] == nil {
				seen[c.Name] = make(map[string]bool)
			}
			if seen[c.Name][record[c.Name]] {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		for _, c := range d.Columns {
			if c.Unique {
				seen[c.Name][record[c.Name]] = true
			}
		}
		return record, true
	}
	return nil, false
}

// getForeignKeyValue picks a value from the referenced dataset, or an orphan id
func (sp *SamplePopulator) getForeignKeyValue(ref generator.Reference) string {
	referenced := sp.InsertedData[ref.Dataset]
	if len(referenced) == 0 || sp.DataGenerator.Rand.Float64() < sp.OrphanRate {
		return sp.DataGenerator.OrphanFacilityID()
	}
	return referenced[sp.DataGenerator.Rand.Intn(len(referenced))][ref.Column]
}
