// Package collector runs a batch of message files through the extractor.
//
// A batch enumerates a directory, drops files by extension and skip keyword,
// then decodes and assembles every remaining file. A file that fails (decode
// error or panic inside a heuristic) becomes a record carrying only its file
// name and error text; the batch itself only fails on setup problems or
// cancellation, and in that case returns no records at all.
//
// Example usage:
//
//	c, err := collector.New(collector.DefaultConfig(), mapping, log)
//	c.OnProgress(func(done, total int, file string) {
//		fmt.Printf("%d/%d %s\n", done, total, file)
//	})
//	result, err := c.Run(ctx, "./inbox")
//	final := result.Final()
package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/extractor"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/parsers"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Decoder turns a message file into text
type Decoder interface {
	Decode(path string) (models.RawMessage, error)
}

// ProgressFunc receives (processed, total, file name) after each file
type ProgressFunc func(done, total int, file string)

// StatusFunc receives one human-readable status line per file
type StatusFunc func(status string)

// Collector processes message directories into transaction records
type Collector struct {
	config    *Config
	assembler *extractor.Assembler
	decoder   Decoder
	mapping   *models.MappingTable
	logger    logger.Logger

	progress []ProgressFunc
	status   []StatusFunc
}

// New creates a collector. A nil mapping leaves every primary id empty.
func New(config *Config, mapping *models.MappingTable, log logger.Logger) (*Collector, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "collector", config, err)
	}

	assembler, err := extractor.NewAssembler(config.Tags)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "tags", config.Tags, err)
	}

	if log == nil {
		log = logger.GetGlobalLogger()
	}

	return &Collector{
		config:    config,
		assembler: assembler,
		decoder:   parsers.NewMessageDecoder(),
		mapping:   mapping,
		logger:    log.WithComponent("collector"),
	}, nil
}

// SetDecoder replaces the message decoder
func (c *Collector) SetDecoder(d Decoder) {
	c.decoder = d
}

// OnProgress registers a progress sink. Sinks may be called from worker
// goroutines but never concurrently with each other.
func (c *Collector) OnProgress(fn ProgressFunc) {
	c.progress = append(c.progress, fn)
}

// OnStatus registers a status sink
func (c *Collector) OnStatus(fn StatusFunc) {
	c.status = append(c.status, fn)
}

// Scan lists the files a batch would process and those it would skip, both
// sorted by name.
func (c *Collector) Scan(inputDir string) (files []string, skipped []string, err error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, nil, errors.FileError(errors.CodeDirectoryError, inputDir, err)
	}
	if !info.IsDir() {
		return nil, nil, errors.FileError(errors.CodeDirectoryError, inputDir, fmt.Errorf("not a directory"))
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, nil, errors.FileError(errors.CodeDirectoryError, inputDir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !c.config.accepts(name) {
			continue
		}
		if kw, skip := c.config.skipped(name); skip {
			c.logger.WithFields(logger.Fields{"file": name, "keyword": kw}).Debug("Skipping file")
			skipped = append(skipped, name)
			continue
		}
		files = append(files, filepath.Join(inputDir, name))
	}

	return files, skipped, nil
}

// Run processes every accepted file in inputDir. Records keep enumeration
// order regardless of worker count.
func (c *Collector) Run(ctx context.Context, inputDir string) (*BatchResult, error) {
	result := &BatchResult{
		RunID:     uuid.New().String(),
		InputDir:  inputDir,
		StartedAt: time.Now(),
	}
	log := c.logger.WithFields(logger.Fields{"run_id": result.RunID, "input_dir": inputDir})

	files, skipped, err := c.Scan(inputDir)
	if err != nil {
		return nil, err
	}
	result.Skipped = skipped

	log.WithFields(logger.Fields{
		"files":   len(files),
		"skipped": len(skipped),
		"workers": c.config.Workers,
	}).Info("Starting batch")

	tracker := logger.NewProgressTracker(logger.ProgressConfig{
		Operation:   "extract",
		Total:       int64(len(files)),
		LogInterval: c.config.ProgressInterval,
		Logger:      log,
	})

	records := make([]models.TransactionRecord, len(files))
	failures := make([]*errors.AppError, len(files))

	var (
		mu   sync.Mutex
		done int
	)
	notify := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		done++
		tracker.Increment()
		for _, fn := range c.progress {
			fn(done, len(files), name)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Workers)

	for i, path := range files {
		// stop launching work once cancelled; in-flight files finish
		if gctx.Err() != nil {
			break
		}
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name := filepath.Base(path)
			c.emitStatus(&mu, fmt.Sprintf("Processing %s", name))

			records[i], failures[i] = c.processFile(path)
			notify(name)
			return nil
		})
	}

	if err := g.Wait(); err != nil || ctx.Err() != nil {
		if err == nil {
			err = ctx.Err()
		}
		tracker.CompleteWithError(err)
		return nil, errors.ReconciliationError(errors.CodeCancelled, "extraction", err)
	}
	tracker.Complete()

	result.Records = records
	for _, f := range failures {
		if f != nil {
			result.Failures = append(result.Failures, f)
		}
	}
	result.CompletedAt = time.Now()
	result.Stats = result.computeStats()

	log.WithFields(logger.Fields{
		"processed": result.Stats.Processed,
		"final":     result.Stats.Final,
		"failed":    result.Stats.Failed,
		"warnings":  result.Stats.WithWarnings,
		"duration":  result.Stats.Duration.String(),
	}).Info("Batch completed")

	return result, nil
}

func (c *Collector) emitStatus(mu *sync.Mutex, status string) {
	if len(c.status) == 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	for _, fn := range c.status {
		fn(status)
	}
}

// processFile never fails: errors and panics become a failed record
func (c *Collector) processFile(path string) (record models.TransactionRecord, failure *errors.AppError) {
	name := filepath.Base(path)
	log := c.logger.WithField("file", name)

	defer func() {
		if r := recover(); r != nil {
			failure = errors.ExtractionError(errors.CodeExtractionFail, name, fmt.Errorf("panic: %v", r))
			record = models.FailedRecord(name, failure)
			log.WithError(failure).Error("Recovered from panic while extracting")
		}
	}()

	msg, err := c.decoder.Decode(path)
	if err != nil {
		failure = errors.WrapIfNeeded(err, errors.CategoryExtraction, errors.CodeDecodeFailed, fmt.Sprintf("cannot decode message %s", name)).
			WithContext("file", name)
		log.WithError(failure).Warn("Message could not be decoded")
		return models.FailedRecord(name, failure), failure
	}
	msg.FileName = name

	record = c.assembler.Assemble(msg)
	if id, ok := c.mapping.Resolve(record.ClientAccount, record.Currency); ok {
		record.PrimaryID = id
	}

	if len(record.Warnings) > 0 {
		log.WithField("warnings", record.Warnings).Warn("Fields left empty")
	}
	log.WithFields(logger.Fields{
		"direction": record.Direction.String(),
		"encoding":  msg.Encoding,
	}).Debug("Extracted record")

	return record, nil
}
