package logger

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker counts finished units of a batch and logs at intervals.
type ProgressTracker struct {
	logger      Logger
	operation   string
	total       int64
	done        int64
	failed      int64
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	mutex       sync.Mutex
}

// ProgressConfig configures progress tracking behavior
type ProgressConfig struct {
	Operation   string        `json:"operation"`
	Total       int64         `json:"total"`
	LogInterval time.Duration `json:"log_interval"`
	Logger      Logger        `json:"-"`
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(config ProgressConfig) *ProgressTracker {
	if config.Logger == nil {
		config.Logger = GetGlobalLogger()
	}
	if config.LogInterval == 0 {
		config.LogInterval = 5 * time.Second
	}

	now := time.Now()
	tracker := &ProgressTracker{
		logger:      config.Logger.WithComponent("progress"),
		operation:   config.Operation,
		total:       config.Total,
		startTime:   now,
		lastLogTime: now,
		logInterval: config.LogInterval,
	}

	tracker.logger.WithFields(Fields{
		"operation": config.Operation,
		"total":     config.Total,
	}).Debug("Starting batch")

	return tracker
}

// Done records one finished unit. Safe for concurrent use.
func (p *ProgressTracker) Done(err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.done++
	if err != nil {
		p.failed++
	}

	now := time.Now()
	if now.Sub(p.lastLogTime) >= p.logInterval {
		p.logger.WithFields(p.fields(now)).Info("Batch progress")
		p.lastLogTime = now
	}
}

// Complete logs the final statistics and returns them.
func (p *ProgressTracker) Complete() ProgressStats {
	stats := p.GetStats()

	p.mutex.Lock()
	entry := p.logger.WithFields(p.fields(time.Now()))
	p.mutex.Unlock()

	if stats.Failed > 0 {
		entry.Warnf("Batch completed with %d failed runs", stats.Failed)
		return stats
	}
	entry.Infof("Batch completed: %s", stats)
	return stats
}

// GetStats returns current progress statistics
func (p *ProgressTracker) GetStats() ProgressStats {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var percentage float64
	if p.total > 0 {
		percentage = float64(p.done) / float64(p.total) * 100
	}

	return ProgressStats{
		Operation:  p.operation,
		Total:      p.total,
		Done:       p.done,
		Failed:     p.failed,
		Percentage: percentage,
		Duration:   time.Since(p.startTime),
	}
}

func (p *ProgressTracker) fields(now time.Time) Fields {
	fields := Fields{
		"operation": p.operation,
		"done":      p.done,
		"failed":    p.failed,
		"duration":  now.Sub(p.startTime).String(),
	}
	if p.total > 0 {
		fields["total"] = p.total
		fields["percentage"] = fmt.Sprintf("%.1f%%", float64(p.done)/float64(p.total)*100)
	}
	return fields
}

// ProgressStats contains progress statistics
type ProgressStats struct {
	Operation  string        `json:"operation"`
	Total      int64         `json:"total"`
	Done       int64         `json:"done"`
	Failed     int64         `json:"failed"`
	Percentage float64       `json:"percentage"`
	Duration   time.Duration `json:"duration"`
}

func (ps ProgressStats) String() string {
	if ps.Total > 0 {
		return fmt.Sprintf("%s: %d/%d (%.1f%%), %d failed, elapsed %v",
			ps.Operation, ps.Done, ps.Total, ps.Percentage, ps.Failed, ps.Duration)
	}
	return fmt.Sprintf("%s: %d done, %d failed, elapsed %v", ps.Operation, ps.Done, ps.Failed, ps.Duration)
}

// OperationLogger logs the stages of one operation with their timing.
type OperationLogger struct {
	logger    Logger
	operation string
	startTime time.Time
	stageTime time.Time
}

// NewOperationLogger creates a new operation logger
func NewOperationLogger(operation string, logger Logger) *OperationLogger {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	now := time.Now()
	ol := &OperationLogger{
		logger:    logger.WithField("operation", operation),
		operation: operation,
		startTime: now,
		stageTime: now,
	}

	ol.logger.Debug("Starting operation")
	return ol
}

// Stage logs the end of a pipeline stage and how long it took.
func (ol *OperationLogger) Stage(stage string, fields Fields) {
	now := time.Now()
	entry := ol.logger.WithFields(Fields{
		"stage":    stage,
		"duration": now.Sub(ol.stageTime).String(),
	})
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Debug("Stage finished")
	ol.stageTime = now
}

// Success completes the operation successfully
func (ol *OperationLogger) Success(message string, fields Fields) {
	entry := ol.logger.WithFields(Fields{
		"duration": time.Since(ol.startTime).String(),
		"status":   "success",
	})
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Info(message)
}

// Error completes the operation with an error
func (ol *OperationLogger) Error(err error, message string) {
	ol.logger.WithError(err).WithFields(Fields{
		"duration": time.Since(ol.startTime).String(),
		"status":   "error",
	}).Error(message)
}

// TimedOperation executes a function and logs timing information
func TimedOperation(operation string, logger Logger, fn func() error) error {
	ol := NewOperationLogger(operation, logger)

	if err := fn(); err != nil {
		ol.Error(err, "Operation failed")
		return err
	}

	ol.Success("Operation completed", nil)
	return nil
}
