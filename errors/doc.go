// Package errors provides standardized error handling patterns for arfstream
// components.
//
// # Overview
//
// The errors package implements a three-class error classification system for
// streaming container reads: Transient (temporary, may clear on a later pass),
// Invalid (bad input, do not retry), and Fatal (unrecoverable, stop the
// traversal).
//
// This classification lets the reader, the dispatcher, and the sinks make
// informed decisions about skipping, surfacing, or aborting without hardcoded
// error string matching.
//
// # Error Classification
//
// Errors are automatically classified based on their type or content:
//
//   - Transient: context timeouts, interrupted reads, temporarily busy files (safe to retry the run)
//   - Invalid: malformed entries, unknown dataset types, bad configuration (do not retry)
//   - Fatal: corrupted data, impossible ordering, exhausted resources (stop the traversal)
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	// Return standard error for known conditions
//	if dataset == nil {
//	    return errors.ErrDatasetNotFound
//	}
//
// Wrap errors with context for debugging:
//
//	// Wrap third-party errors with component context
//	if err := entry.Read(dataset); err != nil {
//	    return errors.Wrap(err, "Reader", "Iterate", "dataset read")
//	}
//
// Check classification to decide between skipping and aborting:
//
//	if err := emit(chunk); err != nil {
//	    if errors.IsFatal(err) {
//	        return err // abort the traversal
//	    }
//	    logger.Warn("chunk dropped", "error", err)
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// This format enables consistent log parsing and debugging across the whole
// pipeline. The Wrap family of functions applies the pattern while preserving
// error classification through the chain.
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")  // For retryable errors
//	errors.WrapInvalid(err, "Component", "Method", "action")    // For validation errors
//	errors.WrapFatal(err, "Component", "Method", "action")      // For unrecoverable errors
//
// The generic Wrap() function preserves the original error's classification:
//
//	errors.Wrap(err, "Component", "Method", "action")  // Preserves original class
//
// # Standard Error Variables
//
// The package provides pre-defined error variables for common conditions,
// organized by category:
//
//   - Component lifecycle: ErrAlreadyStarted, ErrNotStarted, ErrAlreadyStopped, ErrClosed
//   - Container data: ErrInvalidData, ErrDataCorrupted, ErrParsingFailed, ErrEntryNotFound, ErrDatasetNotFound, ErrUnsupportedDtype
//   - Timebase and ordering: ErrTimebaseMismatch, ErrMissingOrderingKey, ErrNoEntries, ErrFrameGapExceeded
//   - Stream identity: ErrDuplicateID
//   - Configuration: ErrInvalidConfig, ErrMissingConfig
//
// Use these variables instead of creating custom error messages for consistency:
//
//	// Good - uses standard variable
//	if _, ok := entry.Datasets[name]; !ok {
//	    return errors.ErrDatasetNotFound
//	}
//
//	// Avoid - custom error message
//	if _, ok := entry.Datasets[name]; !ok {
//	    return errors.New("dataset not found")
//	}
//
// # Classification During Traversal
//
// The reader applies classification while walking a container. An entry whose
// ordering attribute is absent is an Invalid condition local to that entry, so
// the walker logs a warning and skips it; the rest of the recording still
// streams. A failed dataset read means the file can no longer be trusted, so
// the walker wraps it and aborts the traversal. Sinks receive the aborting
// error through Throw and record it in their health status.
//
// # Migration from fmt.Errorf
//
// Replace manual error wrapping with classification-aware wrappers:
//
//	// Before
//	return fmt.Errorf("component: operation failed: %w", err)
//
//	// After - preserves classification
//	return errors.Wrap(err, "Component", "method", "operation")
//
//	// After - sets classification
//	return errors.WrapInvalid(err, "Component", "method", "operation")
//
// Replace string-based error inspection with classification checks:
//
//	// Before
//	if strings.Contains(err.Error(), "corrupt") {
//	    // abort logic
//	}
//
//	// After
//	if errors.IsFatal(err) {
//	    // abort logic
//	}
//
// # Integration with errors.As/Is
//
// All error types support standard library error inspection:
//
//	// Check error classification
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    log.Printf("Component: %s, Class: %s", ce.Component, ce.Class)
//	}
//
//	// Check for specific standard errors
//	if errors.Is(err, errors.ErrTimebaseMismatch) {
//	    // Handle the clock conflict specifically
//	}
//
//	// Classification is preserved through error chains
//	wrapped := errors.Wrap(errors.ErrDataCorrupted, "Reader", "Iterate", "dataset read")
//	if errors.IsFatal(wrapped) {  // true - classification preserved
//	    // Abort logic
//	}
//
// # Context Cancellation
//
// Context errors (context.DeadlineExceeded, context.Canceled) are
// automatically classified as Transient, so an interrupted run and a network
// mount timing out are handled the same way:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//
//	if err := reader.Iterate(ctx, send); err != nil {
//	    if errors.IsTransient(err) {
//	        log.Printf("Traversal interrupted (rerun recommended): %v", err)
//	    }
//	}
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access. The ClassifiedError type is
// safe to share across goroutines after creation.
//
// # Architecture Integration
//
// The errors package integrates with the other arfstream packages:
//
//   - reader: wraps container access failures and decides skip versus abort
//   - dispatch: classifies worker construction and queue shutdown failures
//   - sink/stream: records thrown traversal errors in component health
//   - toolchain: surfaces assembly problems as Invalid with field context
//
// # Design Philosophy
//
// The errors package follows these design principles:
//
//   - Classification over string matching: Errors are classified by type, not content
//   - Wrapping over replacement: Preserve original errors, add context via wrapping
//   - Standards over invention: Use Go's error handling idioms (Is/As/Unwrap)
//   - Simplicity over completeness: Three classes cover the traversal's decisions
//
// # Examples
//
// Complete component integration example:
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//	    "time"
//
//	    "github.com/c360/arfstream/errors"
//	)
//
//	type Exporter struct {
//	    started bool
//	}
//
//	func (e *Exporter) Start() error {
//	    if e.started {
//	        return errors.ErrAlreadyStarted
//	    }
//
//	    if err := e.open(); err != nil {
//	        return errors.WrapTransient(err, "Exporter", "Start", "open output")
//	    }
//
//	    e.started = true
//	    return nil
//	}
//
//	func (e *Exporter) Send(ctx context.Context, payload []byte) error {
//	    if !e.started {
//	        return errors.ErrNotStarted
//	    }
//
//	    if len(payload) == 0 {
//	        return errors.WrapInvalid(
//	            errors.ErrInvalidData,
//	            "Exporter", "Send", "empty payload")
//	    }
//
//	    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
//	    defer cancel()
//
//	    select {
//	    case <-ctx.Done():
//	        return errors.WrapTransient(ctx.Err(), "Exporter", "Send", "write")
//	    case <-time.After(100 * time.Millisecond):
//	        return nil
//	    }
//	}
//
//	func main() {
//	    exporter := &Exporter{}
//
//	    if err := exporter.Start(); err != nil {
//	        log.Fatalf("Start failed: %v", err)
//	    }
//
//	    ctx := context.Background()
//	    if err := exporter.Send(ctx, []byte("chunk")); err != nil {
//	        if errors.IsInvalid(err) {
//	            log.Printf("Invalid input (do not retry): %v", err)
//	        } else if errors.IsTransient(err) {
//	            log.Printf("Transient error (retry recommended): %v", err)
//	        } else if errors.IsFatal(err) {
//	            log.Fatalf("Fatal error (stop processing): %v", err)
//	        }
//	    }
//	}
package errors
