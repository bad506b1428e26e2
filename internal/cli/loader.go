package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/gqlcache/internal/compiler"
	"github.com/roach88/gqlcache/internal/engine"
	"github.com/roach88/gqlcache/internal/snapshot"
	"github.com/roach88/gqlcache/internal/store"
)

// LoadError represents an error that occurred during config loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found
	ErrCodeBuildFailed = "E003" // CUE build failed
	ErrCodeBadConfig   = "E004" // Config compilation failed
	ErrCodeBadInput    = "E005" // Malformed shape/payload input
	ErrCodeSnapshot    = "E006" // Snapshot open/save/load error
	ErrCodeCache       = "E007" // Cache operation failed
)

// LoadConfig compiles a CUE policy config file into engine settings.
// An empty path yields default settings (no policies, overwrite on
// conflict).
func LoadConfig(path string) (*compiler.Settings, error) {
	if path == "" {
		return &compiler.Settings{
			Policies: nil,
			Conflict: store.ConflictOverwrite,
		}, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error reading config: %v", err)}
	}

	ctx := cuecontext.New()
	value := ctx.CompileBytes(src, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	settings, err := compiler.CompileConfig(value.LookupPath(cue.ParsePath("cache")))
	if err != nil {
		return nil, convertCompileError(err)
	}
	return settings, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeBadConfig,
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeBadConfig,
		Message: err.Error(),
	}
}

// openCache loads the policy config, opens the snapshot database, and
// restores the cache from it. The caller must Close the returned file
// and is responsible for saving the store back if it mutated the cache.
func openCache(ctx context.Context, opts *RootOptions, formatter *OutputFormatter) (*engine.Cache, *snapshot.File, error) {
	settings, err := LoadConfig(opts.Config)
	if err != nil {
		return nil, nil, err
	}
	if opts.Config != "" {
		formatter.VerboseLog("Loaded policy config from %s", opts.Config)
	}

	file, err := snapshot.Open(opts.Snapshot)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeSnapshot, Message: err.Error()}
	}

	sn, err := file.Load(ctx)
	if err != nil {
		file.Close()
		return nil, nil, &LoadError{Code: ErrCodeSnapshot, Message: err.Error()}
	}
	formatter.VerboseLog("Restored %d record(s) from %s", len(sn), opts.Snapshot)

	logger := slog.New(slog.DiscardHandler)
	if opts.Verbose {
		w := formatter.ErrWriter
		if w == nil {
			w = formatter.Writer
		}
		logger = slog.New(slog.NewTextHandler(w, nil))
	}

	s := store.New(
		store.WithLogger(logger),
		store.WithConflictPolicy(settings.Conflict),
	)
	s.Restore(sn)

	cache := engine.New(s, settings.Policies, engine.WithLogger(logger))
	return cache, file, nil
}

// saveCache extracts the store and writes it back to the snapshot file.
func saveCache(ctx context.Context, cache *engine.Cache, file *snapshot.File) error {
	if err := file.Save(ctx, cache.Store().Extract()); err != nil {
		return &LoadError{Code: ErrCodeSnapshot, Message: err.Error()}
	}
	return nil
}
