// Package inputfile locates input files, extracts their business date and
// moves them once processed.
package inputfile

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/etlkit/etl/etlerr"
	"github.com/etlkit/etl/retry"
	"github.com/rs/zerolog"
)

const (
	// DefaultDatePattern extracts year, month and day from a file name.
	DefaultDatePattern = `(\d{4})(\d{2})(\d{2})`

	DefaultBadDir        = "bad"
	DefaultArchiveDir    = "archive"
	DefaultRecyclableDir = "recyclable"
	DefaultReportDir     = "reports"

	timestampLayout = "20060102150405"
)

// Dirs are the folders where processed files go. Relative folders are
// resolved against the folder of the input file.
type Dirs struct {
	Bad        string
	Archive    string
	Recyclable string
	Report     string
}

func DefaultDirs() Dirs {
	return Dirs{
		Bad:        DefaultBadDir,
		Archive:    DefaultArchiveDir,
		Recyclable: DefaultRecyclableDir,
		Report:     DefaultReportDir,
	}
}

func (d Dirs) withDefaults() Dirs {
	def := DefaultDirs()
	if d.Bad == "" {
		d.Bad = def.Bad
	}
	if d.Archive == "" {
		d.Archive = def.Archive
	}
	if d.Recyclable == "" {
		d.Recyclable = def.Recyclable
	}
	if d.Report == "" {
		d.Report = def.Report
	}
	return d
}

// Resolver resolves one input file.
type Resolver struct {
	FileName string
	// StartDate is the business date of the file. When zero, it is extracted
	// from the file name by ResolveStartDate.
	StartDate   time.Time
	DatePattern string
	Dirs        Dirs
	// MoveRetry applies to moving the file once processed.
	MoveRetry retry.Settings

	dateRegexp *regexp.Regexp
}

// NewResolver builds a resolver for fileName. The date is searched in the
// base name with namePrefix followed by datePattern, whose first three
// groups are the year, month and day.
func NewResolver(
	fileName string, startDate time.Time, datePattern string, namePrefix string, dirs Dirs,
) (*Resolver, error) {
	if fileName == "" {
		return nil, etlerr.NewConfigurationErrorf("file resolver requires a file name")
	}
	if datePattern == "" {
		datePattern = DefaultDatePattern
	}
	re, err := regexp.Compile(namePrefix + datePattern)
	if err != nil {
		return nil, etlerr.NewConfigurationErrorf("invalid date pattern %q: %v", namePrefix+datePattern, err)
	}
	return &Resolver{
		FileName:    fileName,
		StartDate:   startDate,
		DatePattern: datePattern,
		Dirs:        dirs.withDefaults(),
		MoveRetry:   retry.DefaultSettings(),
		dateRegexp:  re,
	}, nil
}

// ResolveStartDate sets StartDate from the file name, unless it is already
// set.
func (r *Resolver) ResolveStartDate() error {
	if !r.StartDate.IsZero() {
		return nil
	}
	base := filepath.Base(r.FileName)
	m := r.dateRegexp.FindStringSubmatch(base)
	if m == nil || len(m) < 4 {
		return etlerr.NewInvalidFileErrorf(
			r.FileName,
			"could not extract start date from file name: expected a date like %s, got %s",
			r.DatePattern,
			base,
		)
	}
	var parts [3]int
	for i := range parts {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return etlerr.NewInvalidFileErrorf(r.FileName, "invalid date component %q in %s", m[i+1], base)
		}
		parts[i] = n
	}
	d := time.Date(parts[0], time.Month(parts[1]), parts[2], 0, 0, 0, 0, time.UTC)
	if d.Year() != parts[0] || int(d.Month()) != parts[1] || d.Day() != parts[2] {
		return etlerr.NewInvalidFileErrorf(
			r.FileName,
			"could not extract start date from file name %s, got date components %s/%s/%s",
			base,
			m[1],
			m[2],
			m[3],
		)
	}
	r.StartDate = d
	return nil
}

// ReportPath is where the report of the file goes.
func (r *Resolver) ReportPath(now time.Time) string {
	return r.toDir(r.Dirs.Report, now)
}

// RecyclablePath is where the recyclable rows of the file go.
func (r *Resolver) RecyclablePath(now time.Time) string {
	return r.toDir(r.Dirs.Recyclable, now)
}

// MoveToArchive moves the file to the archive folder and returns its new
// location.
func (r *Resolver) MoveToArchive(ctx context.Context, now time.Time) (string, error) {
	return r.moveFile(ctx, r.toDir(r.Dirs.Archive, now))
}

// MoveToBad moves the file to the bad folder and returns its new location.
func (r *Resolver) MoveToBad(ctx context.Context, now time.Time) (string, error) {
	return r.moveFile(ctx, r.toDir(r.Dirs.Bad, now))
}

// toDir returns <dir>/<stem>_<timestamp><ext>.
func (r *Resolver) toDir(dir string, now time.Time) string {
	base := filepath.Base(r.FileName)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(r.FileName), dir)
	}
	return filepath.Join(dir, stem+"_"+now.UTC().Format(timestampLayout)+ext)
}

func (r *Resolver) moveFile(ctx context.Context, to string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(to), 0750); err != nil {
		return "", errors.Wrapf(err, "error creating folder for %s", to)
	}
	if err := retry.Do(ctx, r.MoveRetry, func() error {
		err := os.Rename(r.FileName, to)
		if os.IsNotExist(err) {
			return retry.Permanent(err)
		}
		return err
	}); err != nil {
		return "", errors.Wrapf(err, "error moving %s", r.FileName)
	}
	return to, nil
}

// IteratorConfig selects the input files of a run.
type IteratorConfig struct {
	// Dir is searched for files matching Pattern.
	Dir     string
	Pattern string
	Recurse bool
	// Files are processed before the files found in Dir.
	Files []string

	StartDate   time.Time
	DatePattern string
	NamePrefix  string
	Dirs        Dirs
}

// Iterate returns a resolver per selected input file.
func Iterate(cfg IteratorConfig) ([]*Resolver, error) {
	if cfg.Dir != "" && cfg.Pattern == "" {
		return nil, etlerr.NewConfigurationErrorf("an input directory requires a file name pattern")
	}
	if cfg.Dir == "" && len(cfg.Files) == 0 {
		return nil, etlerr.NewConfigurationErrorf("an input directory, a list of files or both are required")
	}
	if _, err := filepath.Match(cfg.Pattern, ""); err != nil {
		return nil, etlerr.NewConfigurationErrorf("invalid file name pattern %q: %v", cfg.Pattern, err)
	}

	names := append([]string(nil), cfg.Files...)
	if cfg.Dir != "" {
		found, err := find(cfg)
		if err != nil {
			return nil, err
		}
		names = append(names, found...)
	}

	ret := make([]*Resolver, 0, len(names))
	for _, name := range names {
		r, err := NewResolver(name, cfg.StartDate, cfg.DatePattern, cfg.NamePrefix, cfg.Dirs)
		if err != nil {
			return nil, err
		}
		ret = append(ret, r)
	}
	return ret, nil
}

func find(cfg IteratorConfig) ([]string, error) {
	root, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if !cfg.Recurse {
		found, err := filepath.Glob(filepath.Join(root, cfg.Pattern))
		if err != nil {
			return nil, err
		}
		ret := found[:0]
		for _, f := range found {
			if info, err := os.Stat(f); err == nil && !info.IsDir() {
				ret = append(ret, f)
			}
		}
		return ret, nil
	}

	// Output folders living under the input tree are not searched.
	dirs := cfg.Dirs.withDefaults()
	var skip []string
	for _, d := range []string{dirs.Bad, dirs.Archive, dirs.Recyclable, dirs.Report} {
		if !filepath.IsAbs(d) {
			skip = append(skip, filepath.Clean(d))
		}
	}
	var ret []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && isOutputDir(root, path, skip) {
				return filepath.SkipDir
			}
			return nil
		}
		ok, err := filepath.Match(cfg.Pattern, d.Name())
		if err != nil {
			return err
		}
		if ok {
			ret = append(ret, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error walking %s", root)
	}
	sort.Strings(ret)
	return ret, nil
}

// isOutputDir returns whether path is one of the relative output folders,
// resolved against root or any folder below it.
func isOutputDir(root, path string, outputs []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, o := range outputs {
		if rel == o || strings.HasSuffix(rel, string(filepath.Separator)+o) {
			return true
		}
	}
	return false
}

// Process runs fn on the file of r, after resolving its start date. When fn
// fails on a data error, the file is moved to the bad folder and the error
// is returned. Otherwise the file is moved to the archive folder.
func Process(
	ctx context.Context,
	logger zerolog.Logger,
	r *Resolver,
	fn func(ctx context.Context, r *Resolver) error,
) (string, error) {
	logger = logger.With().Str("input_file", r.FileName).Logger()
	err := r.ResolveStartDate()
	if err == nil {
		err = fn(ctx, r)
	}
	if err != nil {
		if !etlerr.IsDataError(err) {
			return "", err
		}
		logger.Error().Err(err).Str("action", "move_to_bad").Msgf("invalid input file")
		to, moveErr := r.MoveToBad(ctx, time.Now())
		if moveErr != nil {
			logger.Error().Err(moveErr).Str("action", "move_to_bad").Msgf("failed to move file")
			return "", errors.CombineErrors(err, moveErr)
		}
		return to, err
	}
	to, err := r.MoveToArchive(ctx, time.Now())
	if err != nil {
		logger.Error().Err(err).Str("action", "move_to_archive").Msgf("failed to move file")
		return "", err
	}
	logger.Info().Str("action", "move_to_archive").Str("moved_to", to).Msgf("completed")
	return to, nil
}
