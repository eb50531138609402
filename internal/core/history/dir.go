package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/penwyp/go-fleet-replay/internal/core/cache"
	"github.com/penwyp/go-fleet-replay/internal/core/model"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

// EntitiesFile is the name of the static snapshot inside a history directory
const EntitiesFile = "entities.json"

// PageFile describes one change file named `<start>-<end>_<count>.json`
type PageFile struct {
	Name  string
	Start float64
	End   float64
	Count int
}

// ParsePageFileName extracts the time range and entry count from a page file name
func ParsePageFileName(name string) (PageFile, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	rangePart, countPart, ok := strings.Cut(base, "_")
	if !ok {
		return PageFile{}, fmt.Errorf("page file %q: missing entry count", name)
	}
	startStr, endStr, ok := strings.Cut(rangePart, "-")
	if !ok {
		return PageFile{}, fmt.Errorf("page file %q: missing time range", name)
	}
	start, err := strconv.ParseFloat(startStr, 64)
	if err != nil {
		return PageFile{}, fmt.Errorf("page file %q: bad start: %w", name, err)
	}
	end, err := strconv.ParseFloat(endStr, 64)
	if err != nil {
		return PageFile{}, fmt.Errorf("page file %q: bad end: %w", name, err)
	}
	count, err := strconv.Atoi(countPart)
	if err != nil {
		return PageFile{}, fmt.Errorf("page file %q: bad count: %w", name, err)
	}
	if end < start {
		return PageFile{}, fmt.Errorf("page file %q: end before start", name)
	}
	return PageFile{Name: name, Start: start, End: end, Count: count}, nil
}

// DirService reads a history directory written by the simulator
type DirService struct {
	dir   string
	cache *cache.PageCache

	mu      sync.RWMutex
	pages   []PageFile
	clipped *TimeRange
	read    bool
}

// NewDirService scans dir for page files. cacheSize bounds the decoded page cache.
func NewDirService(dir string, cacheSize int) (*DirService, error) {
	s := &DirService{
		dir:   dir,
		cache: cache.NewPageCache(cacheSize),
	}
	if err := s.Rescan(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the history directory
func (s *DirService) Dir() string {
	return s.dir
}

// Rescan rereads the directory listing. Pages already handed out keep their
// index because new pages can only extend the timeline.
func (s *DirService) Rescan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read history dir: %w", err)
	}

	var pages []PageFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == EntitiesFile || filepath.Ext(name) != ".json" {
			continue
		}
		pf, err := ParsePageFileName(name)
		if err != nil {
			util.LogWarn(fmt.Sprintf("Skipping %s: %v", name, err))
			continue
		}
		pages = append(pages, pf)
	}
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].Start < pages[j].Start
	})

	for i := 1; i < len(pages); i++ {
		if pages[i].Start <= pages[i-1].End {
			return model.NewValidationError("history", "pages %s and %s overlap", pages[i-1].Name, pages[i].Name)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clipped != nil {
		pages = clip(pages, *s.clipped)
	}
	if len(pages) < len(s.pages) {
		util.LogWarn(fmt.Sprintf("History %s shrank from %d to %d pages", s.dir, len(s.pages), len(pages)))
	}
	s.pages = pages
	util.LogDebug(fmt.Sprintf("History %s: %d pages", s.dir, len(pages)))
	return nil
}

// Pages returns a copy of the page listing
func (s *DirService) Pages() []PageFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PageFile, len(s.pages))
	copy(out, s.pages)
	return out
}

// TimeRange returns the span from the first page start to the last page end
func (s *DirService) TimeRange() (TimeRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.pages) == 0 {
		return TimeRange{}, model.NewValidationError("history", "no change files in %s", s.dir)
	}
	return TimeRange{Start: s.pages[0].Start, End: s.pages[len(s.pages)-1].End}, nil
}

// ClipToRange restricts the history to pages overlapping [start, end].
// It is only allowed before any page has been read.
func (s *DirService) ClipToRange(start, end float64) error {
	full, err := s.TimeRange()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.read {
		return fmt.Errorf("clipping is only allowed before reading any change file")
	}
	if start < full.Start {
		return fmt.Errorf("start %v is before the history start %v", start, full.Start)
	}
	if end > full.End {
		return fmt.Errorf("end %v is after the history end %v", end, full.End)
	}
	if end < start {
		return fmt.Errorf("end %v is before start %v", end, start)
	}
	r := TimeRange{Start: start, End: end}
	s.clipped = &r
	s.pages = clip(s.pages, r)
	return nil
}

func clip(pages []PageFile, r TimeRange) []PageFile {
	out := pages[:0:0]
	for _, p := range pages {
		if r.End >= p.Start && r.Start <= p.End {
			out = append(out, p)
		}
	}
	return out
}

func (s *DirService) ReadEntities(ctx context.Context) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, EntitiesFile))
	if err != nil {
		return nil, fmt.Errorf("read entities: %w", err)
	}
	return DecodeSnapshot(data)
}

func (s *DirService) PageCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages), nil
}

func (s *DirService) GetPage(ctx context.Context, index int) (*model.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if index < 0 || index >= len(s.pages) {
		n := len(s.pages)
		s.mu.Unlock()
		return nil, fmt.Errorf("page %d out of range [0, %d)", index, n)
	}
	pf := s.pages[index]
	s.read = true
	s.mu.Unlock()

	path := filepath.Join(s.dir, pf.Name)
	key := pf.Name
	if info, err := util.GetFileInfo(path); err == nil {
		key = pf.Name + "@" + info.Version()
	}
	if page, ok := s.cache.Get(key); ok && page.Index == index {
		return page, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pf.Name, err)
	}
	entries, err := DecodeEntries(pf.Name, data)
	if err != nil {
		return nil, err
	}
	if pf.Count > 0 && len(entries) != pf.Count {
		util.LogWarn(fmt.Sprintf("%s declares %d entries but holds %d", pf.Name, pf.Count, len(entries)))
	}

	page, err := NewPage(index, pf.Start, pf.End, entries)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, page)
	return page, nil
}

// Fingerprint returns the CRC32 of the tail of a page file
func (s *DirService) Fingerprint(index int) (string, error) {
	s.mu.RLock()
	if index < 0 || index >= len(s.pages) {
		n := len(s.pages)
		s.mu.RUnlock()
		return "", fmt.Errorf("page %d out of range [0, %d)", index, n)
	}
	name := s.pages[index].Name
	s.mu.RUnlock()
	return util.CalculateFileFingerprint(filepath.Join(s.dir, name))
}

// CacheStats reports hits and misses of the decoded page cache
func (s *DirService) CacheStats() (hits, misses int) {
	return s.cache.Stats()
}
