package datetime

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"sync"
	"time"
	_ "time/tzdata" // LoadLocation works without a system zoneinfo tree

	"github.com/pkg/errors"
)

// DefaultZoneInfoDir is where most Unix systems keep the IANA database.
const DefaultZoneInfoDir = "/usr/share/zoneinfo"

// ErrUnknownZone is returned for zone IDs that do not resolve to a location.
var ErrUnknownZone = errors.New("unknown time zone")

var tzifMagic = []byte("TZif")

// ignoredZoneFiles are TZif files in the tree that are not region IDs.
var ignoredZoneFiles = map[string]bool{
	"Factory": true,
}

// Zones lists the zone IDs of a zoneinfo tree and caches loaded locations.
type Zones struct {
	fsys fs.FS

	mu    sync.Mutex
	cache map[string]*time.Location
}

// NewZones reads zone IDs from fsys, typically os.DirFS of a zoneinfo
// directory. fsys may be nil if IDs is never called.
func NewZones(fsys fs.FS) *Zones {
	return &Zones{fsys: fsys, cache: make(map[string]*time.Location)}
}

// SystemZones uses $ZONEINFO when it names a directory and
// DefaultZoneInfoDir otherwise.
func SystemZones() *Zones {
	dir := DefaultZoneInfoDir
	if env := os.Getenv("ZONEINFO"); env != "" {
		if st, err := os.Stat(env); err == nil && st.IsDir() {
			dir = env
		}
	}
	return NewZones(os.DirFS(dir))
}

// Load returns the location for id, e.g. "Asia/Tokyo". Locations are cached.
func (z *Zones) Load(id string) (*time.Location, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if loc, ok := z.cache[id]; ok {
		return loc, nil
	}
	if id == "" || id == "Local" {
		// LoadLocation maps these to UTC and Local, which are not region IDs.
		return nil, errors.Wrapf(ErrUnknownZone, "%q", id)
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, errors.Wrapf(ErrUnknownZone, "%q: %v", id, err)
	}
	z.cache[id] = loc
	return loc, nil
}

// IDs walks the tree and returns every region ID in sorted order. Every path
// element of an ID starts with an upper-case letter (this skips "posix",
// "right", "posixrules" and "localtime"), and the file must be in TZif format.
func (z *Zones) IDs() ([]string, error) {
	if z.fsys == nil {
		return nil, errors.New("no zoneinfo tree configured")
	}

	var ids []string
	err := fs.WalkDir(z.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		name := path.Base(p)
		if !startsUpper(name) || ignoredZoneFiles[name] {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if isTZif(z.fsys, p) {
			ids = append(ids, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walking zoneinfo tree")
	}

	sort.Strings(ids)
	return ids, nil
}

func startsUpper(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

// isTZif reports whether p can be read and starts with the TZif magic.
// Unreadable entries (symlinked directories, permissions) are not zones.
func isTZif(fsys fs.FS, p string) bool {
	f, err := fsys.Open(p)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, len(tzifMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, tzifMagic)
}
