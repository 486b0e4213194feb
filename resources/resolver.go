package resources

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/edsrzf/mmap-go"
)

type ResourceFlag uint8

// Enumeration of resource flags that indicate what the resolver should do
// with the resource.
const (
	RESOURCE_REQUIRED ResourceFlag = 1 << iota
	RESOURCE_OPTIONAL
)

var ErrNotFound = errors.New("resource not found")

// WriteCounter counts the number of bytes written to it, and every 10 seconds,
// it prints a message reporting the number of bytes written so far.
type WriteCounter struct {
	Total    uint64
	Last     time.Time
	Reported bool
	Path     string
	Size     uint64
}

func (wc *WriteCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.Total += uint64(n)
	if time.Since(wc.Last).Seconds() > 10 {
		wc.Reported = true
		wc.Last = time.Now()
		log.Printf("Downloading %s... %s / %s completed.",
			wc.Path, humanize.Bytes(wc.Total), humanize.Bytes(wc.Size))
	}
	return n, nil
}

type ResourceEntry struct {
	file   *os.File
	mapped mmap.MMap
	Path   string
	Data   *[]byte
}

// Resources maps a file name such as `vocab.json` to its resolved entry.
type Resources map[string]ResourceEntry

// Request names one file to resolve. An empty URL means the location is
// derived from the identifier being resolved.
type Request struct {
	Name string
	URL  string
	Flag ResourceFlag
}

type options struct {
	cacheDir string
	client   *http.Client
	auth     string
}

type Option func(*options)

// WithCacheDir sets where downloaded files are kept between runs.
func WithCacheDir(dir string) Option {
	return func(o *options) { o.cacheDir = dir }
}

func WithClient(client *http.Client) Option {
	return func(o *options) { o.client = client }
}

// WithAuthToken sends token as a bearer token on every request.
func WithAuthToken(token string) Option {
	return func(o *options) { o.auth = token }
}

func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "hf_bpe")
	}
	return filepath.Join(dir, "hf_bpe")
}

func (rsrcs *Resources) Cleanup() {
	for name, rsrc := range *rsrcs {
		if rsrc.mapped != nil {
			rsrc.mapped.Unmap()
		}
		if rsrc.file != nil {
			rsrc.file.Close()
		}
		delete(*rsrcs, name)
	}
}

// AddEntry
// Add a resource to the Resources map, opening it as a mmap.Map.
func (rsrcs *Resources) AddEntry(name string, file *os.File) error {
	mapped, fileMmap, mmapErr := readMmap(file)
	if mmapErr != nil {
		return fmt.Errorf("error trying to mmap file: %w", mmapErr)
	}
	(*rsrcs)[name] = ResourceEntry{
		file:   file,
		mapped: mapped,
		Path:   file.Name(),
		Data:   fileMmap,
	}
	return nil
}

func (rsrcs Resources) Has(name string) bool {
	_, ok := rsrcs[name]
	return ok
}

// Bytes returns the contents of a resolved resource.
func (rsrcs Resources) Bytes(name string) ([]byte, bool) {
	entry, ok := rsrcs[name]
	if !ok || entry.Data == nil {
		return nil, false
	}
	return *entry.Data, true
}

// PathOf returns the on-disk location of a resolved resource.
func (rsrcs Resources) PathOf(name string) (string, bool) {
	entry, ok := rsrcs[name]
	if !ok || entry.Path == "" {
		return "", false
	}
	return entry.Path, true
}

func isValidUrl(toTest string) bool {
	_, err := url.ParseRequestURI(toTest)
	if err != nil {
		return false
	}
	u, err := url.Parse(toTest)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	return true
}

// IsLocalDir reports whether id names a directory on the local filesystem.
func IsLocalDir(id string) bool {
	stat, err := os.Stat(id)
	return err == nil && stat.IsDir()
}

func cacheKey(id string) string {
	if isValidUrl(id) {
		u, _ := url.Parse(id)
		id = u.Host + u.Path
	}
	return strings.NewReplacer("/", "--", ":", "-").Replace(
		strings.Trim(id, "/"))
}

func (o *options) urlFor(id string, req Request) string {
	if req.URL != "" {
		return req.URL
	}
	if isValidUrl(id) {
		return strings.TrimSuffix(id, "/") + "/" + req.Name
	}
	return HubURL(id, req.Name)
}

// fetchToCache makes sure targetPath holds the resource at url, skipping the
// download when a cached copy of the advertised size already exists.
func (o *options) fetchToCache(url string, targetPath string) (*os.File,
	error) {
	rsrcSize, sizeErr := SizeHTTP(o.client, url, o.auth)
	if sizeErr != nil {
		return nil, sizeErr
	}
	if stat, statErr := os.Stat(targetPath); statErr == nil &&
		rsrcSize > 0 && uint(stat.Size()) == rsrcSize {
		log.Printf("Skipping %s... already exists, and of the correct size.",
			url)
		return os.Open(targetPath)
	}

	rsrcReader, fetchErr := FetchHTTP(o.client, url, o.auth)
	if fetchErr != nil {
		return nil, fetchErr
	}
	defer rsrcReader.Close()
	tmpPath := targetPath + ".incomplete"
	tmpFile, createErr := os.OpenFile(tmpPath,
		os.O_TRUNC|os.O_RDWR|os.O_CREATE, 0644)
	if createErr != nil {
		return nil, fmt.Errorf("error opening '%s' for write: %w",
			tmpPath, createErr)
	}
	counter := &WriteCounter{
		Last: time.Now(),
		Path: url,
		Size: uint64(rsrcSize),
	}
	bytesDownloaded, ioErr := io.Copy(tmpFile,
		io.TeeReader(rsrcReader, counter))
	closeErr := tmpFile.Close()
	if ioErr != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("error downloading '%s': %w", url, ioErr)
	} else if closeErr != nil {
		os.Remove(tmpPath)
		return nil, closeErr
	}
	if renameErr := os.Rename(tmpPath, targetPath); renameErr != nil {
		return nil, renameErr
	}
	log.Printf("Downloaded %s... %s completed.", url,
		humanize.Bytes(uint64(bytesDownloaded)))
	return os.Open(targetPath)
}

// Resolve resolves every requested file for id. A local directory is read in
// place; anything else is downloaded into the cache directory, from the
// request's URL when it has one, otherwise from id itself when it is a URL,
// otherwise from the hub. Missing optional files are skipped, a missing
// required file is an error.
func Resolve(id string, reqs []Request, opts ...Option) (*Resources, error) {
	o := &options{cacheDir: DefaultCacheDir()}
	for _, opt := range opts {
		opt(o)
	}
	if IsLocalDir(id) {
		return resolveLocal(id, reqs)
	}

	dir := filepath.Join(o.cacheDir, cacheKey(id))
	if mkdirErr := os.MkdirAll(dir, 0755); mkdirErr != nil {
		return nil, mkdirErr
	}
	found := make(Resources, len(reqs))
	for _, req := range reqs {
		if found.Has(req.Name) {
			continue
		}
		rsrcUrl := o.urlFor(id, req)
		log.Printf("Resolving %s... ", rsrcUrl)
		file, fetchErr := o.fetchToCache(rsrcUrl, filepath.Join(dir, req.Name))
		if fetchErr != nil {
			if req.Flag&RESOURCE_REQUIRED != 0 {
				found.Cleanup()
				return nil, fmt.Errorf(
					"cannot retrieve required `%s` for `%s`: %w",
					req.Name, id, fetchErr)
			}
			log.Printf("Resolved %s... not there, not required.", rsrcUrl)
			continue
		}
		if addErr := found.AddEntry(req.Name, file); addErr != nil {
			file.Close()
			found.Cleanup()
			return nil, addErr
		}
	}
	return &found, nil
}

func resolveLocal(dir string, reqs []Request) (*Resources, error) {
	files := make(map[string]string, len(reqs))
	for _, req := range reqs {
		target := filepath.Join(dir, req.Name)
		if _, statErr := os.Stat(target); statErr != nil {
			if req.Flag&RESOURCE_REQUIRED != 0 {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
			}
			continue
		}
		files[req.Name] = target
	}
	return FromFiles(files)
}

// FromFiles opens and maps local files, keyed by the resource name they
// should be known under.
func FromFiles(files map[string]string) (*Resources, error) {
	found := make(Resources, len(files))
	for name, filePath := range files {
		file, openErr := os.Open(filePath)
		if openErr != nil {
			found.Cleanup()
			if os.IsNotExist(openErr) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
			}
			return nil, openErr
		}
		if addErr := found.AddEntry(name, file); addErr != nil {
			file.Close()
			found.Cleanup()
			return nil, addErr
		}
	}
	return &found, nil
}
