package membership

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/burrowlabs/picket/pkg/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FileSource watches a host list file and diffs its contents into add and
// remove membership events. The file holds one host:port endpoint per line;
// blank lines and lines starting with '#' are skipped.
type FileSource struct {
	path   string
	logger zerolog.Logger

	events chan Event[string]
	known  map[string]bool
	stopCh chan struct{}
}

// NewFileSource creates a file-backed membership source
func NewFileSource(path string) *FileSource {
	return &FileSource{
		path:   path,
		logger: log.WithComponent("membership.file"),
		events: make(chan Event[string], 64),
		known:  make(map[string]bool),
		stopCh: make(chan struct{}),
	}
}

// Events returns the membership stream fed by this source
func (s *FileSource) Events() <-chan Event[string] {
	return s.events
}

// Start reads the file once and begins watching it for changes
func (s *FileSource) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory rather than the file itself: config management
	// tools replace files by rename, which drops a direct watch.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}

	s.reload()
	go s.run(watcher)
	return nil
}

// Stop stops watching and completes the event stream
func (s *FileSource) Stop() {
	close(s.stopCh)
}

// run processes filesystem notifications until stopped
func (s *FileSource) run(watcher *fsnotify.Watcher) {
	defer close(s.events)
	defer watcher.Close()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				s.reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn().Err(err).Msg("Watcher error")
		case <-s.stopCh:
			return
		}
	}
}

// reload re-reads the file and emits the diff against the known set
func (s *FileSource) reload() {
	endpoints, err := s.read()
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("path", s.path).
			Msg("Failed to read host list, keeping previous membership")
		return
	}

	current := make(map[string]bool, len(endpoints))
	for _, endpoint := range endpoints {
		current[endpoint] = true
		if !s.known[endpoint] {
			s.known[endpoint] = true
			s.emit(Add(endpoint))
		}
	}

	for endpoint := range s.known {
		if !current[endpoint] {
			delete(s.known, endpoint)
			s.emit(Remove(endpoint))
		}
	}
}

// read parses the host list file
func (s *FileSource) read() ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var endpoints []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		endpoints = append(endpoints, line)
	}
	return endpoints, scanner.Err()
}

// emit delivers an event without blocking the watch loop forever
func (s *FileSource) emit(event Event[string]) {
	select {
	case s.events <- event:
	case <-s.stopCh:
	}
}
