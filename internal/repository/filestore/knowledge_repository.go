package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"chatbot-engine-be/pkg/store"
)

const (
	CoreFile     = "core_knowledge.json"
	ExpandedFile = "expanded_knowledge.json"
	backupDir    = "backups"
	keepBackups  = 5
)

type snapshot struct {
	core     []store.KnowledgeEntry
	expanded []store.KnowledgeEntry
	all      []store.KnowledgeEntry
}

func newSnapshot(core, expanded []store.KnowledgeEntry) *snapshot {
	all := make([]store.KnowledgeEntry, 0, len(core)+len(expanded))
	all = append(all, core...)
	all = append(all, expanded...)
	return &snapshot{core: core, expanded: expanded, all: all}
}

// KnowledgeRepository persists knowledge entries as two JSON files. Readers
// get an immutable snapshot; writers build a new one and swap it in after the
// file has been replaced on disk.
type KnowledgeRepository struct {
	dir     string
	current atomic.Pointer[snapshot]
	writeMu sync.Mutex
	loadErr atomic.Value
	now     func() time.Time
}

// NewKnowledgeRepository creates the directory layout and empty files when
// missing, then loads both files. Unreadable files do not fail construction;
// they load as empty and show up in LoadError.
func NewKnowledgeRepository(dir string) (*KnowledgeRepository, error) {
	r := &KnowledgeRepository{dir: dir, now: time.Now}

	if err := os.MkdirAll(filepath.Join(dir, backupDir), 0o755); err != nil {
		return nil, fmt.Errorf("create knowledge dir: %w", err)
	}
	for _, name := range []string{CoreFile, ExpandedFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := r.writeAtomic(path, []store.KnowledgeEntry{}); err != nil {
				return nil, err
			}
		}
	}

	_ = r.Reload()
	return r, nil
}

// All returns core entries followed by expanded entries, in file order.
// The slice is shared and must not be modified.
func (r *KnowledgeRepository) All() []store.KnowledgeEntry {
	return r.current.Load().all
}

func (r *KnowledgeRepository) Count() int {
	return len(r.current.Load().all)
}

// Reload re-reads both files. An unreadable file is treated as empty and
// reported through the returned error; the swap still happens.
func (r *KnowledgeRepository) Reload() error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	core, coreErr := r.load(CoreFile)
	expanded, expErr := r.load(ExpandedFile)
	r.current.Store(newSnapshot(core, expanded))

	err := errors.Join(coreErr, expErr)
	r.loadErr.Store(loadResult{err: err})
	return err
}

type loadResult struct{ err error }

// LoadError reports the outcome of the last load, nil when both files decoded
func (r *KnowledgeRepository) LoadError() error {
	if v, ok := r.loadErr.Load().(loadResult); ok {
		return v.err
	}
	return nil
}

func (r *KnowledgeRepository) AppendExpanded(entries []store.KnowledgeEntry) error {
	return r.append(ExpandedFile, entries)
}

func (r *KnowledgeRepository) AppendCore(entries []store.KnowledgeEntry) error {
	return r.append(CoreFile, entries)
}

func (r *KnowledgeRepository) append(name string, entries []store.KnowledgeEntry) error {
	if len(entries) == 0 {
		return nil
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	old := r.current.Load()
	core, expanded := old.core, old.expanded

	var target []store.KnowledgeEntry
	if name == CoreFile {
		target = core
	} else {
		target = expanded
	}
	next := make([]store.KnowledgeEntry, 0, len(target)+len(entries))
	next = append(next, target...)
	next = append(next, entries...)

	if err := r.writeAtomic(filepath.Join(r.dir, name), next); err != nil {
		return err
	}

	if name == CoreFile {
		core = next
	} else {
		expanded = next
	}
	r.current.Store(newSnapshot(core, expanded))
	return nil
}

func (r *KnowledgeRepository) load(name string) ([]store.KnowledgeEntry, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return []store.KnowledgeEntry{}, fmt.Errorf("read %s: %w", name, err)
	}

	var entries []store.KnowledgeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return []store.KnowledgeEntry{}, fmt.Errorf("decode %s: %w", name, err)
	}
	if entries == nil {
		entries = []store.KnowledgeEntry{}
	}
	return entries, nil
}

// writeAtomic backs up the current file, writes a temp file and renames it
// over the target so readers never observe a partial write.
func (r *KnowledgeRepository) writeAtomic(path string, entries []store.KnowledgeEntry) error {
	if _, err := os.Stat(path); err == nil {
		if err := r.backup(path); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode knowledge: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (r *KnowledgeRepository) backup(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read for backup: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := fmt.Sprintf("%s_%s.json", stem, r.now().UTC().Format("20060102_150405.000000000"))
	if err := os.WriteFile(filepath.Join(r.dir, backupDir, name), data, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return r.pruneBackups(stem)
}

// pruneBackups keeps the newest keepBackups files for stem. Names embed a
// sortable timestamp so lexical order is age order.
func (r *KnowledgeRepository) pruneBackups(stem string) error {
	matches, err := filepath.Glob(filepath.Join(r.dir, backupDir, stem+"_*.json"))
	if err != nil {
		return err
	}
	if len(matches) <= keepBackups {
		return nil
	}

	sort.Strings(matches)
	for _, old := range matches[:len(matches)-keepBackups] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove old backup: %w", err)
		}
	}
	return nil
}

// Backups lists backup file names for stem, oldest first
func (r *KnowledgeRepository) Backups(stem string) []string {
	matches, _ := filepath.Glob(filepath.Join(r.dir, backupDir, stem+"_*.json"))
	sort.Strings(matches)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = filepath.Base(m)
	}
	return out
}
