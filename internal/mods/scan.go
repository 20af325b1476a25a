package mods

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the in-memory index a Scanner maintains: ModFile rows keyed
// by (instance id, filename), and ModMetadata rows keyed by SHA512, with
// a secondary Murmur2 index for CurseForge fingerprint lookups. A real
// deployment would back this with a persistent database; this module's
// scope per spec.md §4.5 is the scan/enrichment logic above that layer.
type Store struct {
	mu        sync.RWMutex
	files     map[int64]map[string]*ModFile // instance id -> filename -> ModFile
	metadata  map[string]*ModMetadata        // sha512 -> metadata
	byMurmur2 map[uint32][]string            // murmur2 -> sha512s sharing that fingerprint
}

// NewStore creates an empty metadata cache.
func NewStore() *Store {
	return &Store{
		files:     make(map[int64]map[string]*ModFile),
		metadata:  make(map[string]*ModMetadata),
		byMurmur2: make(map[uint32][]string),
	}
}

// Files returns a snapshot of an instance's known mod files.
func (s *Store) Files(instanceID int64) []*ModFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := s.files[instanceID]
	out := make([]*ModFile, 0, len(files))
	for _, f := range files {
		out = append(out, f)
	}
	return out
}

func (s *Store) fileByName(instanceID int64, name string) *ModFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files[instanceID][name]
}

// Metadata looks up a cached metadata row by its SHA512 key.
func (s *Store) Metadata(sha512Hex string) (*ModMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metadata[sha512Hex]
	return m, ok
}

// MetadataByMurmur2 returns every cached metadata row sharing a Murmur2
// fingerprint, the secondary lookup CurseForge enrichment uses.
func (s *Store) MetadataByMurmur2(fp uint32) []*ModMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ModMetadata
	for _, sha := range s.byMurmur2[fp] {
		if m, ok := s.metadata[sha]; ok {
			out = append(out, m)
		}
	}
	return out
}

// PutMetadata inserts or overwrites a metadata row, maintaining the
// Murmur2 secondary index.
func (s *Store) PutMetadata(m *ModMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.metadata[m.SHA512]; !exists {
		s.byMurmur2[m.Murmur2] = append(s.byMurmur2[m.Murmur2], m.SHA512)
	}
	s.metadata[m.SHA512] = m
}

// MetadataForInstance returns the deduplicated metadata rows backing an
// instance's currently known mod files, the set a remote enrichment or
// icon pass for that instance works over.
func (s *Store) MetadataForInstance(instanceID int64) []*ModMetadata {
	files := s.Files(instanceID)
	seen := make(map[string]bool, len(files))
	out := make([]*ModMetadata, 0, len(files))
	for _, f := range files {
		if seen[f.MetadataID] {
			continue
		}
		seen[f.MetadataID] = true
		if m, ok := s.Metadata(f.MetadataID); ok {
			out = append(out, m)
		}
	}
	return out
}

func (s *Store) putFile(f *ModFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.files[f.InstanceID]
	if !ok {
		bucket = make(map[string]*ModFile)
		s.files[f.InstanceID] = bucket
	}
	bucket[f.Filename] = f
}

func (s *Store) removeFile(instanceID int64, filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files[instanceID], filename)
}

// ScanResult summarizes one pass of ScanInstance.
type ScanResult struct {
	Added   []*ModFile
	Removed []string // filenames no longer present on disk
}

// ScanInstance walks an instance's mods directory, reconciling the
// Store's ModFile rows against what's actually on disk: new jars are
// hashed (SHA512 + Murmur2) and bound to an existing metadata row or a
// fresh placeholder one is created for later enrichment; jars that
// vanished since the last scan have their ModFile rows removed (their
// ModMetadata row is left alone since another instance, or this one
// again later, may still reference it by hash).
func ScanInstance(store *Store, instanceID int64, modsDir string) (ScanResult, error) {
	entries, err := os.ReadDir(modsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return ScanResult{}, nil
		}
		return ScanResult{}, fmt.Errorf("scanning %s: %w", modsDir, err)
	}

	onDisk := make(map[string]bool, len(entries))
	var result ScanResult

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !isJarName(name) {
			continue
		}
		onDisk[name] = true

		if existing := store.fileByName(instanceID, name); existing != nil {
			if info, err := entry.Info(); err == nil && info.Size() == existing.SizeBytes {
				continue // unchanged, skip the re-hash
			}
		}

		path := filepath.Join(modsDir, name)
		sha, murmur, size, err := FileFingerprints(path)
		if err != nil {
			continue // unreadable file, leave for next scan
		}

		if _, ok := store.Metadata(sha); !ok {
			parsed, _ := ParseJar(path)
			metadata := &ModMetadata{
				SHA512:      sha,
				Murmur2:     murmur,
				ModID:       parsed.ModID,
				Name:        parsed.Name,
				Version:     parsed.Version,
				Description: parsed.Description,
				Authors:     parsed.Authors,
				Modloaders:  parsed.Modloaders,
			}
			if raw, err := ExtractLogo(path, parsed.LogoPath); err == nil {
				if icon, err := RescaleIcon(raw); err == nil {
					metadata.Icon = icon
				}
			}
			store.PutMetadata(metadata)
		}

		mf := &ModFile{
			InstanceID: instanceID,
			Filename:   name,
			Enabled:    !isDisabledName(name),
			SizeBytes:  size,
			MetadataID: sha,
		}
		store.putFile(mf)
		result.Added = append(result.Added, mf)
	}

	for _, f := range store.Files(instanceID) {
		if !onDisk[f.Filename] {
			store.removeFile(instanceID, f.Filename)
			result.Removed = append(result.Removed, f.Filename)
		}
	}

	return result, nil
}

// isJarName reports whether a directory entry is a mod file, per
// spec.md §3: "enabled state encoded by the on-disk suffix — .jar/.zip vs
// .jar.disabled/.zip.disabled".
func isJarName(name string) bool {
	base := EnabledFilename(name)
	return len(base) > 4 && (base[len(base)-4:] == ".jar" || base[len(base)-4:] == ".zip")
}

func isDisabledName(name string) bool {
	return name != EnabledFilename(name)
}
