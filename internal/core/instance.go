// Package core contains business logic independent of any transport or UI.
// This is the heart of the application - all game-related logic lives here.
package core

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// LoaderRef names one modloader and the version to install for it.
type LoaderRef struct {
	Type    LoaderType `json:"type"`
	Version string     `json:"version"`
}

// GameVersion is either a standard release+modloaders pair or an opaque
// custom version file path. Exactly one of Release or CustomVersionFile
// should be set.
type GameVersion struct {
	Release           string      `json:"release,omitempty"`
	Modloaders        []LoaderRef `json:"modloaders,omitempty"`
	CustomVersionFile string      `json:"customVersionFile,omitempty"`
}

// IsCustom reports whether this version points at an opaque version file
// rather than a standard release.
func (g GameVersion) IsCustom() bool {
	return g.CustomVersionFile != ""
}

// ModpackSource records where an instance's modpack came from, when it was
// created from one.
type ModpackSource struct {
	Platform  string `json:"platform"` // "curseforge" or "modrinth"
	ProjectID string `json:"projectId"`
	VersionID string `json:"versionId"`
}

// InstanceConfig is the round-trippable configuration for a Valid instance.
// It is the sole content of instance.json.
type InstanceConfig struct {
	GameVersion      GameVersion    `json:"gameVersion"`
	ModpackSource    *ModpackSource `json:"modpackSource,omitempty"`
	MemoryMinMB      int            `json:"memoryMinMB,omitempty"`
	MemoryMaxMB      int            `json:"memoryMaxMB,omitempty"`
	ExtraJVMArgs     []string       `json:"extraJvmArgs,omitempty"`
	ResolutionWidth  int            `json:"resolutionWidth,omitempty"`
	ResolutionHeight int            `json:"resolutionHeight,omitempty"`
	PreLaunchHook    string         `json:"preLaunchHook,omitempty"`
	PostExitHook     string         `json:"postExitHook,omitempty"`
	WrapperCommand   string         `json:"wrapperCommand,omitempty"`
	Notes            string         `json:"notes,omitempty"`
}

// InvalidReasonKind enumerates why an instance failed to load its config.
type InvalidReasonKind string

const (
	ReasonMissingConfig InvalidReasonKind = "missing_config"
	ReasonParseError    InvalidReasonKind = "parse_error"
	ReasonIOError       InvalidReasonKind = "io_error"
)

// InvalidReason explains why an instance is listable but not launchable.
type InvalidReason struct {
	Kind InvalidReasonKind `json:"kind"`
	Line int                `json:"line,omitempty"` // set for ReasonParseError
	Text string             `json:"text,omitempty"` // original file text, set for ReasonParseError
	Path string             `json:"path,omitempty"` // set for ReasonIOError
}

func (r *InvalidReason) Error() string {
	switch r.Kind {
	case ReasonMissingConfig:
		return "instance.json missing"
	case ReasonParseError:
		return fmt.Sprintf("instance.json parse error at line %d", r.Line)
	case ReasonIOError:
		return fmt.Sprintf("i/o error reading %s", r.Path)
	default:
		return "invalid instance"
	}
}

// Instance represents a Minecraft instance: a stable numeric id, a
// human-readable directory name (shortpath), and bookkeeping metadata that
// survives whether or not the configuration itself is valid.
type Instance struct {
	ID              int64     `json:"id"`
	Shortpath       string    `json:"shortpath"`
	DisplayName     string    `json:"displayName"`
	GroupID         string    `json:"groupId,omitempty"`
	Favorite        bool      `json:"favorite"`
	LastPlayed      time.Time `json:"lastPlayed,omitempty"`
	PlayTimeSeconds int64     `json:"playTimeSeconds"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	IconRevision    int       `json:"iconRevision"`

	// Config is non-nil iff the instance is Valid. InvalidReason is non-nil
	// iff Config is nil. Exactly one must be set.
	Config        *InstanceConfig `json:"-"`
	InvalidReason *InvalidReason  `json:"-"`

	// Path is the instance's directory on disk; computed, never persisted.
	Path string `json:"-"`
}

// IsValid reports whether the instance's configuration parsed successfully.
func (i *Instance) IsValid() bool {
	return i.InvalidReason == nil
}

// NewInstance mints a fresh valid instance with a stable id.
func NewInstance(displayName string, cfg InstanceConfig) *Instance {
	now := time.Now()
	return &Instance{
		ID:          newInstanceID(),
		DisplayName: displayName,
		Config:      &cfg,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// newInstanceID mints a stable numeric id derived from a UUID's low 63 bits.
// A full UUID would round-trip fine as a string, but spec.md calls for a
// numeric id distinct from the directory shortpath, so we fold it down.
func newInstanceID() int64 {
	u := uuid.New()
	var n uint64
	for _, b := range u[8:] {
		n = n<<8 | uint64(b)
	}
	return int64(n & math.MaxInt64)
}

// InstanceManager handles instance CRUD and directory scanning.
type InstanceManager struct {
	basePath  string
	instances map[int64]*Instance
}

// NewInstanceManager creates a new instance manager rooted at basePath
// (the directory that contains the "instances" subdirectory).
func NewInstanceManager(basePath string) *InstanceManager {
	return &InstanceManager{
		basePath:  basePath,
		instances: make(map[int64]*Instance),
	}
}

// Load scans every subdirectory of <basePath>/instances, building a listing
// of Valid and Invalid instances. A config that fails to round-trip through
// the parser becomes Invalid rather than being skipped, per spec.md's
// invariant that invalid instances remain listable.
func (im *InstanceManager) Load() error {
	instancesPath := filepath.Join(im.basePath, "instances")

	entries, err := os.ReadDir(instancesPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		inst := im.scanOne(instancesPath, entry.Name())
		im.instances[inst.ID] = inst
	}

	return nil
}

// scanOne loads a single instance directory, producing a Valid or Invalid
// Instance. It never returns an error: failures are captured as
// InvalidReason so the instance remains listable.
func (im *InstanceManager) scanOne(instancesPath, shortpath string) *Instance {
	dir := filepath.Join(instancesPath, shortpath)
	configPath := filepath.Join(dir, "instance.json")

	meta, err := loadMeta(dir)
	if err != nil {
		meta = metaFile{ID: deriveIDFromShortpath(shortpath), DisplayName: shortpath}
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return &Instance{
			ID: meta.ID, Shortpath: shortpath, DisplayName: meta.DisplayName,
			Path: dir, InvalidReason: &InvalidReason{Kind: ReasonMissingConfig},
		}
	}
	if err != nil {
		return &Instance{
			ID: meta.ID, Shortpath: shortpath, DisplayName: meta.DisplayName,
			Path: dir, InvalidReason: &InvalidReason{Kind: ReasonIOError, Path: configPath},
		}
	}

	var cfg InstanceConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return &Instance{
			ID: meta.ID, Shortpath: shortpath, DisplayName: meta.DisplayName,
			Path: dir,
			InvalidReason: &InvalidReason{
				Kind: ReasonParseError,
				Line: jsonErrorLine(data, err),
				Text: string(data),
			},
		}
	}

	// Round-trip check: a config that doesn't survive re-encoding is
	// treated the same as a parse failure, per the Instance scan
	// round-trip invariant (spec.md §8).
	reencoded, err := json.Marshal(&cfg)
	if err != nil {
		return &Instance{
			ID: meta.ID, Shortpath: shortpath, DisplayName: meta.DisplayName,
			Path: dir,
			InvalidReason: &InvalidReason{Kind: ReasonParseError, Text: string(data)},
		}
	}
	var roundTripped InstanceConfig
	if err := json.Unmarshal(reencoded, &roundTripped); err != nil {
		return &Instance{
			ID: meta.ID, Shortpath: shortpath, DisplayName: meta.DisplayName,
			Path: dir,
			InvalidReason: &InvalidReason{Kind: ReasonParseError, Text: string(data)},
		}
	}

	return &Instance{
		ID:              meta.ID,
		Shortpath:       shortpath,
		DisplayName:     meta.DisplayName,
		GroupID:         meta.GroupID,
		Favorite:        meta.Favorite,
		LastPlayed:      meta.LastPlayed,
		PlayTimeSeconds: meta.PlayTimeSeconds,
		CreatedAt:       meta.CreatedAt,
		UpdatedAt:       meta.UpdatedAt,
		IconRevision:    meta.IconRevision,
		Path:            dir,
		Config:          &cfg,
	}
}

// deriveIDFromShortpath keeps old scans stable across restarts when the
// meta.json sidecar is missing or unreadable (e.g. a foreign directory).
func deriveIDFromShortpath(shortpath string) int64 {
	h := int64(0)
	for _, r := range shortpath {
		h = h*31 + int64(r)
	}
	if h < 0 {
		h = -h
	}
	return h
}

// jsonErrorLine best-effort locates the 1-based line number of a
// json.SyntaxError or json.UnmarshalTypeError's byte offset.
func jsonErrorLine(data []byte, err error) int {
	var offset int64
	switch e := err.(type) {
	case *json.SyntaxError:
		offset = e.Offset
	case *json.UnmarshalTypeError:
		offset = e.Offset
	default:
		return 0
	}
	line := 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
		}
	}
	return line
}

// List returns all instances, valid and invalid alike.
func (im *InstanceManager) List() []*Instance {
	result := make([]*Instance, 0, len(im.instances))
	for _, inst := range im.instances {
		result = append(result, inst)
	}
	return result
}

// Get returns an instance by id.
func (im *InstanceManager) Get(id int64) (*Instance, bool) {
	inst, ok := im.instances[id]
	return inst, ok
}

// Create materializes a new instance directory and persists its config.
func (im *InstanceManager) Create(inst *Instance) error {
	if inst.Shortpath == "" {
		inst.Shortpath = fmt.Sprintf("instance-%d", inst.ID)
	}
	instPath := filepath.Join(im.basePath, "instances", inst.Shortpath)

	if err := os.MkdirAll(instPath, 0755); err != nil {
		return err
	}
	inst.Path = instPath

	if err := im.save(inst); err != nil {
		return err
	}

	im.instances[inst.ID] = inst
	return nil
}

// Delete removes an instance's directory and listing entry.
func (im *InstanceManager) Delete(id int64) error {
	inst, ok := im.instances[id]
	if !ok {
		return nil
	}
	if err := os.RemoveAll(inst.Path); err != nil {
		return err
	}
	delete(im.instances, id)
	return nil
}

// save writes both instance.json (the round-trippable config) and the
// meta.json sidecar (bookkeeping fields outside the config's scope).
func (im *InstanceManager) save(inst *Instance) error {
	if inst.Config != nil {
		data, err := json.MarshalIndent(inst.Config, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(inst.Path, "instance.json"), data, 0644); err != nil {
			return err
		}
	}
	return saveMeta(inst.Path, metaFile{
		ID:              inst.ID,
		DisplayName:     inst.DisplayName,
		GroupID:         inst.GroupID,
		Favorite:        inst.Favorite,
		LastPlayed:      inst.LastPlayed,
		PlayTimeSeconds: inst.PlayTimeSeconds,
		CreatedAt:       inst.CreatedAt,
		UpdatedAt:       inst.UpdatedAt,
		IconRevision:    inst.IconRevision,
	})
}

// Update persists changes to an existing instance.
func (im *InstanceManager) Update(inst *Instance) error {
	inst.UpdatedAt = time.Now()
	im.instances[inst.ID] = inst
	return im.save(inst)
}

// UpdateLastPlayed stamps the current time as the instance's last-played
// time and persists it.
func (im *InstanceManager) UpdateLastPlayed(id int64) error {
	inst, ok := im.instances[id]
	if !ok {
		return nil
	}
	inst.LastPlayed = time.Now()
	return im.save(inst)
}

// AddPlayTime accumulates playtime seconds and persists it. Called every
// 60s while running and once more on exit, per the Instance Lifecycle
// Engine's log/playtime discipline.
func (im *InstanceManager) AddPlayTime(id int64, seconds int64) error {
	inst, ok := im.instances[id]
	if !ok {
		return nil
	}
	inst.PlayTimeSeconds += seconds
	return im.save(inst)
}

// metaFile is the bookkeeping sidecar persisted alongside instance.json.
// Kept separate from InstanceConfig so the config round-trip invariant
// (spec.md §8) is about the config alone, not the whole Instance struct.
type metaFile struct {
	ID              int64     `json:"id"`
	DisplayName     string    `json:"displayName"`
	GroupID         string    `json:"groupId,omitempty"`
	Favorite        bool      `json:"favorite"`
	LastPlayed      time.Time `json:"lastPlayed,omitempty"`
	PlayTimeSeconds int64     `json:"playTimeSeconds"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	IconRevision    int       `json:"iconRevision"`
}

func loadMeta(dir string) (metaFile, error) {
	var m metaFile
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, err
	}
	return m, nil
}

func saveMeta(dir string, m metaFile) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0644)
}
