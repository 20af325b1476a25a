// Package core version handling.
// Manages Minecraft version manifests and version information.
package core

import "time"

// VersionType represents the type of Minecraft version
type VersionType string

const (
	VersionTypeRelease  VersionType = "release"
	VersionTypeSnapshot VersionType = "snapshot"
	VersionTypeOldBeta  VersionType = "old_beta"
	VersionTypeOldAlpha VersionType = "old_alpha"
)

// LoaderType represents the mod loader type
type LoaderType string

const (
	LoaderVanilla  LoaderType = "vanilla"
	LoaderFabric   LoaderType = "fabric"
	LoaderForge    LoaderType = "forge"
	LoaderQuilt    LoaderType = "quilt"
	LoaderNeoForge LoaderType = "neoforge"
)

// Version represents a Minecraft version from the manifest
type Version struct {
	ID          string      `json:"id"`
	Type        VersionType `json:"type"`
	URL         string      `json:"url"`
	ReleaseTime time.Time   `json:"releaseTime"`
	SHA1        string      `json:"sha1"`
}

// VersionManifest is the root of Mojang's version manifest
type VersionManifest struct {
	Latest   LatestVersions `json:"latest"`
	Versions []Version      `json:"versions"`
}

// LatestVersions contains the latest release and snapshot
type LatestVersions struct {
	Release  string `json:"release"`
	Snapshot string `json:"snapshot"`
}

// LoaderVersion represents a mod loader version
type LoaderVersion struct {
	Version   string `json:"version"`
	Stable    bool   `json:"stable"`
	MCVersion string `json:"mcVersion"` // Compatible MC version
}

// VersionDetails contains full version metadata (from version JSON)
type VersionDetails struct {
	ID                 string         `json:"id"`
	Type               VersionType    `json:"type"`
	MainClass          string         `json:"mainClass"`
	MinecraftArguments string         `json:"minecraftArguments,omitempty"`
	Arguments          *Arguments     `json:"arguments,omitempty"`
	Libraries          []Library      `json:"libraries"`
	AssetIndex         AssetIndexRef  `json:"assetIndex"`
	Assets             string         `json:"assets"`
	Downloads          Downloads      `json:"downloads"`
	JavaVersion        JavaVersionReq `json:"javaVersion"`
	ReleaseTime        time.Time      `json:"releaseTime"`
	Time               time.Time      `json:"time"`
}

// Arguments contains game and JVM arguments (modern format)
type Arguments struct {
	Game []interface{} `json:"game"`
	JVM  []interface{} `json:"jvm"`
}

// Library represents a dependency library
type Library struct {
	Name      string            `json:"name"`
	Downloads *LibraryDownloads `json:"downloads,omitempty"`
	Rules     []Rule            `json:"rules,omitempty"`
	Natives   map[string]string `json:"natives,omitempty"`
	Extract   *ExtractRule      `json:"extract,omitempty"`
}

// ExtractRule lists path prefixes to skip when unpacking a natives jar,
// e.g. Mojang's manifests exclude "META-INF/" from every natives archive.
type ExtractRule struct {
	Exclude []string `json:"exclude,omitempty"`
}

// LibraryDownloads contains artifact download info
type LibraryDownloads struct {
	Artifact    *Artifact            `json:"artifact,omitempty"`
	Classifiers map[string]*Artifact `json:"classifiers,omitempty"`
}

// Artifact represents a downloadable file
type Artifact struct {
	Path string `json:"path"`
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Rule represents OS/feature-based conditions
type Rule struct {
	Action   string    `json:"action"` // allow or disallow
	OS       *OSRule   `json:"os,omitempty"`
	Features *Features `json:"features,omitempty"`
}

// OSRule specifies OS conditions
type OSRule struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Arch    string `json:"arch,omitempty"`
}

// Features specifies feature flags
type Features struct {
	IsDemoUser        bool `json:"is_demo_user,omitempty"`
	HasCustomRes      bool `json:"has_custom_resolution,omitempty"`
	HasQuickPlaysup   bool `json:"has_quick_plays_support,omitempty"`
	IsQuickPlaySingle bool `json:"is_quick_play_singleplayer,omitempty"`
	IsQuickPlayMulti  bool `json:"is_quick_play_multiplayer,omitempty"`
	IsQuickPlayRealms bool `json:"is_quick_play_realms,omitempty"`
}

// matches reports whether this rule's OS/Features clauses all hold against
// the given platform and feature set. A clause that is nil matches
// unconditionally.
func (r Rule) matches(osName, arch string, features Features) bool {
	if r.OS != nil {
		if r.OS.Name != "" && r.OS.Name != osName {
			return false
		}
		if r.OS.Arch != "" && r.OS.Arch != arch {
			return false
		}
	}
	if r.Features != nil {
		if r.Features.IsDemoUser && !features.IsDemoUser {
			return false
		}
		if r.Features.HasCustomRes && !features.HasCustomRes {
			return false
		}
		if r.Features.HasQuickPlaysup && !features.HasQuickPlaysup {
			return false
		}
		if r.Features.IsQuickPlaySingle && !features.IsQuickPlaySingle {
			return false
		}
		if r.Features.IsQuickPlayMulti && !features.IsQuickPlayMulti {
			return false
		}
		if r.Features.IsQuickPlayRealms && !features.IsQuickPlayRealms {
			return false
		}
	}
	return true
}

// Evaluate resolves a rule chain the way Mojang's launcher does, generalizing
// the OS-only check the launcher used to do inline into OS+arch+feature-flag
// evaluation: rules are evaluated in order and the last matching rule's
// action wins. An empty rule list always applies.
func Evaluate(rules []Rule, osName, arch string, features Features) bool {
	if len(rules) == 0 {
		return true
	}
	applies := false
	for _, r := range rules {
		if r.matches(osName, arch, features) {
			applies = r.Action == "allow"
		}
	}
	return applies
}

// AssetIndexRef references the asset index
type AssetIndexRef struct {
	ID        string `json:"id"`
	SHA1      string `json:"sha1"`
	Size      int64  `json:"size"`
	TotalSize int64  `json:"totalSize"`
	URL       string `json:"url"`
}

// IsLegacy reports whether this asset index predates the hash-addressed
// objects/ layout, in which case objects must additionally be reconstructed
// under a flat virtual/legacy tree keyed by their original asset path.
func (a AssetIndexRef) IsLegacy() bool {
	return a.ID == "legacy" || a.ID == "pre-1.6"
}

// AssetObject is one entry of an asset index's "objects" map: an asset's
// logical path (map key, not stored here) resolves to a content-addressed
// object under assets/objects/<sha1[:2]>/<sha1>.
type AssetObject struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// AssetIndexFile is the document fetched from AssetIndexRef.URL.
type AssetIndexFile struct {
	Objects map[string]AssetObject `json:"objects"`
}

// Path returns the object's storage location relative to the assets root:
// objects/<first 2 hex chars of hash>/<hash>.
func (o AssetObject) Path() string {
	if len(o.Hash) < 2 {
		return "objects/" + o.Hash
	}
	return "objects/" + o.Hash[:2] + "/" + o.Hash
}

// Downloads contains client/server download info
type Downloads struct {
	Client         *Artifact `json:"client,omitempty"`
	ClientMappings *Artifact `json:"client_mappings,omitempty"`
	Server         *Artifact `json:"server,omitempty"`
	ServerMappings *Artifact `json:"server_mappings,omitempty"`
}

// JavaVersionReq specifies required Java version
type JavaVersionReq struct {
	Component    string `json:"component"`
	MajorVersion int    `json:"majorVersion"`
}
