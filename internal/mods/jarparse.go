package mods

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
)

// ParsedJar is the metadata recovered from a single jar's declared
// manifest, before it's folded into a ModMetadata row.
type ParsedJar struct {
	ModID       string
	Name        string
	Version     string
	Description string
	Authors     []string
	Modloaders  []string
	LogoPath    string // path inside the jar to the declared icon, if any
}

// jarManifestPaths lists the manifest files ParseJar looks for, in
// priority order. Per spec.md §4.5, later sources never shadow fields
// the earlier ones already set; they only fill in gaps, so a jar that
// (unusually) ships more than one loader's manifest keeps the first
// source's fields as authoritative.
var jarManifestPaths = []struct {
	path   string
	loader string
	parse  func([]byte) (ParsedJar, error)
}{
	{"META-INF/mods.toml", "forge", parseModsToml},
	{"fabric.mod.json", "fabric", parseFabricModJSON},
	{"quilt.mod.json", "quilt", parseQuiltModJSON},
	{"mcmod.info", "forge", parseMcmodInfo},
}

// ParseJar inspects a mod jar's declared manifests and merges them into a
// single ParsedJar, per spec.md §4.5's parser priority order. Returns an
// error only if the jar itself can't be opened; a jar with no recognized
// manifest yields a zero-value ParsedJar with no error, since an
// unrecognized mod is still a valid local scan result (just without rich
// metadata).
func ParseJar(jarPath string) (ParsedJar, error) {
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return ParsedJar{}, fmt.Errorf("opening jar %s: %w", jarPath, err)
	}
	defer r.Close()

	byName := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		byName[f.Name] = f
	}

	var merged ParsedJar
	var modloaders []string
	seenLoader := make(map[string]bool)

	for _, src := range jarManifestPaths {
		f, ok := byName[src.path]
		if !ok {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			continue
		}
		parsed, err := src.parse(data)
		if err != nil {
			continue
		}
		mergeMissing(&merged, parsed)
		if !seenLoader[src.loader] {
			modloaders = append(modloaders, src.loader)
			seenLoader[src.loader] = true
		}
	}
	merged.Modloaders = modloaders

	if merged.Version == "${file.jarVersion}" {
		if v, err := manifestImplementationVersion(byName); err == nil {
			merged.Version = v
		}
	}

	return merged, nil
}

// ExtractLogo reads the bytes of a jar's declared logo path, if any.
func ExtractLogo(jarPath, logoPath string) ([]byte, error) {
	if logoPath == "" {
		return nil, fmt.Errorf("no logo path declared")
	}
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	logoPath = strings.TrimPrefix(logoPath, "/")
	for _, f := range r.File {
		if f.Name == logoPath {
			return readZipFile(f)
		}
	}
	return nil, fmt.Errorf("logo %q not found in %s", logoPath, jarPath)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// mergeMissing copies fields from src into dst wherever dst's field is
// still the zero value, implementing the "later sources fill gaps, never
// shadow" rule of spec.md §4.5.
func mergeMissing(dst *ParsedJar, src ParsedJar) {
	if dst.ModID == "" {
		dst.ModID = src.ModID
	}
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Version == "" {
		dst.Version = src.Version
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.LogoPath == "" {
		dst.LogoPath = src.LogoPath
	}
}

// modsToml is the subset of Forge/NeoForge's META-INF/mods.toml this
// cares about. The full schema nests an array of [[mods]] tables under
// an optional top-level "modLoader"/"license" pair we don't need.
type modsToml struct {
	Mods []struct {
		ModID       string `toml:"modId"`
		Version     string `toml:"version"`
		DisplayName string `toml:"displayName"`
		Description string `toml:"description"`
		Authors     string `toml:"authors"`
		LogoFile    string `toml:"logoFile"`
	} `toml:"mods"`
}

func parseModsToml(data []byte) (ParsedJar, error) {
	var doc modsToml
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return ParsedJar{}, fmt.Errorf("parsing mods.toml: %w", err)
	}
	if len(doc.Mods) == 0 {
		return ParsedJar{}, fmt.Errorf("mods.toml declares no [[mods]] entries")
	}
	m := doc.Mods[0]
	var authors []string
	if m.Authors != "" {
		for _, a := range strings.Split(m.Authors, ",") {
			authors = append(authors, strings.TrimSpace(a))
		}
	}
	return ParsedJar{
		ModID:       m.ModID,
		Name:        m.DisplayName,
		Version:     m.Version,
		Description: m.Description,
		Authors:     authors,
		LogoPath:    m.LogoFile,
	}, nil
}

type fabricModJSON struct {
	ID          string `json:"id"`
	Version     string `json:"version"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Authors     []json.RawMessage `json:"authors"`
	Icon        json.RawMessage   `json:"icon"`
}

func parseFabricModJSON(data []byte) (ParsedJar, error) {
	var doc fabricModJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return ParsedJar{}, fmt.Errorf("parsing fabric.mod.json: %w", err)
	}
	return ParsedJar{
		ModID:       doc.ID,
		Name:        doc.Name,
		Version:     doc.Version,
		Description: doc.Description,
		Authors:     decodeAuthorList(doc.Authors),
		LogoPath:    decodeIconPath(doc.Icon),
	}, nil
}

// quilt.mod.json nests everything this cares about under a
// "quilt_loader" object, unlike Fabric's flat top level.
type quiltModJSON struct {
	QuiltLoader struct {
		ID       string `json:"id"`
		Version  string `json:"version"`
		Metadata struct {
			Name        string            `json:"name"`
			Description string            `json:"description"`
			Contributors map[string]string `json:"contributors"`
			Icon        json.RawMessage    `json:"icon"`
		} `json:"metadata"`
	} `json:"quilt_loader"`
}

func parseQuiltModJSON(data []byte) (ParsedJar, error) {
	var doc quiltModJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return ParsedJar{}, fmt.Errorf("parsing quilt.mod.json: %w", err)
	}
	var authors []string
	for name := range doc.QuiltLoader.Metadata.Contributors {
		authors = append(authors, name)
	}
	return ParsedJar{
		ModID:       doc.QuiltLoader.ID,
		Name:        doc.QuiltLoader.Metadata.Name,
		Version:     doc.QuiltLoader.Version,
		Description: doc.QuiltLoader.Metadata.Description,
		Authors:     authors,
		LogoPath:    decodeIconPath(doc.QuiltLoader.Metadata.Icon),
	}, nil
}

// legacy pre-1.13 Forge manifest: a JSON array (not an object!) at the
// jar's root.
type mcmodInfoEntry struct {
	ModID       string   `json:"modid"`
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	AuthorList  []string `json:"authorList"`
	LogoFile    string   `json:"logoFile"`
}

func parseMcmodInfo(data []byte) (ParsedJar, error) {
	var list []mcmodInfoEntry
	if err := json.Unmarshal(data, &list); err != nil {
		// Some old mods wrap the array under {"modListVersion":2,"modList":[...]}.
		var wrapped struct {
			ModList []mcmodInfoEntry `json:"modList"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil || len(wrapped.ModList) == 0 {
			return ParsedJar{}, fmt.Errorf("parsing mcmod.info: %w", err)
		}
		list = wrapped.ModList
	}
	if len(list) == 0 {
		return ParsedJar{}, fmt.Errorf("mcmod.info declares no entries")
	}
	e := list[0]
	return ParsedJar{
		ModID:       e.ModID,
		Name:        e.Name,
		Version:     e.Version,
		Description: e.Description,
		Authors:     e.AuthorList,
		LogoPath:    e.LogoFile,
	}, nil
}

// decodeAuthorList handles fabric.mod.json's "authors" field, which is an
// array whose entries are either plain strings or {"name": "...", ...}
// objects.
func decodeAuthorList(raw []json.RawMessage) []string {
	var authors []string
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			authors = append(authors, s)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(r, &obj); err == nil && obj.Name != "" {
			authors = append(authors, obj.Name)
		}
	}
	return authors
}

// decodeIconPath handles fabric/quilt's "icon" field, which is either a
// plain path string or a map of size -> path; the largest declared size
// is preferred for thumbnailing quality.
func decodeIconPath(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var sizes map[string]string
	if err := json.Unmarshal(raw, &sizes); err == nil {
		best := ""
		bestSize := -1
		for k, v := range sizes {
			var n int
			fmt.Sscanf(k, "%d", &n)
			if n > bestSize {
				bestSize, best = n, v
			}
		}
		return best
	}
	return ""
}

// manifestImplementationVersion reads Implementation-Version out of
// META-INF/MANIFEST.MF, used to resolve mods.toml's literal
// "${file.jarVersion}" placeholder per spec.md §4.5.
func manifestImplementationVersion(byName map[string]*zip.File) (string, error) {
	f, ok := byName["META-INF/MANIFEST.MF"]
	if !ok {
		return "", fmt.Errorf("no MANIFEST.MF present")
	}
	data, err := readZipFile(f)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))), "\n") {
		if strings.HasPrefix(line, "Implementation-Version:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Implementation-Version:")), nil
		}
	}
	return "", fmt.Errorf("no Implementation-Version in manifest")
}
