package modloader

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
)

// ForgeClient resolves Forge versions and fetches the installer profile
// JSON bundled inside each Forge installer jar's version manifest, which
// Mojang-compatible launchers pull from Forge's Maven repository rather
// than a bespoke REST API.
type ForgeClient struct {
	httpClient *http.Client
	mavenBase  string
}

func NewForgeClient() *ForgeClient {
	return &ForgeClient{
		httpClient: newRetryClient(),
		mavenBase:  "https://maven.minecraftforge.net/net/minecraftforge/forge",
	}
}

type mavenMetadata struct {
	Versioning struct {
		Versions struct {
			Version []string `xml:"version"`
		} `xml:"versions"`
	} `xml:"versioning"`
}

// ListVersions returns every published Forge version string
// ("<mcversion>-<forgeversion>") from the Maven metadata index.
func (c *ForgeClient) ListVersions(ctx context.Context) ([]string, error) {
	data, err := getRaw(ctx, c.httpClient, c.mavenBase+"/maven-metadata.xml")
	if err != nil {
		return nil, err
	}
	var meta mavenMetadata
	if err := xml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding forge maven metadata: %w", err)
	}
	return meta.Versioning.Versions.Version, nil
}

// GetInstallProfile fetches the install_profile.json embedded in a Forge
// installer's "-installer" classifier, the document that names the
// post-processor steps and library set Merge needs.
func (c *ForgeClient) GetInstallProfile(ctx context.Context, version string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/%s/forge-%s-installer.json", c.mavenBase, version, version)
	data, err := getRaw(ctx, c.httpClient, url)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
