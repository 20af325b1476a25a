package modloader

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
)

// NeoForgeClient mirrors ForgeClient against NeoForge's Maven coordinates,
// which dropped the Minecraft-version prefix NeoForge inherited from
// Forge in favor of its own independent numbering.
type NeoForgeClient struct {
	httpClient *http.Client
	mavenBase  string
}

func NewNeoForgeClient() *NeoForgeClient {
	return &NeoForgeClient{
		httpClient: newRetryClient(),
		mavenBase:  "https://maven.neoforged.net/releases/net/neoforged/neoforge",
	}
}

// ListVersions returns every published NeoForge version string.
func (c *NeoForgeClient) ListVersions(ctx context.Context) ([]string, error) {
	data, err := getRaw(ctx, c.httpClient, c.mavenBase+"/maven-metadata.xml")
	if err != nil {
		return nil, err
	}
	var meta mavenMetadata
	if err := xml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding neoforge maven metadata: %w", err)
	}
	return meta.Versioning.Versions.Version, nil
}

// GetInstallProfile fetches the install_profile.json for a NeoForge
// version.
func (c *NeoForgeClient) GetInstallProfile(ctx context.Context, version string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/%s/neoforge-%s-installer.json", c.mavenBase, version, version)
	data, err := getRaw(ctx, c.httpClient, url)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
