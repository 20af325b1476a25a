package modloader

import (
	"context"
	"fmt"
	"net/http"
)

// QuiltClient fetches loader version listings and launch profiles from the
// Quilt meta API, which mirrors Fabric's shape closely enough that only
// the base URL differs.
type QuiltClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewQuiltClient() *QuiltClient {
	return &QuiltClient{httpClient: newRetryClient(), baseURL: "https://meta.quiltmc.org/v3"}
}

// GetLoaderVersions lists loader versions compatible with mcVersion.
func (c *QuiltClient) GetLoaderVersions(ctx context.Context, mcVersion string) ([]FabricLoaderVersion, error) {
	var entries []struct {
		Loader FabricLoaderVersion `json:"loader"`
	}
	if err := getJSON(ctx, c.httpClient, fmt.Sprintf("%s/versions/loader/%s", c.baseURL, mcVersion), &entries); err != nil {
		return nil, err
	}
	versions := make([]FabricLoaderVersion, len(entries))
	for i, e := range entries {
		versions[i] = e.Loader
	}
	return versions, nil
}

// GetProfileJSON fetches the merge-ready version JSON for a given
// mcVersion + loaderVersion pair.
func (c *QuiltClient) GetProfileJSON(ctx context.Context, mcVersion, loaderVersion string) ([]byte, error) {
	url := fmt.Sprintf("%s/versions/loader/%s/%s/profile/json", c.baseURL, mcVersion, loaderVersion)
	return getRaw(ctx, c.httpClient, url)
}
