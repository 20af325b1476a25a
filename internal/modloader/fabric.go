package modloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// FabricClient fetches loader version listings and full launch profiles
// from the Fabric meta API.
type FabricClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewFabricClient() *FabricClient {
	return &FabricClient{httpClient: newRetryClient(), baseURL: "https://meta.fabricmc.net/v2"}
}

// FabricLoaderVersion names one published Fabric loader build.
type FabricLoaderVersion struct {
	Separator string `json:"separator"`
	Build     int    `json:"build"`
	Version   string `json:"version"`
	Stable    bool   `json:"stable"`
}

// GetLoaderVersions lists loader versions compatible with mcVersion.
func (c *FabricClient) GetLoaderVersions(ctx context.Context, mcVersion string) ([]FabricLoaderVersion, error) {
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
// mcVersion + loaderVersion pair, already in core.VersionDetails shape.
func (c *FabricClient) GetProfileJSON(ctx context.Context, mcVersion, loaderVersion string) ([]byte, error) {
	url := fmt.Sprintf("%s/versions/loader/%s/%s/profile/json", c.baseURL, mcVersion, loaderVersion)
	return getRaw(ctx, c.httpClient, url)
}

func newRetryClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 1 * time.Second
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = nil
	return rc.StandardClient()
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	data, err := getRaw(ctx, client, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

func getRaw(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status fetching %s: %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
